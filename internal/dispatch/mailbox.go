// Package dispatch hands a triggered promptlet and its selected text to the
// display surface.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/storage"
)

// DefaultWindow is how long either side waits for the direct handshake
// before falling back to the durable record.
const DefaultWindow = 200 * time.Millisecond

// Handoff is the payload passed from a trigger to the display surface.
type Handoff struct {
	ID        string    `json:"id"`
	Promptlet string    `json:"promptlet"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Mailbox delivers hand-offs over two channels: a direct in-process send
// and a durable record in storage for surfaces that were not yet listening
// or live in another process.
type Mailbox struct {
	kv     storage.KV
	window time.Duration
	direct chan Handoff
	logger *zap.Logger
}

func NewMailbox(kv storage.KV, window time.Duration, logger *zap.Logger) *Mailbox {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailbox{
		kv:     kv,
		window: window,
		direct: make(chan Handoff),
		logger: logger,
	}
}

// Publish records h durably, then offers it directly for one window.
// It reports whether a listener took the direct message.
func (m *Mailbox) Publish(ctx context.Context, h Handoff) (bool, error) {
	if err := m.kv.Set(ctx, map[string]any{storage.KeyPendingPromptlet: h}); err != nil {
		return false, fmt.Errorf("record hand-off: %w", err)
	}

	timer := time.NewTimer(m.window)
	defer timer.Stop()

	select {
	case m.direct <- h:
		return true, nil
	case <-timer.C:
		m.logger.Debug("no direct listener, hand-off left in storage", zap.String("id", h.ID))
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Await is what a freshly opened surface calls: it waits one window for a
// direct message and otherwise takes the durable record. It returns nil
// when nothing is pending.
func (m *Mailbox) Await(ctx context.Context) (*Handoff, error) {
	timer := time.NewTimer(m.window)
	defer timer.Stop()

	select {
	case h := <-m.direct:
		return &h, m.ack(ctx, h.ID)
	case <-timer.C:
		return m.Take(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Listen blocks until a direct message arrives. A running surface calls it
// in a loop.
func (m *Mailbox) Listen(ctx context.Context) (*Handoff, error) {
	select {
	case h := <-m.direct:
		return &h, m.ack(ctx, h.ID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Take reads and clears the durable record.
func (m *Mailbox) Take(ctx context.Context) (*Handoff, error) {
	var h Handoff
	found, err := storage.Lookup(ctx, m.kv, storage.KeyPendingPromptlet, &h)
	if err != nil || !found {
		return nil, err
	}
	if err := m.kv.Remove(ctx, storage.KeyPendingPromptlet); err != nil {
		return nil, fmt.Errorf("clear hand-off: %w", err)
	}
	return &h, nil
}

// ack clears the durable copy of a directly delivered hand-off, leaving a
// newer record alone.
func (m *Mailbox) ack(ctx context.Context, id string) error {
	var h Handoff
	found, err := storage.Lookup(ctx, m.kv, storage.KeyPendingPromptlet, &h)
	if err != nil || !found || h.ID != id {
		return err
	}
	return m.kv.Remove(ctx, storage.KeyPendingPromptlet)
}
