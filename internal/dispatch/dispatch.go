package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/promptlet"
)

// Opener brings up the user-facing surfaces.
type Opener interface {
	// OpenSurface shows the display surface that will consume hand-offs.
	OpenSurface(ctx context.Context) error

	// OpenManage shows the promptlet management screen.
	OpenManage(ctx context.Context) error
}

// Resolver looks promptlets up by name or menu id.
type Resolver interface {
	Get(ctx context.Context, ref string) (promptlet.Promptlet, error)
}

type Dispatcher struct {
	promptlets Resolver
	mailbox    *Mailbox
	opener     Opener
	logger     *zap.Logger
	now        func() time.Time
}

func New(promptlets Resolver, mailbox *Mailbox, opener Opener, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		promptlets: promptlets,
		mailbox:    mailbox,
		opener:     opener,
		logger:     logger,
		now:        time.Now,
	}
}

// Trigger resolves ref, opens the display surface and publishes the
// hand-off. The manage action opens the management screen instead and
// returns a nil hand-off. An unknown ref is logged and nothing is opened.
func (d *Dispatcher) Trigger(ctx context.Context, ref, text string) (*Handoff, error) {
	if ref == promptlet.ManageID {
		return nil, d.opener.OpenManage(ctx)
	}

	p, err := d.promptlets.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, promptlet.ErrNotFound) {
			d.logger.Warn("trigger ignored", zap.String("ref", ref), zap.Error(err))
		}
		return nil, err
	}

	if err := d.opener.OpenSurface(ctx); err != nil {
		return nil, fmt.Errorf("open display surface: %w", err)
	}

	h := Handoff{
		ID:        uuid.NewString(),
		Promptlet: p.Name,
		Text:      text,
		CreatedAt: d.now(),
	}
	direct, err := d.mailbox.Publish(ctx, h)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("hand-off published",
		zap.String("id", h.ID),
		zap.String("promptlet", p.Name),
		zap.Bool("direct", direct))
	return &h, nil
}
