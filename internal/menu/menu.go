// Package menu builds the list of promptlet actions shown to the user and
// keeps it in step with storage.
package menu

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/storage"
)

// Title heads the menu.
const Title = "Prompt It!"

// Item is one menu entry.
type Item struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Tooltip   string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Separator bool   `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// Build lists the active promptlets in store order, then a separator and
// the manage action.
func Build(promptlets []promptlet.Promptlet) []Item {
	items := make([]Item, 0, len(promptlets)+2)
	for _, p := range promptlets {
		if !p.IsActive {
			continue
		}
		items = append(items, Item{
			ID:      promptlet.MenuID(len(items), p.Name),
			Label:   p.Label(),
			Tooltip: p.Tooltip(),
		})
	}
	return append(items,
		Item{ID: "separator", Separator: true},
		Item{ID: promptlet.ManageID, Label: "⚙️ Manage Promptlets"},
	)
}

// ParseID returns the promptlet name carried by a menu id. Underscores come
// back as spaces; use the promptlet store to resolve names that contained
// underscores.
func ParseID(id string) (string, bool) {
	_, name, err := promptlet.ParseMenuID(id)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(name, "_", " "), true
}

// Source lists the promptlets to show.
type Source interface {
	Active(ctx context.Context) ([]promptlet.Promptlet, error)
}

// Menu holds the current items, replaced wholesale on every rebuild.
type Menu struct {
	source Source
	logger *zap.Logger

	mu       sync.RWMutex
	items    []Item
	onChange []func([]Item)

	rebuilding atomic.Bool
}

func New(source Source, logger *zap.Logger) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{source: source, logger: logger}
}

// Items returns a copy of the current entries.
func (m *Menu) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item(nil), m.items...)
}

// OnChange registers fn to receive the items after each rebuild.
func (m *Menu) OnChange(fn func([]Item)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Rebuild replaces the items from the source. A call made while another
// rebuild runs is skipped.
func (m *Menu) Rebuild(ctx context.Context) error {
	if !m.rebuilding.CompareAndSwap(false, true) {
		m.logger.Debug("menu rebuild already in progress, skipping")
		return nil
	}
	defer m.rebuilding.Store(false)

	promptlets, err := m.source.Active(ctx)
	if err != nil {
		m.logger.Error("menu rebuild failed", zap.Error(err))
		return err
	}
	items := Build(promptlets)

	m.mu.Lock()
	m.items = items
	listeners := slices.Clone(m.onChange)
	m.mu.Unlock()

	m.logger.Debug("menu rebuilt", zap.Int("items", len(items)))
	for _, fn := range listeners {
		fn(items)
	}
	return nil
}

// Watch rebuilds the menu whenever n reports a write to a promptlet key.
// Rebuilds run on a separate goroutine because notifications arrive while
// the writer still holds the store. The returned stop function waits for
// that goroutine to exit.
func (m *Menu) Watch(ctx context.Context, n storage.Notifier) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	signal := make(chan struct{}, 1)

	unsubscribe := n.OnChange(func(keys []string) {
		if !touchesPromptlets(keys) {
			return
		}
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-signal:
				m.Rebuild(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		unsubscribe()
		cancel()
		<-done
	}
}

func touchesPromptlets(keys []string) bool {
	for _, k := range keys {
		switch k {
		case storage.KeyDefaultPromptlets, storage.KeyCustomPromptlets, storage.KeyLegacyPromptlets:
			return true
		}
	}
	return false
}
