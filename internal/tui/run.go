package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/storage"
)

// Run shows the panel until the user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps) error {
	app := NewApp(ctx, deps)
	defer app.Close()

	if n, ok := deps.KV.(storage.Notifier); ok && deps.Menu != nil {
		stop := deps.Menu.Watch(app.ctx, n)
		defer stop()
	}
	if deps.StoragePath != "" {
		w, err := storage.Watch(app.ctx, deps.StoragePath, app.StorageChanged)
		if err != nil {
			app.log.Warn("cross-process updates disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}
