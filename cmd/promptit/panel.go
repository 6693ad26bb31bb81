package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/tui"
)

var panelManage bool

var panelCmd = &cobra.Command{
	Use:         "panel",
	Short:       "Open the interactive panel",
	Annotations: map[string]string{panelAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(cmd.Context(), panelDeps(panelManage))
	},
}

func panelDeps(manage bool) tui.Deps {
	return tui.Deps{
		Config:      app.cfg,
		ConfigPath:  app.cfgPath,
		KV:          app.db,
		Store:       app.store,
		Executor:    app.exec,
		Creds:       app.creds,
		Mailbox:     app.mailbox,
		Menu:        app.menu,
		Logger:      app.log,
		StoragePath: app.db.Path(),
		NeedsSetup:  !app.configured,
		Manage:      manage,
	}
}

// panelOpener shows the panel in this process the first time a surface is
// asked for.
type panelOpener struct {
	ctx     context.Context
	done    chan error
	started bool
}

func newPanelOpener(ctx context.Context) *panelOpener {
	return &panelOpener{ctx: ctx, done: make(chan error, 1)}
}

func (o *panelOpener) OpenSurface(ctx context.Context) error {
	o.start(false)
	return nil
}

func (o *panelOpener) OpenManage(ctx context.Context) error {
	o.start(true)
	return nil
}

func (o *panelOpener) start(manage bool) {
	if o.started {
		return
	}
	o.started = true
	go func() { o.done <- tui.Run(o.ctx, panelDeps(manage)) }()
}

// wait blocks until the panel closes.
func (o *panelOpener) wait() error {
	if !o.started {
		return nil
	}
	return <-o.done
}

// detachedOpener leaves hand-offs in storage for a panel running in
// another process.
type detachedOpener struct {
	log *zap.Logger
}

func (o detachedOpener) OpenSurface(ctx context.Context) error {
	o.log.Debug("hand-off left for a running panel")
	return nil
}

func (o detachedOpener) OpenManage(ctx context.Context) error {
	o.log.Info("run `promptit panel --manage` to manage promptlets")
	return nil
}

func init() {
	panelCmd.Flags().BoolVar(&panelManage, "manage", false, "open the promptlet management screen")
	rootCmd.AddCommand(panelCmd)
}
