package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/dispatch"
	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/logging"
	"github.com/sant0-9/promptit/internal/menu"
	"github.com/sant0-9/promptit/internal/promptlet"
	"github.com/sant0-9/promptit/internal/storage"
)

var version = "dev"

var (
	cfgFile      string
	verbose      bool
	outputFormat string
)

// panelAnnotation marks commands that hand the terminal to the panel; they
// log to a file instead of stderr.
const panelAnnotation = "panel"

// env is what every command works with, built once per invocation.
type env struct {
	cfg        *config.Config
	cfgPath    string
	configured bool
	log        *zap.Logger
	db         *storage.SQLite
	store      *promptlet.Store
	creds      executor.StoredCredential
	exec       *executor.Executor
	mailbox    *dispatch.Mailbox
	menu       *menu.Menu
}

var app *env

var rootCmd = &cobra.Command{
	Use:   "promptit",
	Short: "Run reusable prompt templates on any text",
	Long: `PromptIt keeps a library of promptlets: named prompt templates with
their own model settings. Pick one, hand it some text and the result is
shown in the panel or printed to stdout.

  promptit panel                       # open the interactive panel
  promptit run Summarise < notes.txt   # one-shot, prints the output
  promptit trigger Rephrase "text"     # hand text to the panel
  promptit list                        # show the promptlet library`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.config/promptit/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations["bare"] == "true" {
		return nil
	}

	path := cfgFile
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	opts := logging.Options{Level: level, Console: true}
	if cmd.Annotations[panelAnnotation] == "true" {
		opts = logging.Options{Level: level, File: filepath.Join(filepath.Dir(cfg.StoragePath), "promptit.log")}
	}
	log, err := logging.New(opts)
	if err != nil {
		return err
	}

	db, err := storage.OpenSQLite(cfg.StoragePath)
	if err != nil {
		return err
	}

	store := promptlet.NewStore(db, log.Named("store"), cfg.Model)
	creds := executor.StoredCredential{KV: db, Override: cfg.APIKey}
	app = &env{
		cfg:        cfg,
		cfgPath:    path,
		configured: fileExists(path),
		log:        log,
		db:         db,
		store:      store,
		creds:      creds,
		exec:       executor.New(cfg, creds, log.Named("executor")),
		mailbox:    dispatch.NewMailbox(db, cfg.HandoffWindow, log.Named("mailbox")),
		menu:       menu.New(store, log.Named("menu")),
	}
	log.Debug("ready", zap.String("config", path), zap.String("storage", cfg.StoragePath))
	return nil
}

// teardown closes what setup opened. main calls it so it also runs when a
// command fails.
func teardown() {
	if app == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.log.Warn("close storage", zap.Error(err))
	}
	_ = app.log.Sync()
	app = nil
}

// report prints err for the user. Validation and lookup errors need no
// stack of context, so they are shown as is.
func report(err error) error {
	if err == nil {
		return nil
	}
	var verr *promptlet.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("invalid %s: %s", verr.Field, verr.Reason)
	case errors.Is(err, executor.ErrMissingCredential):
		return fmt.Errorf("%w: set one with `promptit key set`", err)
	}
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
