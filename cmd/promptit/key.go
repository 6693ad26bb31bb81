package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/llm"
)

var keyNoCheck bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key (prompted for when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			k, err := readKey(cmd)
			if err != nil {
				return err
			}
			key = k
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("empty key; use `promptit key clear` to remove it")
		}

		if !keyNoCheck {
			if err := checkKey(ctx, key); err != nil {
				return fmt.Errorf("key not saved: %w", err)
			}
		}
		if err := executor.SaveAPIKey(ctx, app.db, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s key %s\n", app.cfg.Provider, executor.MaskKey(key))
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active key, masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := app.creds.APIKey(cmd.Context())
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no key set")
			return nil
		}
		source := "storage"
		if app.creds.Override != "" {
			source = "config or PROMPTIT_API_KEY"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (from %s)\n", executor.MaskKey(key), source)
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executor.SaveAPIKey(cmd.Context(), app.db, "")
	},
}

var keyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the active key against the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := app.creds.APIKey(cmd.Context())
		if err != nil {
			return err
		}
		if key == "" && llm.NeedsAPIKey(app.cfg.Provider) {
			return report(executor.ErrMissingCredential)
		}
		if err := checkKey(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s accepted the key\n", app.cfg.Provider)
		return nil
	},
}

func readKey(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	return line, nil
}

func checkKey(ctx context.Context, key string) error {
	provider, err := llm.NewProvider(app.cfg, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return provider.Ping(ctx)
}

func init() {
	keySetCmd.Flags().BoolVar(&keyNoCheck, "no-check", false, "save without contacting the provider")
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyClearCmd, keyTestCmd)
	rootCmd.AddCommand(keyCmd)
}
