package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sant0-9/promptit/internal/config"
	"github.com/sant0-9/promptit/internal/executor"
	"github.com/sant0-9/promptit/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models for the configured provider",
	Long: `Models asks OpenAI for the models the key can use. Other providers list
the models PromptIt knows work with them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var models []string

		if app.cfg.Provider == "openai" || app.cfg.Provider == "" {
			key, err := app.creds.APIKey(ctx)
			if err != nil {
				return err
			}
			if key == "" {
				return report(executor.ErrMissingCredential)
			}
			models, err = llm.NewOpenAIProvider(key, app.cfg.Model, app.cfg.BaseURL).Models(ctx)
			if err != nil {
				return err
			}
		} else if info := config.GetProvider(app.cfg.Provider); info != nil {
			models = info.Models
		}

		if ok, err := structured(cmd.OutOrStdout(), models); ok || err != nil {
			return err
		}
		for _, m := range models {
			marker := "  "
			if m == app.cfg.Model {
				marker = "* "
			}
			fmt.Fprintln(cmd.OutOrStdout(), marker+m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
