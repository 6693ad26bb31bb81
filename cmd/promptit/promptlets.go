package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sant0-9/promptit/internal/promptlet"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List promptlets in menu order",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := app.store.List(cmd.Context())
		if err != nil {
			return err
		}
		if !listAll {
			shown := all[:0:0]
			for _, p := range all {
				if p.IsActive {
					shown = append(shown, p)
				}
			}
			all = shown
		}
		if ok, err := structured(cmd.OutOrStdout(), all); ok || err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNAME\tMODEL\tKIND\tACTIVE")
		for _, p := range all {
			kind := "custom"
			if p.IsDefault {
				kind = "bundled"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\n", p.Index(), p.Label(), p.Model, kind, p.IsActive)
		}
		return tw.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <promptlet>",
	Short: "Show a promptlet's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.store.Get(cmd.Context(), args[0])
		if err != nil {
			return report(err)
		}
		if ok, err := structured(cmd.OutOrStdout(), p); ok || err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n\n", p.Label())
		if p.Description != "" {
			fmt.Fprintf(w, "%s\n\n", p.Description)
		}
		fmt.Fprintf(w, "model:        %s\n", p.Model)
		fmt.Fprintf(w, "temperature:  %g\n", p.Temperature)
		fmt.Fprintf(w, "max tokens:   %d\n", p.MaxTokens)
		fmt.Fprintf(w, "top p:        %g\n", p.TopP)
		fmt.Fprintf(w, "penalties:    frequency %g, presence %g\n", p.FrequencyPenalty, p.PresencePenalty)
		fmt.Fprintf(w, "output:       %s\n", strings.Join(p.OutputStructure, ", "))
		fmt.Fprintf(w, "active:       %v\n\n", p.IsActive)
		fmt.Fprintln(w, p.Prompt)
		return nil
	},
}

// promptletFlags holds the editable fields of a promptlet.
type promptletFlags struct {
	name             string
	emoji            string
	prompt           string
	promptFile       string
	description      string
	model            string
	temperature      float64
	maxTokens        int
	topP             float64
	frequencyPenalty float64
	presencePenalty  float64
}

func (f *promptletFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "promptlet name")
	fs.StringVar(&f.emoji, "emoji", "", "menu emoji")
	fs.StringVar(&f.prompt, "prompt", "", "instruction text placed before the input")
	fs.StringVar(&f.promptFile, "prompt-file", "", "read the prompt from a file")
	fs.StringVar(&f.description, "description", "", "menu tooltip")
	fs.StringVar(&f.model, "model", "", "model name")
	fs.Float64Var(&f.temperature, "temperature", promptlet.DefaultTemperature, "sampling temperature")
	fs.IntVar(&f.maxTokens, "max-tokens", promptlet.DefaultMaxTokens, "maximum output tokens")
	fs.Float64Var(&f.topP, "top-p", promptlet.DefaultTopP, "nucleus sampling")
	fs.Float64Var(&f.frequencyPenalty, "frequency-penalty", 0, "frequency penalty")
	fs.Float64Var(&f.presencePenalty, "presence-penalty", 0, "presence penalty")
}

// apply copies the flags set on the command line onto p.
func (f *promptletFlags) apply(fs *pflag.FlagSet, p *promptlet.Promptlet) error {
	if fs.Changed("prompt-file") {
		data, err := os.ReadFile(f.promptFile)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		f.prompt = strings.TrimSpace(string(data))
		if err := fs.Set("prompt", f.prompt); err != nil {
			return err
		}
	}
	set := map[string]func(){
		"name":              func() { p.Name = f.name },
		"emoji":             func() { p.Emoji = f.emoji },
		"prompt":            func() { p.Prompt = f.prompt },
		"description":       func() { p.Description = f.description },
		"model":             func() { p.Model = f.model },
		"temperature":       func() { p.Temperature = f.temperature },
		"max-tokens":        func() { p.MaxTokens = f.maxTokens },
		"top-p":             func() { p.TopP = f.topP },
		"frequency-penalty": func() { p.FrequencyPenalty = f.frequencyPenalty },
		"presence-penalty":  func() { p.PresencePenalty = f.presencePenalty },
	}
	for name, fn := range set {
		if fs.Changed(name) {
			fn()
		}
	}
	return nil
}

var addFlags promptletFlags

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a custom promptlet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := promptlet.Promptlet{
			Temperature: promptlet.DefaultTemperature,
			MaxTokens:   promptlet.DefaultMaxTokens,
			TopP:        promptlet.DefaultTopP,
		}
		if err := addFlags.apply(cmd.Flags(), &p); err != nil {
			return err
		}
		if len(args) == 1 {
			p.Name = args[0]
		}
		saved, err := app.store.Upsert(cmd.Context(), p, "")
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", saved.Label())
		return nil
	},
}

var editFlags promptletFlags

var editCmd = &cobra.Command{
	Use:   "edit <promptlet>",
	Short: "Change a custom promptlet",
	Long:  "Edit changes only the fields given as flags. Bundled promptlets cannot be edited; clone them first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := app.store.Get(ctx, args[0])
		if err != nil {
			return report(err)
		}
		original := p.Name
		if err := editFlags.apply(cmd.Flags(), &p); err != nil {
			return err
		}
		saved, err := app.store.Upsert(ctx, p, original)
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved.Label())
		return nil
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <promptlet>",
	Short: "Copy a promptlet into a new custom one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := app.store.Clone(cmd.Context(), args[0])
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", c.Label())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <promptlet>",
	Aliases: []string{"rm"},
	Short:   "Delete a custom promptlet",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.store.Delete(cmd.Context(), args[0]); err != nil {
			return report(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func activeCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <promptlet>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(app.store.SetActive(cmd.Context(), args[0], active))
		},
	}
}

var moveCmd = &cobra.Command{
	Use:   "move <promptlet> <position>",
	Short: "Move a promptlet within its group (bundled or custom)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("position must be a number: %w", err)
		}
		return report(app.store.Move(cmd.Context(), args[0], to))
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the bundled promptlets; custom ones are kept",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.store.ResetDefaults(cmd.Context())
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d bundled promptlets\n", len(defaults))
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include hidden promptlets")
	addFlags.register(addCmd.Flags())
	editFlags.register(editCmd.Flags())

	rootCmd.AddCommand(
		listCmd,
		showCmd,
		addCmd,
		editCmd,
		cloneCmd,
		deleteCmd,
		activeCmd("enable", "Show a promptlet in the menu", true),
		activeCmd("disable", "Hide a promptlet from the menu", false),
		moveCmd,
		resetCmd,
	)
}
