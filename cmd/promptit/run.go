package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sant0-9/promptit/internal/llm"
	"github.com/sant0-9/promptit/internal/surface"
)

var runThen []string

type runStep struct {
	Promptlet string            `json:"promptlet" yaml:"promptlet"`
	Model     string            `json:"model" yaml:"model"`
	Output    string            `json:"output" yaml:"output"`
	Sections  []surface.Section `json:"sections" yaml:"sections"`
	Usage     *llm.Usage        `json:"usage,omitempty" yaml:"usage,omitempty"`
	ElapsedMS int64             `json:"elapsedMs" yaml:"elapsedMs"`
}

var runCmd = &cobra.Command{
	Use:   "run <promptlet> [text...]",
	Short: "Run a promptlet and print its output",
	Long: `Run sends the promptlet's prompt followed by the text to the configured
provider and prints the output. Without text arguments the text is read
from stdin. --then chains further promptlets, each receiving the previous
output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := inputText(cmd.InOrStdin(), args[1:])
		if err != nil {
			return err
		}

		refs := append([]string{args[0]}, runThen...)
		surf := surface.New(app.cfg.MaxChainDepth)
		var steps []runStep

		for i, ref := range refs {
			p, err := app.store.Get(ctx, ref)
			if err != nil {
				return report(err)
			}

			var id uint64
			input := text
			if i == 0 {
				id = surf.Begin(p, text)
			} else if id, input, err = surf.Chain(p, ""); err != nil {
				return err
			}

			res, err := app.exec.Execute(ctx, p, input)
			surf.Finish(id, res, err)
			if err != nil {
				return report(fmt.Errorf("%s: %w", p.Name, err))
			}
			steps = append(steps, runStep{
				Promptlet: p.Name,
				Model:     res.Model,
				Output:    res.Text,
				Sections:  surface.Sections(res.Text),
				Usage:     res.Usage,
				ElapsedMS: res.Elapsed.Milliseconds(),
			})
		}

		if ok, err := structured(cmd.OutOrStdout(), steps); ok || err != nil {
			return err
		}
		last := steps[len(steps)-1]
		fmt.Fprintln(cmd.OutOrStdout(), last.Output)
		if last.Usage != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), last.Usage.String())
		}
		return nil
	},
}

// inputText joins args, or reads all of r when there are none.
func inputText(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := r.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no text given: pass it as arguments or pipe it on stdin")
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}

func init() {
	runCmd.Flags().StringSliceVar(&runThen, "then", nil, "promptlets to chain on the output, in order")
	rootCmd.AddCommand(runCmd)
}
