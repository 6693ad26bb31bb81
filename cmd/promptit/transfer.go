package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export custom promptlets as JSON",
	Long:  "Export writes the custom promptlets to file, or to stdout when no file or - is given. Bundled promptlets are not exported; reset restores them.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var w io.Writer = cmd.OutOrStdout()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		n, err := app.store.Export(cmd.Context(), w)
		if err != nil {
			return err
		}
		app.log.Info("exported promptlets", zap.Int("count", n))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import promptlets from an export file",
	Long: `Import adds the promptlets in file (or stdin for -) as custom
promptlets. Names that already exist get " (Copy)" appended. If any entry
is invalid nothing is imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		rep, err := app.store.Import(cmd.Context(), r)
		if err != nil {
			return report(err)
		}
		if ok, err := structured(cmd.OutOrStdout(), rep); ok || err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "imported %d promptlets\n", len(rep.Imported))
		for _, c := range rep.Conflicts {
			fmt.Fprintf(w, "  %q already existed, imported as %q\n", c.Name, c.Renamed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
