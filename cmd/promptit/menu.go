package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Print the menu: one id and label per active promptlet",
	Long: `Menu prints the entries a launcher would show. Feed an id back to
promptit trigger to run it, for example from a dmenu or rofi script:

  promptit trigger "$(promptit menu | rofi -dmenu | cut -f1)" "$(xclip -o)"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.menu.Rebuild(cmd.Context()); err != nil {
			return err
		}
		items := app.menu.Items()
		if ok, err := structured(cmd.OutOrStdout(), items); ok || err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, item := range items {
			if item.Separator {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", item.ID, item.Label)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
}
