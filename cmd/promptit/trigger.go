package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sant0-9/promptit/internal/dispatch"
	"github.com/sant0-9/promptit/internal/promptlet"
)

var triggerDetach bool

var triggerCmd = &cobra.Command{
	Use:   "trigger <promptlet|menu-id> [text...]",
	Short: "Hand text to the panel and run a promptlet on it",
	Long: `Trigger is what a menu action does: it resolves the promptlet, opens
the panel and hands it the text. With --detach the panel is not opened;
the hand-off stays in storage and a panel already running in another
terminal picks it up.

The menu id manage_promptlets opens the management screen.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{panelAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var text string
		if args[0] != promptlet.ManageID {
			t, err := inputText(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			text = t
		}

		if triggerDetach {
			d := dispatch.New(app.store, app.mailbox, detachedOpener{log: app.log}, app.log.Named("dispatch"))
			h, err := d.Trigger(ctx, args[0], text)
			if err != nil {
				return report(err)
			}
			if h != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%s)\n", h.Promptlet, h.ID)
			}
			return nil
		}

		opener := newPanelOpener(ctx)
		d := dispatch.New(app.store, app.mailbox, opener, app.log.Named("dispatch"))
		if _, err := d.Trigger(ctx, args[0], text); err != nil {
			if werr := opener.wait(); werr != nil {
				return werr
			}
			return report(err)
		}
		return opener.wait()
	},
}

func init() {
	triggerCmd.Flags().BoolVar(&triggerDetach, "detach", false, "leave the hand-off for a panel running elsewhere")
	rootCmd.AddCommand(triggerCmd)
}
