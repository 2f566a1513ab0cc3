package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the 'history' command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently viewed measurements of the selected tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runHistory)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the view history of the selected tool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				app.Session.ClearHistory()
				fmt.Fprintf(app.Out, "✓ Cleared %s view history\n", app.Tool())
				return nil
			})
		},
	})

	return cmd
}

func runHistory(_ context.Context, app *App) error {
	entries := app.Session.ViewHistory()

	if app.JSON {
		return writeJSON(app.Out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(app.Out, "No viewed measurements for %s.\n", app.Tool())
		return nil
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		r := e.Record
		rows[i] = []any{e.ViewedAt.Local().Format("2006-01-02 15:04"), r.RecipeName, r.LotID, r.SlotNumber, r.Filename}
	}
	renderTable(app.Out, []string{"Viewed", "Recipe", "Lot", "Slot", "Filename"}, rows)
	return nil
}
