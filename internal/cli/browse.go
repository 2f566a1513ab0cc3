package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/tui"
)

// NewBrowseCmd creates the 'browse' command.
func NewBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "browse",
		Aliases: []string{"ui"},
		Short:   "Browse the catalog interactively",
		Long: `Open the interactive browser on the selected tool's catalog.

Type to search, enter to open a measurement, esc to move to the result
list. In the list: g adds or removes the measurement from the current
group, r reloads the catalog, tab switches tools and q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runBrowse)
		},
	}
}

func runBrowse(ctx context.Context, app *App) error {
	updates := tui.NewUpdates()
	ctrl := app.controller(tui.Forward(updates))
	defer ctrl.Stop()

	return tui.Run(tui.Config{
		Controller: ctrl,
		Searcher:   app.Searcher,
		Session:    app.Session,
		Tracker:    app.Tracker,
		Updates:    updates,
		Context:    ctx,
	})
}
