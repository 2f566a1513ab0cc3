package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/search"
)

// NewSearchCmd creates the 'search' command.
func NewSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the selected tool's catalog",
		Long: `Load the selected tool's catalog and filter it locally.

The query matches case-insensitively against lot id, recipe name, date,
slot number and measured info. Queries shorter than two characters return
the whole catalog, newest first.`,
		Example: `  afm-viewer search LOT123
  afm-viewer search "2024-05" --limit 20
  afm-viewer search --tool MAPC01 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return runSearch(ctx, app, query, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n results (0 for all)")

	return cmd
}

func runSearch(ctx context.Context, app *App, query string, limit int) error {
	if err := app.loadCatalog(ctx); err != nil {
		return err
	}

	ctrl := app.controller(nil)
	defer ctrl.Stop()

	results := ctrl.TriggerImmediate(query)
	if strings.TrimSpace(query) != "" {
		app.Tracker.Track(activity.NewSearchEvent(app.Tool(), query, len(results)))
	}

	total := len(results)
	if limit > 0 && limit < total {
		results = results[:limit]
	}

	if app.JSON {
		return writeJSON(app.Out, map[string]any{
			"tool":    app.Tool(),
			"query":   query,
			"total":   total,
			"results": results,
		})
	}

	if len(results) == 0 {
		if search.NormalizeQuery(query) != "" {
			fmt.Fprintf(app.Out, "No measurements match %q in %s.\n", query, app.Tool())
		} else {
			fmt.Fprintf(app.Out, "No measurements found in %s.\n", app.Tool())
		}
		return nil
	}

	fmt.Fprintf(app.Out, "%s: %d of %d measurements\n\n", app.Tool(), len(results), total)
	renderRecords(app.Out, results)
	return nil
}
