package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// defaultRetention is how long activity is kept by 'activity cleanup'.
const defaultRetention = 90 * 24 * time.Hour

// NewActivityCmd creates the 'activity' command.
func NewActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent searches, views, saved groups and exports",
		Long: `Show the activity log kept in the session database. Search queries are
stored as SHA256 hashes only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				return runActivity(app, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show (0 for all)")

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				if app.DB == nil {
					fmt.Fprintln(app.Out, "Activity log unavailable: session database is not in use.")
					return nil
				}
				if err := app.DB.Cleanup(olderThan); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "✓ Removed activity older than %s\n", olderThan)
				return nil
			})
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", defaultRetention, "Retention period")
	cmd.AddCommand(cleanup)

	return cmd
}

func runActivity(app *App, limit int) error {
	if app.DB == nil {
		fmt.Fprintln(app.Out, "Activity log unavailable: session database is not in use.")
		return nil
	}

	events, err := app.DB.RecentActivity(limit)
	if err != nil {
		return err
	}

	if app.JSON {
		return writeJSON(app.Out, events)
	}

	if len(events) == 0 {
		fmt.Fprintln(app.Out, "No activity recorded yet.")
		return nil
	}

	rows := make([][]any, len(events))
	for i, e := range events {
		subject := e.Subject
		if subject == "" && e.QueryHash != "" {
			subject = "query " + e.QueryHash[:12]
		}
		rows[i] = []any{e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Tool, subject, e.ResultsCount}
	}
	renderTable(app.Out, []string{"Time", "Kind", "Tool", "Subject", "Count"}, rows)
	return nil
}
