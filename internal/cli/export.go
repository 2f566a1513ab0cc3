package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/export"
)

// NewExportCmd creates the 'export' command and its subcommands.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export measurements as CSV",
		Long: `Write CSV files into the export directory (--export-dir, export.dir).

  file    every dataset of one measurement, one CSV per dataset
  search  the records matching a query
  group   the records of the current group`,
	}

	cmd.AddCommand(newExportFileCmd())
	cmd.AddCommand(newExportSearchCmd())
	cmd.AddCommand(newExportGroupCmd())

	return cmd
}

func newExportFileCmd() *cobra.Command {
	var point string

	cmd := &cobra.Command{
		Use:   "file <filename>",
		Short: "Export the info, summary, data and profile of one measurement",
		Example: `  afm-viewer export file "#240506#RCP_A#LOT123_101530#3_top#.csv"
  afm-viewer export file "#240506#RCP_A#LOT123_101530#3_top#.csv" --point 3_C`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return runExportFile(ctx, app, args[0], point, time.Now())
			})
		},
	}

	cmd.Flags().StringVarP(&point, "point", "p", "", "Also export the profile of this point")

	return cmd
}

func runExportFile(ctx context.Context, app *App, filename, point string, now time.Time) error {
	b, err := export.FetchBundle(ctx, app.Client, filename, app.Tool(), point, nil)
	if err != nil {
		return err
	}

	paths, err := b.Write(app.Config.Export.Dir, now)
	for _, p := range paths {
		app.Tracker.Track(activity.NewExportEvent(app.Tool(), p))
	}
	if err != nil {
		return err
	}

	return reportExport(app, paths)
}

func newExportSearchCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Export the records matching a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.loadCatalog(ctx); err != nil {
					return err
				}
				results := app.Searcher.Search(query)
				if name == "" {
					name = listingName(app.Tool(), "search", time.Now())
				}
				return writeListing(app, name, results)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "output", "o", "", "File name (default AFM_<tool>_search_<date>.csv)")

	return cmd
}

func newExportGroupCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Export the records of the current group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				items := app.Session.GroupedData()
				if len(items) == 0 {
					return fmt.Errorf("the %s group is empty", app.Tool())
				}
				records := make([]catalog.MeasurementRecord, len(items))
				for i, it := range items {
					records[i] = it.Record
				}
				if name == "" {
					name = listingName(app.Tool(), "group", time.Now())
				}
				return writeListing(app, name, records)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "output", "o", "", "File name (default AFM_<tool>_group_<date>.csv)")

	return cmd
}

func listingName(tool, kind string, now time.Time) string {
	return "AFM_" + tool + "_" + kind + "_" + now.Format("20060102")
}

// writeListing writes records in the default column order.
func writeListing(app *App, name string, records []catalog.MeasurementRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("nothing to export")
	}

	rows, headers := export.FormatRecords(records, nil)
	path, err := export.WriteFile(app.Config.Export.Dir, name, export.ToCSV(rows, headers))
	if err != nil {
		return err
	}
	app.Tracker.Track(activity.NewExportEvent(app.Tool(), path))

	return reportExport(app, []string{path})
}

func reportExport(app *App, paths []string) error {
	if app.JSON {
		return writeJSON(app.Out, map[string]any{"files": paths})
	}
	fmt.Fprintf(app.Out, "Exported %d file(s):\n  %s\n", len(paths), strings.Join(paths, "\n  "))
	return nil
}
