package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/export"
	"github.com/khanglvm/afm-viewer/internal/session"
)

// NewDetailCmd creates the 'detail' command.
func NewDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <filename>",
		Short: "Show one measurement",
		Long: `Fetch the measurement information, summary statistics and available
points of a file. Measurements found in the catalog are added to the
view history.`,
		Example: `  afm-viewer detail "#240506#RCP_A#LOT123_101530#3_top#.csv"
  afm-viewer detail "#240506#RCP_A#LOT123_101530#3_top#.csv" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return runDetail(ctx, app, args[0])
			})
		},
	}
}

func runDetail(ctx context.Context, app *App, filename string) error {
	var route string
	if err := app.loadCatalog(ctx); err != nil {
		app.Logger.Warn("catalog unavailable, history not updated", "error", err)
	} else if rec, ok := app.findRecord(filename); ok {
		if r, err := catalog.NewResultRoute(rec); err == nil {
			route = r.Path()
		}
		app.Session.AddToHistory(rec)
		app.Tracker.Track(activity.NewViewEvent(app.Tool(), filename))
	}

	d, err := app.Client.Detail(ctx, filename, app.Tool())
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", filename, err)
	}

	if app.JSON {
		return writeJSON(app.Out, map[string]any{
			"route":  route,
			"detail": d,
		})
	}

	fmt.Fprintf(app.Out, "%s (%s)\n", d.Filename, d.Tool)
	if route != "" {
		fmt.Fprintf(app.Out, "Route: %s\n", route)
	}

	fmt.Fprintln(app.Out, "\nInformation")
	keys := export.Headers(export.Row(d.Information))
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k, export.Stringify(d.Information[k])}
	}
	renderTable(app.Out, []string{"Field", "Value"}, rows)

	fmt.Fprintln(app.Out, "\nSummary")
	renderMapRows(app.Out, d.Summary)

	if len(d.AvailablePoints) > 0 {
		fmt.Fprintf(app.Out, "\nPoints: %v\n", d.AvailablePoints)
	}
	return nil
}

// NewProfileCmd creates the 'profile' command.
func NewProfileCmd() *cobra.Command {
	var (
		site      catalog.SiteInfo
		showImage bool
	)

	cmd := &cobra.Command{
		Use:   "profile <filename> <point>",
		Short: "Show the surface profile of a measurement point",
		Example: `  afm-viewer profile "#240506#RCP_A#LOT123_101530#3_top#.csv" 1_UL
  afm-viewer profile "#240506#RCP_A#LOT123_101530#3_top#.csv" 3_C --image`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				var sel session.Selection
				var s *catalog.SiteInfo
				if site != (catalog.SiteInfo{}) {
					s = &site
				}
				sel.SelectPoint(args[0], args[1], s)
				return runProfile(ctx, app, &sel, showImage)
			})
		},
	}

	cmd.Flags().StringVar(&site.SiteID, "site-id", "", "Site id of the point")
	cmd.Flags().StringVar(&site.SiteX, "site-x", "", "Site x coordinate")
	cmd.Flags().StringVar(&site.SiteY, "site-y", "", "Site y coordinate")
	cmd.Flags().StringVar(&site.PointNo, "point-no", "", "Point number within the site")
	cmd.Flags().BoolVar(&showImage, "image", false, "Show the profile image location instead of samples")

	return cmd
}

// runProfile prints the profile of the selected point.
func runProfile(ctx context.Context, app *App, sel *session.Selection, showImage bool) error {
	p, ok := sel.Current()
	if !ok {
		return fmt.Errorf("no point selected")
	}

	if showImage {
		img, err := app.Client.ProfileImage(ctx, p.Filename, p.Point, app.Tool(), p.Site)
		if err != nil {
			return fmt.Errorf("failed to fetch image of point %s: %w", p.Point, err)
		}
		imageURL := app.Client.ProfileImageURL(p.Filename, p.Point, app.Tool(), p.Site)
		if app.JSON {
			return writeJSON(app.Out, map[string]any{"image": img, "url": imageURL})
		}
		fmt.Fprintf(app.Out, "Image: %s\nURL:   %s\n", img.Filename, imageURL)
		return nil
	}

	points, err := app.Client.Profile(ctx, p.Filename, p.Point, app.Tool(), p.Site)
	if err != nil {
		return fmt.Errorf("failed to fetch profile of point %s: %w", p.Point, err)
	}

	if app.JSON {
		return writeJSON(app.Out, map[string]any{"selection": p, "profile": points})
	}

	fmt.Fprintf(app.Out, "%s point %s\n\n", p.Filename, p.Point)
	rows := make([][]any, len(points))
	for i, r := range export.FormatProfileData(points) {
		rows[i] = []any{r["x"], r["y"], r["z"]}
	}
	renderTable(app.Out, export.ProfileHeaders, rows)
	return nil
}

// NewWaferCmd creates the 'wafer' command.
func NewWaferCmd() *cobra.Command {
	var selectPoint string

	cmd := &cobra.Command{
		Use:   "wafer <filename>",
		Short: "Show the wafer map of a measurement",
		Long: `Show the mean value of every measured point laid out on the wafer.
With --select, the profile of that point is shown as well.`,
		Example: `  afm-viewer wafer "#240506#RCP_A#LOT123_101530#3_top#.csv"
  afm-viewer wafer "#240506#RCP_A#LOT123_101530#3_top#.csv" --select 3_C`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return runWafer(ctx, app, args[0], selectPoint)
			})
		},
	}

	cmd.Flags().StringVarP(&selectPoint, "select", "s", "", "Point to show the profile of")

	return cmd
}

func runWafer(ctx context.Context, app *App, filename, selectPoint string) error {
	points, err := app.Client.Wafer(ctx, filename, app.Tool())
	if err != nil {
		return fmt.Errorf("failed to build wafer map of %s: %w", filename, err)
	}

	if selectPoint != "" {
		i := slices.IndexFunc(points, func(p catalog.WaferPoint) bool { return p.Point == selectPoint })
		if i < 0 {
			return fmt.Errorf("point %s is not on the wafer map of %s", selectPoint, filename)
		}
		var sel session.Selection
		sel.SelectWaferPoint(filename, points[i])
		return runProfile(ctx, app, &sel, false)
	}

	if app.JSON {
		return writeJSON(app.Out, points)
	}

	rows := make([][]any, len(points))
	for i, p := range points {
		value := "-"
		if p.HasValue {
			value = strconv.FormatFloat(p.Value, 'f', 3, 64)
		}
		rows[i] = []any{p.Point, p.Position, p.X, p.Y, value}
	}
	renderTable(app.Out, []string{"Point", "Position", "X", "Y", "Mean"}, rows)
	return nil
}
