package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/session"
)

// NewGroupCmd creates the 'group' command and its subcommands.
func NewGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage the current group and saved group snapshots",
		Long: `A group is a set of measurements pinned for comparison. Each tool has
its own current group. Saving a group stores a named snapshot that can be
restored later.`,
		Example: `  afm-viewer group add "#240506#RCP_A#LOT123_101530#3_top#.csv"
  afm-viewer group save --name "Lot 123 top"
  afm-viewer group snapshots
  afm-viewer group restore <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runGroupList)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the current group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runGroupList)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <filename>...",
		Short: "Add catalog measurements to the current group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return runGroupAdd(ctx, app, args)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <filename>...",
		Aliases: []string{"rm"},
		Short:   "Remove measurements from the current group",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				for _, f := range args {
					if !app.Session.IsInGroup(f) {
						fmt.Fprintf(app.Out, "  %s is not in the group\n", f)
						continue
					}
					app.Session.RemoveFromGroup(f)
					fmt.Fprintf(app.Out, "✓ Removed %s\n", f)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the current group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				app.Session.ClearGroup()
				fmt.Fprintf(app.Out, "✓ Cleared %s group\n", app.Tool())
				return nil
			})
		},
	})

	cmd.AddCommand(newGroupSaveCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "snapshots",
		Short: "List saved group snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runGroupSnapshots)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the current group with a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				if !app.Session.LoadGroupFromHistory(args[0]) {
					return fmt.Errorf("no group snapshot with id %s", args[0])
				}
				fmt.Fprintf(app.Out, "✓ Restored %d measurements\n", len(app.Session.GroupedData()))
				return nil
			})
		},
	})

	cmd.AddCommand(newGroupDropCmd())

	return cmd
}

func runGroupList(_ context.Context, app *App) error {
	items := app.Session.GroupedData()

	if app.JSON {
		return writeJSON(app.Out, items)
	}

	if len(items) == 0 {
		fmt.Fprintf(app.Out, "The %s group is empty.\n", app.Tool())
		fmt.Fprintln(app.Out, "Run 'afm-viewer group add <filename>' to pin measurements.")
		return nil
	}

	rows := make([][]any, len(items))
	for i, it := range items {
		r := it.Record
		rows[i] = []any{it.AddedAt.Local().Format("2006-01-02 15:04"), r.RecipeName, r.LotID, r.SlotNumber, r.Filename}
	}
	renderTable(app.Out, []string{"Added", "Recipe", "Lot", "Slot", "Filename"}, rows)
	return nil
}

func runGroupAdd(ctx context.Context, app *App, filenames []string) error {
	if err := app.loadCatalog(ctx); err != nil {
		return err
	}

	var missing []string
	for _, f := range filenames {
		rec, ok := app.findRecord(f)
		if !ok {
			missing = append(missing, f)
			continue
		}
		if app.Session.AddToGroup(rec) {
			fmt.Fprintf(app.Out, "✓ Added %s\n", f)
		} else {
			fmt.Fprintf(app.Out, "  %s is already in the group\n", f)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("not in the %s catalog: %v", app.Tool(), missing)
	}
	return nil
}

func newGroupSaveCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current group as a named snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				snap, ok := app.Session.SaveCurrentGroupAsHistory(name, description)
				if !ok {
					return fmt.Errorf("the %s group is empty", app.Tool())
				}
				app.Tracker.Track(activity.NewGroupEvent(app.Tool(), snap.Name, snap.ItemCount))

				if app.JSON {
					return writeJSON(app.Out, snap)
				}
				fmt.Fprintf(app.Out, "✓ Saved %q (%d measurements) as %s\n", snap.Name, snap.ItemCount, snap.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Snapshot name (default: Group <date>)")
	cmd.Flags().StringVar(&description, "description", "", "Snapshot description")

	return cmd
}

func runGroupSnapshots(_ context.Context, app *App) error {
	snaps := app.Session.GroupHistory()

	if app.JSON {
		return writeJSON(app.Out, snaps)
	}

	if len(snaps) == 0 {
		fmt.Fprintf(app.Out, "No saved groups for %s.\n", app.Tool())
		return nil
	}

	rows := make([][]any, len(snaps))
	for i, s := range snaps {
		rows[i] = []any{s.ID, s.Name, s.ItemCount, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Description}
	}
	renderTable(app.Out, []string{"ID", "Name", "Items", "Created", "Description"}, rows)
	return nil
}

func newGroupDropCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "drop [id]",
		Short: "Delete a saved group snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				if all {
					app.Session.ClearGroupHistory()
					fmt.Fprintf(app.Out, "✓ Deleted all %s group snapshots\n", app.Tool())
					return nil
				}
				if len(args) == 0 {
					return fmt.Errorf("snapshot id required (or --all)")
				}

				id := args[0]
				if !slices.ContainsFunc(app.Session.GroupHistory(), func(s session.GroupSnapshot) bool { return s.ID == id }) {
					return fmt.Errorf("no group snapshot with id %s", id)
				}
				app.Session.RemoveFromGroupHistory(id)
				fmt.Fprintf(app.Out, "✓ Deleted snapshot %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every snapshot of the selected tool")

	return cmd
}
