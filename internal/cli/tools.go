package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/session"
)

// NewToolsCmd creates the 'tools' command.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List AFM tools and show the selected one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runTools)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "use <tool>",
		Short: "Select the tool whose catalog, history and groups are used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, app *App) error {
				t, ok := catalog.LookupTool(args[0])
				if !ok {
					return fmt.Errorf("unknown tool %q (run 'afm-viewer tools' to list them)", args[0])
				}
				app.Session.SetSelectedTool(t.ID)
				fmt.Fprintf(app.Out, "✓ Selected %s (%s)\n", t.ID, t.Description)
				return nil
			})
		},
	})

	return cmd
}

func runTools(_ context.Context, app *App) error {
	selected := app.Tool()
	tools := catalog.Tools()

	saved := []string{}
	if app.DB != nil {
		var err error
		if saved, err = session.SavedTools(app.DB); err != nil {
			return err
		}
	}

	if app.JSON {
		return writeJSON(app.Out, map[string]any{"selected": selected, "tools": tools, "saved": saved})
	}

	rows := make([][]any, len(tools))
	for i, t := range tools {
		mark := ""
		if t.ID == selected {
			mark = "*"
		}
		hasSaved := ""
		if slices.Contains(saved, t.ID) {
			hasSaved = "yes"
		}
		rows[i] = []any{mark, t.ID, t.Description, hasSaved}
	}
	renderTable(app.Out, []string{"", "Tool", "Description", "Saved"}, rows)
	return nil
}
