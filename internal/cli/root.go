/*
Package cli implements the afm-viewer command line.

Every command that touches the catalog or the session builds an App from
the layered configuration (defaults, ~/.afm-viewer.yaml, AFM_VIEWER_*
environment variables, flags) and closes it when done, so session state
and activity are flushed to the SQLite database before the process exits.
*/
package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/version"
)

// NewRootCmd creates the afm-viewer root command with every subcommand
// attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "afm-viewer",
		Short: "Browse AFM measurement catalogs from the terminal",
		Long: `afm-viewer searches and inspects AFM (atomic force microscope)
measurement catalogs served by an AFM data service.

The catalog of the selected tool is loaded once and searched locally, so
typing a query never waits on the network. Viewed measurements, the
current group and saved group snapshots are kept per tool in a local
SQLite database.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ~/.afm-viewer.yaml)")
	pf.String("api-url", "", "base URL of the AFM data service")
	pf.Duration("timeout", 0, "HTTP request timeout")
	pf.String("tool", "", "AFM tool whose catalog is used (MAP608, MAPC01)")
	pf.String("db", "", `session database path, or "memory"`)
	pf.String("export-dir", "", "directory CSV exports are written to")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.BoolP("json", "j", false, "Output as JSON")

	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewBrowseCmd())
	rootCmd.AddCommand(NewDetailCmd())
	rootCmd.AddCommand(NewProfileCmd())
	rootCmd.AddCommand(NewWaferCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewGroupCmd())
	rootCmd.AddCommand(NewToolsCmd())
	rootCmd.AddCommand(NewActivityCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
