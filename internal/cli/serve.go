package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/config"
	"github.com/khanglvm/afm-viewer/internal/fixture"
)

type serveOptions struct {
	dir      string
	port     int
	watch    bool
	generate int
	seed     uint64
}

// NewServeCmd creates the 'serve' command, which runs a local catalog
// service over fixture files.
func NewServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local AFM catalog service from fixture files",
		Long: `Serve the AFM catalog API from a directory of JSON fixtures:

  <dir>/<TOOL>/catalog.json
  <dir>/<TOOL>/detail/<filename>.json
  <dir>/<TOOL>/profile/<filename>_<point>.json
  <dir>/<TOOL>/tiff/<filename>_<point>.png

With --generate, dummy measurements are written for every known tool
before the service starts. With --watch, catalog files are reloaded when
they change.`,
		Example: `  # Generate 200 measurements per tool and serve them
  afm-viewer serve --dir ./afm-data --generate 200

  # Point the viewer at it
  afm-viewer search --api-url http://localhost:5000/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "afm-data", "Fixture directory")
	cmd.Flags().IntVarP(&opts.port, "port", "p", fixture.DefaultPort, "Port to listen on")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Reload catalogs when fixture files change")
	cmd.Flags().IntVar(&opts.generate, "generate", 0, "Generate n dummy measurements per tool first")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Seed for --generate")

	return cmd
}

// runServe starts the fixture server with signal handling. It shuts down
// gracefully on SIGINT/SIGTERM.
func runServe(cmd *cobra.Command, opts serveOptions) error {
	level := slog.LevelInfo
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		l, err := config.ParseLevel(s)
		if err != nil {
			return err
		}
		level = l
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if opts.generate > 0 {
		for _, t := range catalog.Tools() {
			records, err := fixture.Generate(opts.dir, t.ID, opts.generate, opts.seed)
			if err != nil {
				return fmt.Errorf("failed to generate %s fixtures: %w", t.ID, err)
			}
			logger.Info("generated fixtures", "tool", t.ID, "records", len(records), "dir", opts.dir)
		}
	}

	if _, err := os.Stat(opts.dir); err != nil {
		return fmt.Errorf("fixture directory unavailable: %w (use --generate to create one)", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := fixture.NewServer(fixture.Config{
		Dir:    opts.dir,
		Port:   opts.port,
		Watch:  opts.watch,
		Logger: logger,
	})
	return srv.Serve(ctx)
}
