package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/config"
	"github.com/khanglvm/afm-viewer/internal/search"
	"github.com/khanglvm/afm-viewer/internal/session"
	"github.com/khanglvm/afm-viewer/internal/storage"
)

// App is everything a command needs, built from configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   *catalog.Client
	Searcher *search.Searcher
	Session  *session.Store
	Tracker  *activity.Tracker

	// DB is the SQLite store, nil when the session lives in memory or
	// the database could not be opened.
	DB *storage.SQLiteStorage

	Out  io.Writer
	JSON bool
}

// newApp loads configuration and wires the catalog client, the searcher,
// the session store and the activity tracker. The caller must Close it.
func newApp(cmd *cobra.Command) (*App, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.LoadFrom(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel()}))

	app := &App{
		Config: cfg,
		Logger: logger,
		Out:    cmd.OutOrStdout(),
		JSON:   jsonOutput,
	}

	var blobs storage.Blobstore = storage.NewMemoryStore()
	if cfg.Storage.Path != config.MemoryStorage {
		db := storage.NewStorage(cfg.Storage.Path, logger)
		if err := db.Init(); err != nil {
			logger.Warn("falling back to in-memory session", "error", err)
		}
		if db.Enabled() {
			app.DB = db
			blobs = db
		}
	}

	app.Session = session.Open(blobs, session.Options{
		HistoryLimit: cfg.Session.HistoryLimit,
		DefaultTool:  cfg.Tool,
		Logger:       logger,
	})

	// An explicit --tool switches the session like "tools use" does.
	if f := cmd.Flags().Lookup("tool"); f != nil && f.Changed {
		app.Session.SetSelectedTool(cfg.Tool)
	}

	if app.DB != nil {
		app.Tracker = activity.NewTracker(app.DB, logger)
	} else {
		app.Tracker = activity.NewTracker(nil, logger)
	}
	if !cfg.Activity.Enabled {
		app.Tracker.Disable()
	}

	app.Client = catalog.NewClient(cfg.API.BaseURL,
		catalog.WithTimeout(cfg.API.Timeout),
		catalog.WithLogger(logger),
	)
	app.Searcher = search.NewSearcher(catalog.NewLoader(app.Client, logger), cfg.Search.CacheSize, logger)

	return app, nil
}

// Tool returns the selected tool.
func (a *App) Tool() string {
	return a.Session.SelectedTool()
}

// controller returns a debounce controller over the app's searcher and
// session.
func (a *App) controller(onResults search.ResultsFunc) *search.Controller {
	return search.NewController(search.ControllerConfig{
		Searcher:  a.Searcher,
		Session:   a.Session,
		Clock:     clockwork.NewRealClock(),
		Delay:     a.Config.Search.Debounce,
		OnResults: onResults,
		Logger:    a.Logger,
	})
}

// loadCatalog loads the selected tool's catalog and fails when the
// service could not deliver it.
func (a *App) loadCatalog(ctx context.Context) error {
	res := a.Searcher.LoadCatalog(ctx, a.Tool())
	if res.Err != nil {
		if catalog.IsUnavailable(res.Err) {
			return fmt.Errorf("failed to load %s catalog: %w (check the AFM data service at %s)",
				res.Tool, res.Err, a.Config.API.BaseURL)
		}
		return fmt.Errorf("failed to load %s catalog: %w", res.Tool, res.Err)
	}
	return nil
}

// findRecord returns the catalog record of filename. The catalog must
// be loaded.
func (a *App) findRecord(filename string) (catalog.MeasurementRecord, bool) {
	for _, r := range a.Searcher.Catalog() {
		if r.Filename == filename {
			return r, true
		}
	}
	return catalog.MeasurementRecord{}, false
}

// Close flushes pending activity and closes the database.
func (a *App) Close() error {
	if n := a.Tracker.QueueLen(); n > 0 {
		a.Logger.Debug("flushing activity", "events", n)
	}
	a.Tracker.Stop()
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// withApp builds an App, runs fn and closes the App.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) (err error) {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, app)
}
