package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/debounce"
)

// DefaultDebounce is the idle window between the last keystroke and the
// search it triggers.
const DefaultDebounce = 300 * time.Millisecond

// Session is the part of the session store the controller keeps in sync.
type Session interface {
	SetSearchQuery(q string)
	SelectedTool() string
	SetSelectedTool(toolID string)
}

// ResultsFunc receives every new result set with the query that
// produced it.
type ResultsFunc func(query string, results []catalog.MeasurementRecord)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Searcher  *Searcher
	Session   Session
	Clock     clockwork.Clock
	Delay     time.Duration
	OnResults ResultsFunc
	Logger    *slog.Logger
}

// Controller turns query and tool changes into searches and catalog
// loads. Query changes are debounced; tool changes are not.
type Controller struct {
	searcher  *Searcher
	session   Session
	onResults ResultsFunc
	logger    *slog.Logger
	task      *debounce.Task

	mu sync.Mutex
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		searcher:  cfg.Searcher,
		session:   cfg.Session,
		onResults: cfg.OnResults,
		logger:    cfg.Logger,
	}
	c.task = debounce.NewTask(cfg.Clock, cfg.Delay, c.fire)
	return c
}

// OnQueryChange records q and schedules a search once input has been idle
// for the debounce delay. Earlier pending searches are cancelled.
func (c *Controller) OnQueryChange(q string) {
	c.searcher.SetQuery(q)
	if c.session != nil {
		c.session.SetSearchQuery(q)
	}
	c.task.Arm()
}

// fire searches with the query current at fire time.
func (c *Controller) fire() {
	q := c.searcher.Query()
	c.deliver(q, c.searcher.Search(q))
}

// TriggerImmediate cancels any pending search and searches q now.
func (c *Controller) TriggerImmediate(q string) []catalog.MeasurementRecord {
	c.task.Cancel()
	if c.session != nil {
		c.session.SetSearchQuery(q)
	}

	results := c.searcher.Search(q)
	c.deliver(q, results)
	return results
}

// OnToolChange switches the session to toolID and loads its catalog. A
// tool whose catalog is already loaded is not fetched again unless a load
// for another tool is still in flight; use Reload to refetch.
func (c *Controller) OnToolChange(ctx context.Context, toolID string) LoadResult {
	if c.session != nil && c.session.SelectedTool() != toolID {
		c.session.SetSelectedTool(toolID)
	}

	if c.searcher.Settled(toolID) {
		return LoadResult{Tool: toolID, Records: len(c.searcher.Catalog())}
	}
	return c.load(ctx, toolID)
}

// Reload fetches the current tool's catalog again.
func (c *Controller) Reload(ctx context.Context) LoadResult {
	toolID, loaded := c.searcher.Tool()
	if !loaded {
		toolID = catalog.DefaultTool
		if c.session != nil {
			toolID = c.session.SelectedTool()
		}
	}
	return c.load(ctx, toolID)
}

func (c *Controller) load(ctx context.Context, toolID string) LoadResult {
	res := c.searcher.LoadCatalog(ctx, toolID)
	if !res.Stale {
		c.deliver(c.searcher.Query(), c.searcher.Results())
	}
	return res
}

// Pending reports whether a debounced search is scheduled.
func (c *Controller) Pending() bool {
	return c.task.Pending()
}

// Stop cancels any pending search.
func (c *Controller) Stop() {
	c.task.Cancel()
}

func (c *Controller) deliver(q string, results []catalog.MeasurementRecord) {
	c.logger.Debug("search results", "query", q, "count", len(results))
	if c.onResults == nil {
		return
	}

	// Serialize callbacks; timer fires and loads run on other goroutines.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResults(q, results)
}
