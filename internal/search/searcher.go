package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// CatalogLoader fetches a tool's full catalog.
type CatalogLoader interface {
	Load(ctx context.Context, toolID string) ([]catalog.MeasurementRecord, error)
}

// LoadResult describes how a catalog load ended.
type LoadResult struct {
	Tool    string
	Records int
	Err     error

	// Stale is set when a newer load was issued before this one
	// completed. Its response was discarded.
	Stale bool
}

// Searcher owns one catalog snapshot together with its query cache, the
// current query and the current results. It is safe for concurrent use.
type Searcher struct {
	loader CatalogLoader
	logger *slog.Logger
	cache  *QueryCache

	mu      sync.Mutex
	tool    string
	records []catalog.MeasurementRecord
	query   string
	results []catalog.MeasurementRecord
	loading bool
	loaded  bool
	latest  uint64
}

// NewSearcher creates an empty Searcher. cacheSize <= 0 uses
// DefaultCacheSize.
func NewSearcher(loader CatalogLoader, cacheSize int, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Searcher{
		loader:  loader,
		logger:  logger,
		cache:   NewQueryCache(cacheSize),
		records: []catalog.MeasurementRecord{},
		results: []catalog.MeasurementRecord{},
	}
}

// LoadCatalog replaces the catalog with toolID's. On success the query
// cache is cleared and the current query re-run. On failure the catalog
// and results become empty; the error is logged and reported in the
// result only. If another load is issued before this one completes, this
// response is discarded.
func (s *Searcher) LoadCatalog(ctx context.Context, toolID string) LoadResult {
	gen := s.beginLoad()
	defer s.endLoad(gen)

	records, err := s.loader.Load(ctx, toolID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.latest {
		s.logger.Debug("discarding stale catalog load", "tool", toolID, "generation", gen, "latest", s.latest)
		return LoadResult{Tool: toolID, Err: err, Stale: true}
	}

	s.tool = toolID
	s.loaded = true
	s.cache.Clear()

	if err != nil {
		s.logger.Error("failed to load catalog", "tool", toolID, "error", err)
		s.records = []catalog.MeasurementRecord{}
		s.results = []catalog.MeasurementRecord{}
		return LoadResult{Tool: toolID, Err: err}
	}

	if records == nil {
		records = []catalog.MeasurementRecord{}
	}
	s.records = records
	s.results = s.searchLocked(s.query)

	return LoadResult{Tool: toolID, Records: len(records)}
}

func (s *Searcher) beginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	s.loading = true
	return s.latest
}

func (s *Searcher) endLoad(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen == s.latest {
		s.loading = false
	}
}

// Search makes q the current query and returns its results.
func (s *Searcher) Search(q string) []catalog.MeasurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = q
	s.results = s.searchLocked(q)
	return s.results
}

func (s *Searcher) searchLocked(q string) []catalog.MeasurementRecord {
	key := NormalizeQuery(q)
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	result := Filter(s.records, key)
	s.cache.Put(key, result)
	return result
}

// SetQuery records q as the current query without searching.
func (s *Searcher) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// Query returns the current query.
func (s *Searcher) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Results returns the results of the last search or load. Callers must
// not modify the returned slice.
func (s *Searcher) Results() []catalog.MeasurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Catalog returns the current snapshot.
func (s *Searcher) Catalog() []catalog.MeasurementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Tool returns the tool of the last applied load and whether any load
// has been applied.
func (s *Searcher) Tool() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool, s.loaded
}

// Settled reports whether toolID's catalog is applied with no newer load
// in flight.
func (s *Searcher) Settled(toolID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && !s.loading && s.tool == toolID
}

// Loading reports whether the most recently issued load is in flight.
func (s *Searcher) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Cache exposes the query cache.
func (s *Searcher) Cache() *QueryCache {
	return s.cache
}
