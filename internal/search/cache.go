package search

import (
	"sync"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// DefaultCacheSize is the number of query results kept per catalog.
const DefaultCacheSize = 50

// QueryCache memoizes filter results by normalized query. It holds at
// most its capacity and evicts in insertion order; a hit does not make an
// entry younger.
type QueryCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string][]catalog.MeasurementRecord
}

// NewQueryCache creates a cache holding up to capacity results.
// A capacity <= 0 uses DefaultCacheSize.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &QueryCache{
		capacity: capacity,
		entries:  make(map[string][]catalog.MeasurementRecord),
	}
}

// Get returns the cached result for query.
func (c *QueryCache) Get(query string) ([]catalog.MeasurementRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.entries[query]
	return r, ok
}

// Put stores result under query. Replacing an existing entry keeps its
// place in the eviction order.
func (c *QueryCache) Put(query string, result []catalog.MeasurementRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[query]; exists {
		c.entries[query] = result
		return
	}

	c.entries[query] = result
	c.order = append(c.order, query)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Clear drops every entry.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = nil
	c.entries = make(map[string][]catalog.MeasurementRecord)
}

// Len returns the number of cached queries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum number of cached queries.
func (c *QueryCache) Capacity() int {
	return c.capacity
}
