/*
Package session keeps the user's browsing state: the selected tool, the
search query, recently viewed measurements, the current group of pinned
measurements and named snapshots of past groups.

History and groups are namespaced per tool. Switching tools saves the
outgoing tool's collections and loads the incoming tool's, so one tool's
history never shows up under another. All persistence is best-effort:
failures are logged and the in-memory state stays authoritative.
*/
package session

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/storage"
)

// DefaultHistoryLimit bounds the view history and the group history.
const DefaultHistoryLimit = 10

// Storage keys.
const (
	KeySelectedTool = "afm_selected_tool"
	KeySearchQuery  = "afm_search_query"

	keyViewHistory  = "afm_view_history"
	keyGroupedData  = "afm_grouped_data"
	keyGroupHistory = "afm_group_history"
)

// HistoryKey returns the view history key of toolID.
func HistoryKey(toolID string) string { return keyViewHistory + ":" + toolID }

// GroupKey returns the current group key of toolID.
func GroupKey(toolID string) string { return keyGroupedData + ":" + toolID }

// GroupHistoryKey returns the group snapshot key of toolID.
func GroupHistoryKey(toolID string) string { return keyGroupHistory + ":" + toolID }

// KeyLister lists stored keys by prefix.
type KeyLister interface {
	Keys(prefix string) ([]string, error)
}

// SavedTools returns the tools that have a view history, a group or
// group snapshots stored, sorted.
func SavedTools(l KeyLister) ([]string, error) {
	var tools []string
	for _, prefix := range []string{keyViewHistory, keyGroupedData, keyGroupHistory} {
		keys, err := l.Keys(prefix + ":")
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			tools = append(tools, strings.TrimPrefix(k, prefix+":"))
		}
	}
	slices.Sort(tools)
	return slices.Compact(tools), nil
}

// HistoryEntry is a recently viewed measurement.
type HistoryEntry struct {
	Record   catalog.MeasurementRecord `json:"record"`
	ViewedAt time.Time                 `json:"viewedAt"`
}

// GroupItem is a measurement pinned to the current group.
type GroupItem struct {
	Record  catalog.MeasurementRecord `json:"record"`
	AddedAt time.Time                 `json:"addedAt"`
}

// GroupSnapshot is a named copy of a past group.
type GroupSnapshot struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Items       []GroupItem `json:"items"`
	ItemCount   int         `json:"itemCount"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Options configures a Store.
type Options struct {
	HistoryLimit int

	// DefaultTool is selected when no tool has been stored yet. Empty
	// means catalog.DefaultTool.
	DefaultTool string

	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Store is the session state of one user. It is safe for concurrent use.
type Store struct {
	blobs  storage.Blobstore
	clock  clockwork.Clock
	logger *slog.Logger
	limit  int

	mu           sync.Mutex
	tool         string
	query        string
	history      []HistoryEntry
	group        []GroupItem
	groupHistory []GroupSnapshot
}

// Open loads the session from blobs. The selected tool defaults to
// opts.DefaultTool.
func Open(blobs storage.Blobstore, opts Options) *Store {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultTool == "" {
		opts.DefaultTool = catalog.DefaultTool
	}

	s := &Store{
		blobs:  blobs,
		clock:  opts.Clock,
		logger: opts.Logger,
		limit:  opts.HistoryLimit,
		tool:   opts.DefaultTool,
	}

	var tool string
	if s.load(KeySelectedTool, &tool) && tool != "" {
		s.tool = tool
	}
	s.load(KeySearchQuery, &s.query)
	s.loadToolLocked(s.tool)

	return s
}

// SelectedTool returns the active tool.
func (s *Store) SelectedTool() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetSelectedTool makes toolID the active tool. The outgoing tool's
// collections are saved first, then the incoming tool's are loaded.
func (s *Store) SetSelectedTool(toolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if toolID == s.tool {
		return
	}

	s.saveList(HistoryKey(s.tool), s.history, len(s.history))
	s.saveList(GroupKey(s.tool), s.group, len(s.group))
	s.saveList(GroupHistoryKey(s.tool), s.groupHistory, len(s.groupHistory))

	s.logger.Debug("switching session tool", "from", s.tool, "to", toolID)
	s.tool = toolID
	s.loadToolLocked(toolID)
	s.save(KeySelectedTool, toolID)
}

func (s *Store) loadToolLocked(toolID string) {
	s.history = []HistoryEntry{}
	s.group = []GroupItem{}
	s.groupHistory = []GroupSnapshot{}

	s.load(HistoryKey(toolID), &s.history)
	s.load(GroupKey(toolID), &s.group)
	s.load(GroupHistoryKey(toolID), &s.groupHistory)

	// a stored "null" decodes to nil
	if s.history == nil {
		s.history = []HistoryEntry{}
	}
	if s.group == nil {
		s.group = []GroupItem{}
	}
	if s.groupHistory == nil {
		s.groupHistory = []GroupSnapshot{}
	}
}

// SearchQuery returns the last persisted search query.
func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetSearchQuery persists q.
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = q
	s.save(KeySearchQuery, q)
}

// ViewHistory returns the recently viewed measurements, most recent first.
func (s *Store) ViewHistory() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HistoryEntry, len(s.history))
	for i, e := range s.history {
		e.Record = e.Record.Clone()
		out[i] = e
	}
	return out
}

// AddToHistory moves rec to the front of the view history.
func (s *Store) AddToHistory(rec catalog.MeasurementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = slices.DeleteFunc(s.history, func(e HistoryEntry) bool {
		return e.Record.Filename == rec.Filename
	})
	s.history = slices.Insert(s.history, 0, HistoryEntry{Record: rec.Clone(), ViewedAt: s.clock.Now()})
	if len(s.history) > s.limit {
		s.history = s.history[:s.limit]
	}

	s.save(HistoryKey(s.tool), s.history)
}

// ClearHistory empties the view history.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = []HistoryEntry{}
	s.remove(HistoryKey(s.tool))
}

// GroupedData returns the current group in insertion order.
func (s *Store) GroupedData() []GroupItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.group)
}

// IsInGroup reports whether filename is in the current group.
func (s *Store) IsInGroup(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inGroupLocked(filename)
}

func (s *Store) inGroupLocked(filename string) bool {
	return slices.ContainsFunc(s.group, func(g GroupItem) bool {
		return g.Record.Filename == filename
	})
}

// AddToGroup appends rec to the current group. It reports false if a
// record with the same filename is already there.
func (s *Store) AddToGroup(rec catalog.MeasurementRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inGroupLocked(rec.Filename) {
		return false
	}

	s.group = append(s.group, GroupItem{Record: rec.Clone(), AddedAt: s.clock.Now()})
	s.save(GroupKey(s.tool), s.group)
	return true
}

// RemoveFromGroup drops filename from the current group.
func (s *Store) RemoveFromGroup(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.group = slices.DeleteFunc(s.group, func(g GroupItem) bool {
		return g.Record.Filename == filename
	})
	s.saveList(GroupKey(s.tool), s.group, len(s.group))
}

// ClearGroup empties the current group.
func (s *Store) ClearGroup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.group = []GroupItem{}
	s.remove(GroupKey(s.tool))
}

// GroupHistory returns saved groups, most recent first.
func (s *Store) GroupHistory() []GroupSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]GroupSnapshot, len(s.groupHistory))
	for i, g := range s.groupHistory {
		g.Items = cloneItems(g.Items)
		out[i] = g
	}
	return out
}

// SaveCurrentGroupAsHistory snapshots the current group under name. An
// empty name becomes "Group <date>". A snapshot with the same name is
// replaced. Nothing happens when the group is empty.
func (s *Store) SaveCurrentGroupAsHistory(name, description string) (GroupSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.group) == 0 {
		return GroupSnapshot{}, false
	}

	now := s.clock.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Group " + now.Format("2006-01-02")
	}

	snap := GroupSnapshot{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Items:       cloneItems(s.group),
		ItemCount:   len(s.group),
		CreatedAt:   now,
	}

	s.groupHistory = slices.DeleteFunc(s.groupHistory, func(g GroupSnapshot) bool {
		return g.Name == snap.Name
	})
	s.groupHistory = slices.Insert(s.groupHistory, 0, snap)
	if len(s.groupHistory) > s.limit {
		s.groupHistory = s.groupHistory[:s.limit]
	}

	s.save(GroupHistoryKey(s.tool), s.groupHistory)
	snap.Items = cloneItems(snap.Items)
	return snap, true
}

// LoadGroupFromHistory replaces the current group with the items of
// snapshot id. It reports false if no such snapshot exists.
func (s *Store) LoadGroupFromHistory(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.groupHistory, func(g GroupSnapshot) bool { return g.ID == id })
	if i < 0 {
		return false
	}

	s.group = cloneItems(s.groupHistory[i].Items)
	s.save(GroupKey(s.tool), s.group)
	return true
}

// cloneItems deep-copies items so snapshots and the current group never
// share directory listings.
func cloneItems(items []GroupItem) []GroupItem {
	out := make([]GroupItem, len(items))
	for i, it := range items {
		it.Record = it.Record.Clone()
		out[i] = it
	}
	return out
}

// RemoveFromGroupHistory deletes snapshot id.
func (s *Store) RemoveFromGroupHistory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupHistory = slices.DeleteFunc(s.groupHistory, func(g GroupSnapshot) bool {
		return g.ID == id
	})
	s.saveList(GroupHistoryKey(s.tool), s.groupHistory, len(s.groupHistory))
}

// ClearGroupHistory deletes every snapshot.
func (s *Store) ClearGroupHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupHistory = []GroupSnapshot{}
	s.remove(GroupHistoryKey(s.tool))
}

func (s *Store) save(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode session value", "key", key, "error", err)
		return
	}
	if err := s.blobs.Set(key, data); err != nil {
		s.logger.Error("failed to save session value", "key", key, "error", err)
	}
}

// saveList saves a collection of n items. An empty collection is
// removed instead so that only tools with saved data keep keys.
func (s *Store) saveList(key string, v any, n int) {
	if n == 0 {
		s.remove(key)
		return
	}
	s.save(key, v)
}

func (s *Store) remove(key string) {
	if err := s.blobs.Delete(key); err != nil {
		s.logger.Error("failed to delete session value", "key", key, "error", err)
	}
}

// load decodes key into dst. It reports false and leaves dst untouched
// when the key is absent, unreadable or not valid JSON.
func (s *Store) load(key string, dst any) bool {
	data, ok, err := s.blobs.Get(key)
	if err != nil {
		s.logger.Error("failed to read session value", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("discarding unparsable session value", "key", key, "error", err)
		return false
	}
	return true
}
