package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/storage"
)

var start = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore, *clockwork.FakeClock) {
	t.Helper()
	blobs := storage.NewMemoryStore()
	clk := clockwork.NewFakeClockAt(start)
	return Open(blobs, Options{Clock: clk}), blobs, clk
}

func record(filename string) catalog.MeasurementRecord {
	return catalog.MeasurementRecord{Filename: filename, RecipeName: "RCP", LotID: "LOT1", SlotNumber: "3"}
}

func TestOpenDefaults(t *testing.T) {
	s, _, _ := newTestStore(t)

	assert.Equal(t, catalog.DefaultTool, s.SelectedTool())
	assert.Empty(t, s.SearchQuery())
	assert.Empty(t, s.ViewHistory())
	assert.Empty(t, s.GroupedData())
	assert.Empty(t, s.GroupHistory())
}

func TestOpenDefaultToolOnlyWhenNothingStored(t *testing.T) {
	blobs := storage.NewMemoryStore()

	s := Open(blobs, Options{DefaultTool: "MAPC01"})
	assert.Equal(t, "MAPC01", s.SelectedTool())

	s.SetSelectedTool("MAP608")
	reopened := Open(blobs, Options{DefaultTool: "MAPC01"})
	assert.Equal(t, "MAP608", reopened.SelectedTool())
}

func TestAddToHistoryDeduplicates(t *testing.T) {
	s, _, clk := newTestStore(t)

	s.AddToHistory(record("f1"))
	clk.Advance(time.Minute)
	s.AddToHistory(record("f2"))
	clk.Advance(time.Minute)
	s.AddToHistory(record("f1"))

	h := s.ViewHistory()
	require.Len(t, h, 2)
	assert.Equal(t, "f1", h[0].Record.Filename)
	assert.Equal(t, start.Add(2*time.Minute), h[0].ViewedAt)
	assert.Equal(t, "f2", h[1].Record.Filename)
}

func TestAddToHistoryBounded(t *testing.T) {
	s, _, _ := newTestStore(t)

	for i := range 15 {
		s.AddToHistory(record(fmt.Sprintf("f%d", i)))
	}

	h := s.ViewHistory()
	require.Len(t, h, DefaultHistoryLimit)
	assert.Equal(t, "f14", h[0].Record.Filename)
	assert.Equal(t, "f5", h[9].Record.Filename)

	s.ClearHistory()
	assert.Empty(t, s.ViewHistory())
}

func TestGroupOperations(t *testing.T) {
	s, _, _ := newTestStore(t)

	assert.True(t, s.AddToGroup(record("f1")))
	assert.True(t, s.AddToGroup(record("f2")))
	assert.False(t, s.AddToGroup(record("f1")))

	g := s.GroupedData()
	require.Len(t, g, 2)
	assert.Equal(t, "f1", g[0].Record.Filename)
	assert.Equal(t, start, g[0].AddedAt)
	assert.True(t, s.IsInGroup("f2"))

	s.RemoveFromGroup("f1")
	assert.False(t, s.IsInGroup("f1"))
	assert.Len(t, s.GroupedData(), 1)

	s.ClearGroup()
	assert.Empty(t, s.GroupedData())
}

func TestSaveEmptyGroupIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, ok := s.SaveCurrentGroupAsHistory("name", "")
	assert.False(t, ok)
	assert.Empty(t, s.GroupHistory())
}

func TestSaveGroupSnapshots(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.AddToGroup(record("f1"))
	snap, ok := s.SaveCurrentGroupAsHistory("", "  first  ")
	require.True(t, ok)
	assert.Equal(t, "Group 2024-05-06", snap.Name)
	assert.Equal(t, "first", snap.Description)
	assert.Equal(t, 1, snap.ItemCount)
	assert.NotEmpty(t, snap.ID)

	s.AddToGroup(record("f2"))
	again, _ := s.SaveCurrentGroupAsHistory("Group 2024-05-06", "")

	hist := s.GroupHistory()
	require.Len(t, hist, 1, "same name replaces")
	assert.Equal(t, again.ID, hist[0].ID)
	assert.Equal(t, 2, hist[0].ItemCount)

	// snapshot is detached from the live group
	s.ClearGroup()
	assert.Len(t, s.GroupHistory()[0].Items, 2)

	assert.True(t, s.LoadGroupFromHistory(again.ID))
	assert.Len(t, s.GroupedData(), 2)
	assert.False(t, s.LoadGroupFromHistory("missing"))

	s.RemoveFromGroupHistory(again.ID)
	assert.Empty(t, s.GroupHistory())
}

func TestGroupSnapshotsOwnTheirDirectoryLists(t *testing.T) {
	s, _, _ := newTestStore(t)

	rec := record("f1")
	rec.ProfileDirs = []string{"p1", "p2"}
	s.AddToGroup(rec)
	rec.ProfileDirs[0] = "caller"

	snap, ok := s.SaveCurrentGroupAsHistory("g", "")
	require.True(t, ok)

	live := s.GroupedData()
	live[0].Record.ProfileDirs[0] = "edited"
	assert.Equal(t, []string{"p1", "p2"}, s.GroupedData()[0].Record.ProfileDirs)

	require.True(t, s.LoadGroupFromHistory(snap.ID))
	s.GroupedData()[0].Record.ProfileDirs[1] = "edited"
	s.GroupHistory()[0].Items[0].Record.ProfileDirs[1] = "edited"

	assert.Equal(t, []string{"p1", "p2"}, s.GroupHistory()[0].Items[0].Record.ProfileDirs)
	assert.Equal(t, []string{"p1", "p2"}, s.GroupedData()[0].Record.ProfileDirs)
}

func TestGroupHistoryBounded(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddToGroup(record("f1"))

	for i := range 12 {
		s.SaveCurrentGroupAsHistory(fmt.Sprintf("g%d", i), "")
	}

	hist := s.GroupHistory()
	require.Len(t, hist, DefaultHistoryLimit)
	assert.Equal(t, "g11", hist[0].Name)

	s.ClearGroupHistory()
	assert.Empty(t, s.GroupHistory())
}

func TestSetSelectedToolIsolatesNamespaces(t *testing.T) {
	s, blobs, _ := newTestStore(t)

	s.SetSelectedTool("A")
	s.AddToHistory(record("a1"))
	s.AddToGroup(record("a1"))
	before := s.ViewHistory()

	s.SetSelectedTool("B")
	assert.Equal(t, "B", s.SelectedTool())
	assert.Empty(t, s.ViewHistory())
	assert.Empty(t, s.GroupedData())
	s.AddToHistory(record("b1"))

	s.SetSelectedTool("A")
	assert.Equal(t, before, s.ViewHistory())
	assert.True(t, s.IsInGroup("a1"))

	// persisted under per-tool keys
	_, ok, _ := blobs.Get(HistoryKey("B"))
	assert.True(t, ok)

	reopened := Open(blobs, Options{})
	assert.Equal(t, "A", reopened.SelectedTool())
	require.Len(t, reopened.ViewHistory(), 1)
	assert.Equal(t, "a1", reopened.ViewHistory()[0].Record.Filename)
}

func TestClearingDeletesStoredKeys(t *testing.T) {
	s, blobs, _ := newTestStore(t)
	tool := s.SelectedTool()

	s.AddToHistory(record("f1"))
	s.AddToGroup(record("f1"))
	s.SaveCurrentGroupAsHistory("g", "")

	s.ClearHistory()
	s.RemoveFromGroup("f1")
	s.ClearGroupHistory()

	for _, key := range []string{HistoryKey(tool), GroupKey(tool), GroupHistoryKey(tool)} {
		_, ok, err := blobs.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestSavedTools(t *testing.T) {
	s, blobs, _ := newTestStore(t)

	saved, err := SavedTools(blobs)
	require.NoError(t, err)
	assert.Empty(t, saved)

	s.SetSelectedTool("MAPC01")
	s.AddToGroup(record("c1"))
	s.SetSelectedTool("MAP608")
	s.AddToHistory(record("m1"))
	s.SetSelectedTool("MAPA02")

	saved, err = SavedTools(blobs)
	require.NoError(t, err)
	assert.Equal(t, []string{"MAP608", "MAPC01"}, saved, "a tool switched away from empty keeps no keys")
}

func TestSearchQueryPersisted(t *testing.T) {
	s, blobs, _ := newTestStore(t)
	s.SetSearchQuery("lot1")

	assert.Equal(t, "lot1", Open(blobs, Options{}).SearchQuery())
}

func TestUnparsableBlobFallsBackToDefault(t *testing.T) {
	blobs := storage.NewMemoryStore()
	blobs.Set(KeySelectedTool, []byte(`{not json`))
	blobs.Set(HistoryKey(catalog.DefaultTool), []byte(`"nope"`))

	s := Open(blobs, Options{})
	assert.Equal(t, catalog.DefaultTool, s.SelectedTool())
	assert.Empty(t, s.ViewHistory())
}

type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("read failed") }
func (failingStore) Set(string, []byte) error         { return errors.New("write failed") }
func (failingStore) Delete(string) error              { return errors.New("delete failed") }

func TestPersistenceFailuresKeepMemoryState(t *testing.T) {
	s := Open(failingStore{}, Options{})

	s.AddToHistory(record("f1"))
	s.SetSelectedTool("MAPC01")
	s.SetSelectedTool(catalog.DefaultTool)

	assert.Equal(t, catalog.DefaultTool, s.SelectedTool())
	// nothing could be persisted, so switching back loads an empty history
	assert.Empty(t, s.ViewHistory())

	s.AddToGroup(record("f2"))
	assert.True(t, s.IsInGroup("f2"))
}
