package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage := NewStorage(filepath.Join(t.TempDir(), "test.db"), nil)
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// TestNewStorageDefaultPath verifies the default database location.
func TestNewStorageDefaultPath(t *testing.T) {
	storage := NewStorage("", nil)
	if storage == nil {
		t.Fatal("NewStorage returned nil")
	}

	if storage.enabled && filepath.Base(storage.Path()) != "session.db" {
		t.Errorf("Expected default db name session.db, got %s", storage.Path())
	}
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	storage := NewStorage(dbPath, nil)

	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}
	if !storage.Enabled() {
		t.Error("Expected storage to be enabled")
	}
}

// TestMigrationsIdempotent verifies reopening an existing database.
func TestMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first := NewStorage(dbPath, nil)
	if err := first.Init(); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := first.Set("k", []byte(`"v"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second := NewStorage(dbPath, nil)
	if err := second.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer second.Close()

	v, ok, err := second.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if string(v) != `"v"` {
		t.Errorf("Expected %q, got %q", `"v"`, v)
	}
}

// TestKVRoundTrip verifies Set, Get, overwrite and Delete.
func TestKVRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	if _, ok, err := storage.Get("missing"); ok || err != nil {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := storage.Set("afm_selected_tool", []byte(`"MAP608"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := storage.Set("afm_selected_tool", []byte(`"MAPC01"`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	v, ok, err := storage.Get("afm_selected_tool")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(v) != `"MAPC01"` {
		t.Errorf("Expected overwritten value, got %s", v)
	}

	if err := storage.Delete("afm_selected_tool"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := storage.Get("afm_selected_tool"); ok {
		t.Error("Expected key to be deleted")
	}
	if err := storage.Delete("afm_selected_tool"); err != nil {
		t.Errorf("Deleting absent key should succeed, got %v", err)
	}
}

// TestKeys verifies prefix listing.
func TestKeys(t *testing.T) {
	storage := newTestStorage(t)

	for _, k := range []string{"afm_view_history:MAPC01", "afm_view_history:MAP608", "afm_search_query"} {
		if err := storage.Set(k, []byte("[]")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := storage.Keys("afm_view_history:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "afm_view_history:MAP608" {
		t.Errorf("Unexpected keys: %v", keys)
	}
}

// TestActivityLog verifies recording and listing activity.
func TestActivityLog(t *testing.T) {
	storage := newTestStorage(t)
	now := time.Now()

	events := []ActivityEvent{
		{ID: "a", Kind: ActivitySearch, Tool: "MAP608", QueryHash: HashQuery("lot1"), ResultsCount: 3, Timestamp: now.Add(-2 * time.Minute)},
		{ID: "b", Kind: ActivityView, Tool: "MAP608", Subject: "F1.csv", Timestamp: now.Add(-time.Minute)},
		{ID: "c", Kind: ActivityExport, Tool: "MAPC01", Subject: "F2.csv", Timestamp: now},
	}
	for _, e := range events {
		if err := storage.RecordActivity(e); err != nil {
			t.Fatalf("RecordActivity failed: %v", err)
		}
	}

	recent, err := storage.RecentActivity(2)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(recent))
	}
	if recent[0].ID != "c" || recent[1].ID != "b" {
		t.Errorf("Expected newest first, got %s, %s", recent[0].ID, recent[1].ID)
	}
	if recent[0].Kind != ActivityExport {
		t.Errorf("Expected kind export, got %s", recent[0].Kind)
	}

	all, _ := storage.RecentActivity(0)
	if len(all) != 3 {
		t.Errorf("Expected 3 events, got %d", len(all))
	}
}

// TestCleanup verifies retention-based deletion.
func TestCleanup(t *testing.T) {
	storage := newTestStorage(t)

	storage.RecordActivity(ActivityEvent{ID: "old", Kind: ActivityView, Tool: "MAP608", Timestamp: time.Now().Add(-48 * time.Hour)})
	storage.RecordActivity(ActivityEvent{ID: "new", Kind: ActivityView, Tool: "MAP608", Timestamp: time.Now()})

	if err := storage.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	all, _ := storage.RecentActivity(0)
	if len(all) != 1 || all[0].ID != "new" {
		t.Errorf("Expected only the new event to survive, got %v", all)
	}
}

// TestHashQuery verifies query hashing consistency.
func TestHashQuery(t *testing.T) {
	query := "test query for hashing"

	hash1 := HashQuery(query)
	hash2 := HashQuery(query)

	if hash1 != hash2 {
		t.Error("HashQuery produced inconsistent results")
	}

	if len(hash1) != 64 { // SHA256 hex = 64 chars
		t.Errorf("Expected hash length 64, got %d", len(hash1))
	}
}

// TestGracefulDegradation verifies behavior when DB is unavailable.
func TestGracefulDegradation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// A regular file where the directory should be makes MkdirAll fail.
	storage := NewStorage(filepath.Join(blocker, "sub", "test.db"), nil)

	if err := storage.Init(); err == nil {
		t.Fatal("Expected Init to fail")
	}
	if storage.Enabled() {
		t.Error("Expected storage to be disabled")
	}

	if err := storage.Set("k", []byte("1")); err != nil {
		t.Errorf("Set should return nil on disabled storage, got: %v", err)
	}
	if _, ok, err := storage.Get("k"); ok || err != nil {
		t.Errorf("Get should be empty on disabled storage, got ok=%v err=%v", ok, err)
	}
	if err := storage.RecordActivity(ActivityEvent{ID: "x", Timestamp: time.Now()}); err != nil {
		t.Errorf("RecordActivity should return nil on disabled storage, got: %v", err)
	}
	events, err := storage.RecentActivity(10)
	if err != nil || len(events) != 0 {
		t.Errorf("Expected empty activity on disabled storage, got %d events, err=%v", len(events), err)
	}
}

// TestMemoryStore verifies the in-process blob store.
func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	value := []byte(`[1,2]`)
	m.Set("a:1", value)
	value[0] = 'x'

	got, ok, _ := m.Get("a:1")
	if !ok || string(got) != `[1,2]` {
		t.Errorf("Expected stored copy, got %s ok=%v", got, ok)
	}

	m.Set("a:2", nil)
	m.Set("b", nil)
	keys, _ := m.Keys("a:")
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %v", keys)
	}

	m.Delete("a:1")
	if _, ok, _ := m.Get("a:1"); ok {
		t.Error("Expected key to be deleted")
	}
}
