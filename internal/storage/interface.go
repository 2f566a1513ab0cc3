/*
Package storage implements the durable key/value blob store behind the
afm-viewer session, plus a small activity log.

Blobs are opaque JSON documents under string keys. The SQLite backend uses
modernc.org/sqlite (a pure Go, CGo-free implementation) and degrades
gracefully: if the database cannot be opened, the store is disabled and
every operation becomes a no-op instead of failing the caller.
*/
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Blobstore is a flat key/value store of serialized values. There are no
// transactions; every call stands alone.
type Blobstore interface {
	// Get returns the blob under key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous blob.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Storage is the full persistence surface used by afm-viewer.
type Storage interface {
	Blobstore

	// Init opens the database and runs migrations.
	Init() error

	// Keys lists stored keys that start with prefix.
	Keys(prefix string) ([]string, error)

	// RecordActivity appends an event to the activity log.
	RecordActivity(event ActivityEvent) error

	// RecentActivity returns up to limit events, newest first.
	RecentActivity(limit int) ([]ActivityEvent, error)

	// Cleanup removes activity older than retention.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *slog.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// DefaultPath returns ~/.afm-viewer/session.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".afm-viewer", "session.db"), nil
}

// NewStorage creates a SQLite storage instance at dbPath. An empty path
// uses DefaultPath. If no path can be determined the storage starts
// disabled, but operations will not fail.
func NewStorage(dbPath string, logger *slog.Logger) *SQLiteStorage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			logger.Warn("session storage disabled", "error", err)
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		dbPath = p
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		dbDir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			s.logger.Warn("session storage disabled", "error", initErr)
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			s.logger.Warn("session storage disabled", "error", initErr)
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			s.logger.Warn("session storage disabled", "error", initErr)
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			s.logger.Warn("session storage disabled", "error", initErr)
			return
		}
	})

	return initErr
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashQuery creates a SHA256 hash of a query string for privacy.
func HashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}
