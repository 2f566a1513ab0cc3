/*
Package config handles loading and saving afm-viewer configuration.

Values are layered, lowest precedence first:

	defaults < ~/.afm-viewer.yaml < AFM_VIEWER_* environment < command flags

Schema:

	api:
	  base_url: http://localhost:5000/api
	  timeout: 15s
	tool: MAP608
	search:
	  debounce: 300ms
	  cache_size: 50
	session:
	  history_limit: 10
	storage:
	  path: ~/.afm-viewer/session.db
	export:
	  dir: .
	log:
	  level: info

Environment variables map to keys by splitting at the first underscore
after the prefix: AFM_VIEWER_API_BASE_URL sets api.base_url and
AFM_VIEWER_TOOL sets tool.
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by afm-viewer.
const EnvPrefix = "AFM_VIEWER_"

// Defaults.
const (
	DefaultBaseURL      = "http://localhost:5000/api"
	DefaultTimeout      = 15 * time.Second
	DefaultTool         = "MAP608"
	DefaultDebounce     = 300 * time.Millisecond
	DefaultCacheSize    = 50
	DefaultHistoryLimit = 10
	DefaultExportDir    = "."
	DefaultLogLevel     = "info"
)

// Config is the root configuration.
type Config struct {
	API      APIConfig      `koanf:"api"`
	Tool     string         `koanf:"tool"`
	Search   SearchConfig   `koanf:"search"`
	Session  SessionConfig  `koanf:"session"`
	Storage  StorageConfig  `koanf:"storage"`
	Export   ExportConfig   `koanf:"export"`
	Activity ActivityConfig `koanf:"activity"`
	Log      LogConfig      `koanf:"log"`
}

// APIConfig locates the remote catalog service.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SearchConfig tunes the local search layer.
type SearchConfig struct {
	// Debounce is the idle window before a typed query is searched.
	Debounce time.Duration `koanf:"debounce"`

	// CacheSize bounds the number of memoized query results.
	CacheSize int `koanf:"cache_size"`
}

// SessionConfig tunes the session store.
type SessionConfig struct {
	HistoryLimit int `koanf:"history_limit"`
}

// StorageConfig locates the session database.
type StorageConfig struct {
	// Path is the SQLite file. "memory" keeps the session in process only.
	Path string `koanf:"path"`
}

// ExportConfig controls CSV output.
type ExportConfig struct {
	Dir string `koanf:"dir"`
}

// ActivityConfig controls the activity log.
type ActivityConfig struct {
	// Enabled records searches, views, saved groups and exports.
	Enabled bool `koanf:"enabled"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// MemoryStorage as storage.path keeps the session in memory.
const MemoryStorage = "memory"

// NewConfig returns a configuration holding only defaults.
func NewConfig() *Config {
	return &Config{
		API:      APIConfig{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout},
		Tool:     DefaultTool,
		Search:   SearchConfig{Debounce: DefaultDebounce, CacheSize: DefaultCacheSize},
		Session:  SessionConfig{HistoryLimit: DefaultHistoryLimit},
		Storage:  StorageConfig{Path: defaultStoragePath()},
		Export:   ExportConfig{Dir: DefaultExportDir},
		Activity: ActivityConfig{Enabled: true},
		Log:      LogConfig{Level: DefaultLogLevel},
	}
}

// GetDefaultConfigPath returns the path to ~/.afm-viewer.yaml.
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".afm-viewer.yaml"), nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return MemoryStorage
	}
	return filepath.Join(home, ".afm-viewer", "session.db")
}

// LogLevel returns the slog level named by Log.Level.
func (c *Config) LogLevel() slog.Level {
	level, _ := ParseLevel(c.Log.Level)
	return level
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// toMap renders c with the same keys koanf reads, durations as strings.
func (c *Config) toMap() map[string]any {
	return map[string]any{
		"api": map[string]any{
			"base_url": c.API.BaseURL,
			"timeout":  c.API.Timeout.String(),
		},
		"tool": c.Tool,
		"search": map[string]any{
			"debounce":   c.Search.Debounce.String(),
			"cache_size": c.Search.CacheSize,
		},
		"session": map[string]any{
			"history_limit": c.Session.HistoryLimit,
		},
		"storage": map[string]any{
			"path": c.Storage.Path,
		},
		"export": map[string]any{
			"dir": c.Export.Dir,
		},
		"activity": map[string]any{
			"enabled": c.Activity.Enabled,
		},
		"log": map[string]any{
			"level": c.Log.Level,
		},
	}
}
