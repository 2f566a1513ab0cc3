/*
Package fixture serves the catalog HTTP contract from files on disk so
afm-viewer can be developed and tested without the real service.

Layout, one directory per tool:

	<dir>/<TOOL>/catalog.json                  []MeasurementRecord
	<dir>/<TOOL>/detail/<filename>.json        Detail
	<dir>/<TOOL>/profile/<name>_<point>.json   []ProfilePoint
	<dir>/<TOOL>/tiff/<name>_<point>.png       profile image

<name> is the filename with its .csv extension removed.
*/
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// ErrNotFound is returned for a tool, file or point with no fixture.
var ErrNotFound = errors.New("fixture not found")

const catalogFile = "catalog.json"

// Store reads fixtures from a directory. Catalogs are cached until
// Reload; details and profiles are read on every request.
type Store struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	catalogs map[string][]catalog.MeasurementRecord
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		dir:      dir,
		logger:   logger,
		catalogs: make(map[string][]catalog.MeasurementRecord),
	}
}

// Dir returns the fixture root.
func (s *Store) Dir() string {
	return s.dir
}

// Catalog returns the records of toolID.
func (s *Store) Catalog(toolID string) ([]catalog.MeasurementRecord, error) {
	if err := checkName(toolID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	recs, ok := s.catalogs[toolID]
	s.mu.RUnlock()
	if ok {
		return recs, nil
	}

	recs, err := s.readCatalog(toolID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.catalogs[toolID] = recs
	s.mu.Unlock()
	return recs, nil
}

func (s *Store) readCatalog(toolID string) ([]catalog.MeasurementRecord, error) {
	path := filepath.Join(s.dir, toolID, catalogFile)
	var recs []catalog.MeasurementRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, fmt.Errorf("tool %s: %w", toolID, err)
	}
	if recs == nil {
		recs = []catalog.MeasurementRecord{}
	}
	s.logger.Debug("loaded fixture catalog", "tool", toolID, "records", len(recs))
	return recs, nil
}

// Reload drops cached catalogs so the next request rereads them.
func (s *Store) Reload() {
	s.mu.Lock()
	s.catalogs = make(map[string][]catalog.MeasurementRecord)
	s.mu.Unlock()
	s.logger.Info("fixture catalogs invalidated")
}

// Detail returns the detail fixture of one file.
func (s *Store) Detail(toolID, filename string) (*catalog.Detail, error) {
	if err := checkName(toolID); err != nil {
		return nil, err
	}
	if err := checkName(filename); err != nil {
		return nil, err
	}

	var d catalog.Detail
	if err := readJSON(filepath.Join(s.dir, toolID, "detail", filename+".json"), &d); err != nil {
		return nil, err
	}
	d.Filename = filename
	d.Tool = toolID
	return &d, nil
}

// Profile returns the profile fixture of one measurement point.
func (s *Store) Profile(toolID, filename, point string) ([]catalog.ProfilePoint, error) {
	path, err := s.pointFile(toolID, "profile", filename, point, ".json")
	if err != nil {
		return nil, err
	}
	var pts []catalog.ProfilePoint
	if err := readJSON(path, &pts); err != nil {
		return nil, err
	}
	return pts, nil
}

// ImagePath returns the image file of one measurement point.
func (s *Store) ImagePath(toolID, filename, point string) (string, error) {
	path, err := s.pointFile(toolID, "tiff", filename, point, ".png")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

func (s *Store) pointFile(toolID, kind, filename, point, ext string) (string, error) {
	for _, name := range []string{toolID, filename, point} {
		if err := checkName(name); err != nil {
			return "", err
		}
	}
	return filepath.Join(s.dir, toolID, kind, baseName(filename)+"_"+point+ext), nil
}

// baseName drops the .csv extension the catalog carries on filenames.
func baseName(filename string) string {
	return strings.TrimSuffix(filename, ".csv")
}

// checkName rejects names that would escape the fixture directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid fixture name %q", name)
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
