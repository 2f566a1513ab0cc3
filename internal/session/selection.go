package session

import (
	"strings"
	"sync"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// Point identifies the measurement point a user is looking at.
type Point struct {
	Filename string            `json:"filename"`
	Point    string            `json:"point"`
	Site     *catalog.SiteInfo `json:"site,omitempty"`
}

// Selection holds the currently selected point. It is not persisted.
type Selection struct {
	mu      sync.Mutex
	current *Point
}

// SelectPoint makes point of filename the selection.
func (s *Selection) SelectPoint(filename, point string, site *catalog.SiteInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if site != nil {
		cp := *site
		site = &cp
	}
	s.current = &Point{Filename: filename, Point: point, Site: site}
}

// SelectWaferPoint selects a wafer map cell of filename.
func (s *Selection) SelectWaferPoint(filename string, p catalog.WaferPoint) {
	number, _, _ := strings.Cut(p.Point, "_")
	s.SelectPoint(filename, p.Point, &catalog.SiteInfo{PointNo: number})
}

// Clear drops the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the selection, if any.
func (s *Selection) Current() (Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Point{}, false
	}
	return *s.current, true
}
