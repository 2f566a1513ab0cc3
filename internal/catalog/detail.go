package catalog

import "net/url"

// Detail is the full measurement payload for one file.
type Detail struct {
	Filename        string           `json:"filename"`
	Tool            string           `json:"tool"`
	Information     map[string]any   `json:"information"`
	Summary         []map[string]any `json:"summary"`
	Data            []map[string]any `json:"data"`
	AvailablePoints []string         `json:"available_points"`
}

// ProfilePoint is one sample of a surface profile.
type ProfilePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ImageInfo locates a profile image on the catalog service.
type ImageInfo struct {
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	URL          string `json:"url"`
}

// SiteInfo disambiguates a measurement point when one file holds several
// sites. Empty fields are not sent.
type SiteInfo struct {
	SiteID  string `json:"site_id,omitempty"`
	SiteX   string `json:"site_x,omitempty"`
	SiteY   string `json:"site_y,omitempty"`
	PointNo string `json:"point_no,omitempty"`
}

func (s *SiteInfo) apply(q url.Values) {
	if s == nil {
		return
	}
	if s.SiteID != "" {
		q.Set("site_id", s.SiteID)
	}
	if s.SiteX != "" {
		q.Set("site_x", s.SiteX)
	}
	if s.SiteY != "" {
		q.Set("site_y", s.SiteY)
	}
	if s.PointNo != "" {
		q.Set("point_no", s.PointNo)
	}
}
