/*
Package catalog talks to the remote AFM catalog service and defines the
measurement records that the rest of afm-viewer works with.

A tool's catalog is fetched in one request (GET /afm-files?tool=<id>) and
normalized into flat MeasurementRecord values. Records are never patched
in place: a reload replaces the whole slice.
*/
package catalog

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// NoFiles is the placeholder the catalog service uses for an empty
// sub-resource directory listing.
const NoFiles = "no_files"

// MeasurementRecord is one row of a tool's file catalog.
type MeasurementRecord struct {
	UniqueKey     string `json:"unique_key,omitempty"`
	Filename      string `json:"filename"`
	ToolName      string `json:"tool_name"`
	RecipeName    string `json:"recipe_name"`
	LotID         string `json:"lot_id"`
	SlotNumber    string `json:"slot_number"`
	MeasuredInfo  string `json:"measured_info"`
	Date          string `json:"date"`
	FormattedDate string `json:"formatted_date"`
	Time          string `json:"time"`

	ProfileDirs []string `json:"profile_dir_list"`
	DataDirs    []string `json:"data_dir_list"`
	TiffDirs    []string `json:"tiff_dir_list"`
	AlignDirs   []string `json:"align_dir_list"`
	TipDirs     []string `json:"tip_dir_list"`
}

// UnmarshalJSON accepts slot_number and measured_info as either JSON
// strings or numbers. The catalog service emits both depending on how a
// filename was parsed.
func (r *MeasurementRecord) UnmarshalJSON(data []byte) error {
	type plain MeasurementRecord
	aux := struct {
		*plain
		SlotNumber   json.RawMessage `json:"slot_number"`
		MeasuredInfo json.RawMessage `json:"measured_info"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.SlotNumber = rawText(aux.SlotNumber)
	r.MeasuredInfo = rawText(aux.MeasuredInfo)
	return nil
}

// rawText stringifies a scalar JSON value. null and absent values become "".
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// Normalize fills defaults the catalog service may omit: the tool name
// falls back to the tool the catalog was requested for, and missing
// directory listings become ["no_files"].
func (r MeasurementRecord) Normalize(toolID string) MeasurementRecord {
	if r.ToolName == "" {
		r.ToolName = toolID
	}
	r.ProfileDirs = defaultDirs(r.ProfileDirs)
	r.DataDirs = defaultDirs(r.DataDirs)
	r.TiffDirs = defaultDirs(r.TiffDirs)
	r.AlignDirs = defaultDirs(r.AlignDirs)
	r.TipDirs = defaultDirs(r.TipDirs)
	return r
}

// Clone returns a copy of r that shares no slices with it.
func (r MeasurementRecord) Clone() MeasurementRecord {
	r.ProfileDirs = slices.Clone(r.ProfileDirs)
	r.DataDirs = slices.Clone(r.DataDirs)
	r.TiffDirs = slices.Clone(r.TiffDirs)
	r.AlignDirs = slices.Clone(r.AlignDirs)
	r.TipDirs = slices.Clone(r.TipDirs)
	return r
}

func defaultDirs(dirs []string) []string {
	if len(dirs) == 0 {
		return []string{NoFiles}
	}
	return dirs
}

func hasFiles(dirs []string) bool {
	for _, d := range dirs {
		if d != "" && d != NoFiles {
			return true
		}
	}
	return false
}

// HasProfiles reports whether profile data exists for this record.
func (r MeasurementRecord) HasProfiles() bool { return hasFiles(r.ProfileDirs) }

// HasRawData reports whether raw measurement data exists.
func (r MeasurementRecord) HasRawData() bool { return hasFiles(r.DataDirs) }

// HasImages reports whether TIFF images exist.
func (r MeasurementRecord) HasImages() bool { return hasFiles(r.TiffDirs) }

// HasAlignment reports whether alignment images exist.
func (r MeasurementRecord) HasAlignment() bool { return hasFiles(r.AlignDirs) }

// HasTips reports whether tip images exist.
func (r MeasurementRecord) HasTips() bool { return hasFiles(r.TipDirs) }

// SearchText is the lowercased text a query is matched against:
// lot, recipe, date, formatted date, slot and measured info joined by
// single spaces.
func (r MeasurementRecord) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		r.LotID,
		r.RecipeName,
		r.Date,
		r.FormattedDate,
		r.SlotNumber,
		r.MeasuredInfo,
	}, " "))
}
