package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// DefaultKeyOrder is the column order of record listings.
var DefaultKeyOrder = []string{
	"filename",
	"recipe_name",
	"lot_id",
	"slot_number",
	"measured_info",
	"formatted_date",
	"tool_name",
}

// GenerateFilename returns <prefix>_<recipe>_<lot>_<YYYYMMDD>. Missing
// recipe_name and lot_id in info become "data" and "unknown".
func GenerateFilename(prefix string, info map[string]any, now time.Time) string {
	recipe := Stringify(info["recipe_name"])
	if recipe == "" {
		recipe = "data"
	}
	lot := Stringify(info["lot_id"])
	if lot == "" {
		lot = "unknown"
	}
	return prefix + "_" + recipe + "_" + lot + "_" + now.Format("20060102")
}

// EnsureCSVExt appends .csv unless name already ends with it.
func EnsureCSVExt(name string) string {
	if strings.HasSuffix(name, ".csv") {
		return name
	}
	return name + ".csv"
}

// FormatMeasurementInfo turns a measurement information object into a
// single-row table. Empty info yields no rows.
func FormatMeasurementInfo(info map[string]any) []Row {
	if len(info) == 0 {
		return []Row{}
	}
	return []Row{Row(info)}
}

// FormatSummaryStatistics returns the summary table as rows.
func FormatSummaryStatistics(summary []map[string]any) []Row {
	return toRows(summary)
}

// FormatDetailedData returns the raw data table as rows.
func FormatDetailedData(data []map[string]any) []Row {
	return toRows(data)
}

func toRows(in []map[string]any) []Row {
	rows := make([]Row, len(in))
	for i, m := range in {
		rows[i] = Row(m)
	}
	return rows
}

// ProfileHeaders is the column order of profile exports.
var ProfileHeaders = []string{"x", "y", "z"}

// FormatProfileData renders profile coordinates with six decimals.
func FormatProfileData(points []catalog.ProfilePoint) []Row {
	rows := make([]Row, len(points))
	for i, p := range points {
		rows[i] = Row{
			"x": strconv.FormatFloat(p.X, 'f', 6, 64),
			"y": strconv.FormatFloat(p.Y, 'f', 6, 64),
			"z": strconv.FormatFloat(p.Z, 'f', 6, 64),
		}
	}
	return rows
}

// FormatRecords renders catalog records with the columns of keys, or
// DefaultKeyOrder when keys is empty. It returns the rows and headers.
func FormatRecords(records []catalog.MeasurementRecord, keys []string) ([]Row, []string) {
	if len(keys) == 0 {
		keys = DefaultKeyOrder
	}

	rows := make([]Row, len(records))
	for i, r := range records {
		all := recordFields(r)
		row := make(Row, len(keys))
		for _, k := range keys {
			row[k] = all[k]
		}
		rows[i] = row
	}
	return rows, keys
}

func recordFields(r catalog.MeasurementRecord) map[string]any {
	return map[string]any{
		"unique_key":     r.UniqueKey,
		"filename":       r.Filename,
		"tool_name":      r.ToolName,
		"recipe_name":    r.RecipeName,
		"lot_id":         r.LotID,
		"slot_number":    r.SlotNumber,
		"measured_info":  r.MeasuredInfo,
		"date":           r.Date,
		"formatted_date": r.FormattedDate,
		"time":           r.Time,
	}
}

// RecordInfo is the info map GenerateFilename expects for a record.
func RecordInfo(r catalog.MeasurementRecord) map[string]any {
	return map[string]any{"recipe_name": r.RecipeName, "lot_id": r.LotID}
}
