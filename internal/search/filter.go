/*
Package search implements the local search layer of afm-viewer.

A tool's catalog is loaded once into a Searcher. Every query change is
filtered locally against that snapshot by plain substring containment and
ordered by measurement date, newest first. Results are memoized per
normalized query in a bounded FIFO cache that is dropped on every reload.
*/
package search

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// MinQueryLength is the shortest query that narrows the catalog. Anything
// shorter returns every record.
const MinQueryLength = 2

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"20060102",
}

// NormalizeQuery trims and lowercases q.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Filter returns the records of catalog matching query, newest first.
// It never modifies catalog and always returns a new slice.
func Filter(records []catalog.MeasurementRecord, query string) []catalog.MeasurementRecord {
	q := NormalizeQuery(query)

	var out []catalog.MeasurementRecord
	if utf8.RuneCountInString(q) < MinQueryLength {
		out = slices.Clone(records)
	} else {
		out = make([]catalog.MeasurementRecord, 0, len(records))
		for _, rec := range records {
			if strings.Contains(rec.SearchText(), q) {
				out = append(out, rec)
			}
		}
	}
	if out == nil {
		out = []catalog.MeasurementRecord{}
	}

	SortByRecency(out)
	return out
}

// SortByRecency sorts records in place by formatted_date, newest first.
// Ties keep their relative order. Records whose date cannot be parsed go
// last, also in their original order.
func SortByRecency(records []catalog.MeasurementRecord) {
	type dated struct {
		rec catalog.MeasurementRecord
		at  time.Time
		ok  bool
	}

	tmp := make([]dated, len(records))
	for i, rec := range records {
		at, ok := ParseDate(rec.FormattedDate)
		tmp[i] = dated{rec: rec, at: at, ok: ok}
	}

	slices.SortStableFunc(tmp, func(a, b dated) int {
		switch {
		case a.ok && b.ok:
			return b.at.Compare(a.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	for i := range tmp {
		records[i] = tmp[i].rec
	}
}

// ParseDate parses a catalog date in any of the layouts the catalog
// service is known to emit.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
