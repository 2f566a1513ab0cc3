/*
Package activity records what the user searched, viewed, grouped and
exported, in the background and without blocking the caller.

Queries are stored as SHA256 hashes, never in clear text.
*/
package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/afm-viewer/internal/storage"
)

// Event is a single user action.
type Event struct {
	Kind storage.ActivityKind

	// Tool is the instrument whose catalog was active.
	Tool string

	// Subject is the filename or group name the action concerns.
	Subject string

	// Query is the search text. It is hashed before it is stored.
	Query string

	ResultsCount int

	Timestamp time.Time
}

// NewSearchEvent records a search that returned results records.
func NewSearchEvent(tool, query string, results int) Event {
	return Event{Kind: storage.ActivitySearch, Tool: tool, Query: query, ResultsCount: results, Timestamp: time.Now()}
}

// NewViewEvent records opening the detail of filename.
func NewViewEvent(tool, filename string) Event {
	return Event{Kind: storage.ActivityView, Tool: tool, Subject: filename, Timestamp: time.Now()}
}

// NewGroupEvent records saving a group snapshot with items entries.
func NewGroupEvent(tool, name string, items int) Event {
	return Event{Kind: storage.ActivityGroup, Tool: tool, Subject: name, ResultsCount: items, Timestamp: time.Now()}
}

// NewExportEvent records writing an export file.
func NewExportEvent(tool, filename string) Event {
	return Event{Kind: storage.ActivityExport, Tool: tool, Subject: filename, Timestamp: time.Now()}
}

// ToStorage converts the event to its stored form.
func (e Event) ToStorage() storage.ActivityEvent {
	var hash string
	if e.Query != "" {
		hash = storage.HashQuery(e.Query)
	}
	return storage.ActivityEvent{
		ID:           uuid.NewString(),
		Kind:         e.Kind,
		Tool:         e.Tool,
		Subject:      e.Subject,
		QueryHash:    hash,
		ResultsCount: e.ResultsCount,
		Timestamp:    e.Timestamp,
	}
}
