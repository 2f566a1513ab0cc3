package storage

import "time"

// ActivityKind classifies an activity event.
type ActivityKind string

const (
	ActivitySearch ActivityKind = "search"
	ActivityView   ActivityKind = "view"
	ActivityGroup  ActivityKind = "group"
	ActivityExport ActivityKind = "export"
)

// ActivityEvent is one entry of the activity log.
type ActivityEvent struct {
	// ID is a unique identifier for the event (UUID).
	ID string `json:"id"`

	Kind ActivityKind `json:"kind"`

	// Tool is the instrument whose catalog was active.
	Tool string `json:"tool"`

	// Subject is the filename or group name the event concerns.
	Subject string `json:"subject,omitempty"`

	// QueryHash is the SHA256 hash of the search query for privacy.
	QueryHash string `json:"query_hash,omitempty"`

	ResultsCount int `json:"results_count"`

	Timestamp time.Time `json:"timestamp"`
}
