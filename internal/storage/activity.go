package storage

import (
	"time"
)

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordActivity appends an event to the activity log.
func (s *SQLiteStorage) RecordActivity(event ActivityEvent) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO activity_log (id, kind, tool, subject, query_hash, results_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		event.ID,
		string(event.Kind),
		event.Tool,
		event.Subject,
		event.QueryHash,
		event.ResultsCount,
		event.Timestamp.UTC().Format(timestampLayout),
	)

	if err != nil {
		s.logger.Warn("failed to record activity", "kind", event.Kind, "error", err)
	}

	return nil
}

// RecentActivity returns up to limit events, newest first. A limit <= 0
// returns everything.
func (s *SQLiteStorage) RecentActivity(limit int) ([]ActivityEvent, error) {
	if !s.enabled || s.db == nil {
		return []ActivityEvent{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, kind, tool, subject, query_hash, results_count, timestamp
		FROM activity_log
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		s.logger.Warn("failed to query activity", "error", err)
		return []ActivityEvent{}, nil
	}
	defer rows.Close()

	events := []ActivityEvent{}
	for rows.Next() {
		var event ActivityEvent
		var kind, timestampStr string

		if err := rows.Scan(
			&event.ID,
			&kind,
			&event.Tool,
			&event.Subject,
			&event.QueryHash,
			&event.ResultsCount,
			&timestampStr,
		); err != nil {
			s.logger.Warn("failed to scan activity row", "error", err)
			continue
		}

		event.Kind = ActivityKind(kind)
		event.Timestamp, err = time.Parse(timestampLayout, timestampStr)
		if err != nil {
			s.logger.Warn("failed to parse activity timestamp", "value", timestampStr, "error", err)
			continue
		}

		events = append(events, event)
	}

	return events, nil
}

// Cleanup removes activity older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(timestampLayout)

	if _, err := s.db.Exec("DELETE FROM activity_log WHERE timestamp < ?", cutoff); err != nil {
		s.logger.Warn("failed to cleanup activity_log", "error", err)
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		s.logger.Warn("failed to vacuum database", "error", err)
	}

	return nil
}
