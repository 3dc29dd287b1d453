package store

import (
	"database/sql"
	"time"
)

// Event is a confirmed label change within a session.
type Event struct {
	ID        int64
	SessionID string
	Label     string
	RawLabel  string
	Hands     int
	CreatedAt time.Time
}

// EventRepository stores confirmed label changes.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts an event and fills in its ID and timestamp.
func (r *EventRepository) Record(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (session_id, label, raw_label, hands, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.Label, e.RawLabel, e.Hands, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's events in the order they happened.
// A limit of zero or less returns every event.
func (r *EventRepository) ListBySession(sessionID string, limit int) ([]*Event, error) {
	query := `SELECT id, session_id, label, raw_label, hands, created_at
		 FROM gesture_events WHERE session_id = ? ORDER BY id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Label, &e.RawLabel, &e.Hands, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByLabel returns how many times each label was confirmed across all sessions.
func (r *EventRepository) CountByLabel() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM gesture_events GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}

	return counts, rows.Err()
}
