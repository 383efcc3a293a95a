// Package journal persists a SQLite-backed mirror of every engine/session
// event and stage status write, for post-mortem query. It never replaces
// the required plain-file checkpoint/status formats (pkg/checkpoint); it
// is a read-only-by-consumers side channel alongside them.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection holding the run_events and stage_status
// tables.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) a SQLite database at path and ensures its
// schema exists. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver does not support concurrent writers

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS run_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	occurred_at TIMESTAMP NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_status (
	node_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	notes TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordEvent appends one row to run_events. payload is marshaled to JSON;
// a marshal failure degrades to a best-effort string rather than aborting
// the caller's event-bus delivery.
func (s *Store) RecordEvent(kind string, occurredAt time.Time, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(fmt.Sprintf("%v", payload))
	}
	_, err = s.db.Exec(
		`INSERT INTO run_events (kind, occurred_at, payload) VALUES (?, ?, ?)`,
		kind, occurredAt.UTC(), string(body),
	)
	return err
}

// UpsertStageStatus records the latest known status for nodeID, overwriting
// any prior row (a node may retry and complete more than once).
func (s *Store) UpsertStageStatus(nodeID, status, notes string, updatedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO stage_status (node_id, status, notes, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET status=excluded.status, notes=excluded.notes, updated_at=excluded.updated_at`,
		nodeID, status, notes, updatedAt.UTC(),
	)
	return err
}

// EventRecord is one row read back from run_events.
type EventRecord struct {
	ID         int64
	Kind       string
	OccurredAt time.Time
	Payload    string
}

// RecentEvents returns up to limit most recent rows, newest first.
func (s *Store) RecentEvents(limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, kind, occurred_at, payload FROM run_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.OccurredAt, &r.Payload); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StageStatus returns the last recorded status for nodeID, or ok=false if
// none has been written yet.
func (s *Store) StageStatus(nodeID string) (status, notes string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT status, notes FROM stage_status WHERE node_id = ?`, nodeID)
	err = row.Scan(&status, &notes)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return status, notes, true, nil
}
