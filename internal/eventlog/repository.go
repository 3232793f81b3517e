// Package eventlog records console events in the shared local SQLite
// database and hosts the process-wide unexpected-error reporter.
package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	"outpostlabs/outpost/internal/database"
)

// Repository defines the persistence interface for events.
type Repository interface {
	Save(event *Event) error
	List(limit int) ([]Event, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by the local database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the event repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("eventlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS events (
            id        INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp TEXT NOT NULL,
            level     TEXT NOT NULL DEFAULT 'info',
            component TEXT NOT NULL,
            server_id TEXT NOT NULL DEFAULT '',
            message   TEXT NOT NULL,
            detail    TEXT NOT NULL DEFAULT ''
        );
        CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
        CREATE INDEX IF NOT EXISTS idx_events_server ON events(server_id);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("eventlog: migration failed: %w", err)
	}
	return nil
}

// Save inserts a new event.
func (r *SQLiteRepository) Save(event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = LevelInfo
	}

	result, err := r.db.Exec(`
        INSERT INTO events (timestamp, level, component, server_id, message, detail)
        VALUES (?, ?, ?, ?, ?, ?)`,
		event.Timestamp.Format(time.RFC3339Nano), event.Level,
		event.Component, event.ServerID, event.Message, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("eventlog: insert failed: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// List returns the most recent events, newest first.
func (r *SQLiteRepository) List(limit int) ([]Event, error) {
	rows, err := r.db.Query(`
        SELECT id, timestamp, level, component, server_id, message, detail
        FROM events ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query failed: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Level, &e.Component, &e.ServerID, &e.Message, &e.Detail); err != nil {
			return nil, fmt.Errorf("eventlog: scan failed: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune removes events older than the given age. Returns the number
// of rows removed.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("eventlog: prune failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
