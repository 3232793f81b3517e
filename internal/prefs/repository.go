// Package prefs provides persistent key-value storage for console
// state that must survive restarts: the last displayed server,
// per-feature dismissed flags, and per-server metrics-prompt markers.
package prefs

import (
	"database/sql"
	"fmt"
	"time"

	"outpostlabs/outpost/internal/database"
)

// Repository defines the persistence interface for preferences.
type Repository interface {
	// Get returns the value for key, or "" when the key is absent.
	Get(key string) (string, error)

	// Set upserts a value for key.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases database resources.
	Close() error
}

// SQLiteRepository implements Repository backed by the local database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
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
        CREATE TABLE IF NOT EXISTS prefs (
            key        TEXT PRIMARY KEY,
            value      TEXT NOT NULL DEFAULT '',
            updated_at TEXT NOT NULL DEFAULT (datetime('now'))
        );
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("prefs: migration failed: %w", err)
	}
	return nil
}

// Get returns the value for key, or "" when the key is absent.
func (r *SQLiteRepository) Get(key string) (string, error) {
	row := r.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("prefs: query failed: %w", err)
	}
	return value, nil
}

// Set upserts a value for key.
func (r *SQLiteRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
        INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("prefs: upsert failed: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *SQLiteRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("prefs: delete failed: %w", err)
	}
	return nil
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
