package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medio/src/media"
)

// SqliteHistory records pipeline outcomes so the operator can see what
// happened after the fact. It is an audit trail only: the pipeline never
// reads it back to recover state.
type SqliteHistory struct {
	db *sql.DB
}

// NewSqliteHistory opens (and if needed initializes) the history database.
func NewSqliteHistory(path string) (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteHistory{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS renames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			destination TEXT NOT NULL,
			duplicate_of TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_renames_created_at ON renames(created_at);
	`)
	return err
}

// RecordRename stores one completed rename.
func (h *SqliteHistory) RecordRename(ctx context.Context, source, destination string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO renames (source, destination, duplicate_of, created_at) VALUES (?, ?, NULL, ?)`,
		source, destination, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record rename: %w", err)
	}
	return nil
}

// RecordDuplicate stores the removal of a byte-identical collision copy.
func (h *SqliteHistory) RecordDuplicate(ctx context.Context, path, primary string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO renames (source, destination, duplicate_of, created_at) VALUES (?, '', ?, ?)`,
		path, primary, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record duplicate removal: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (h *SqliteHistory) Recent(ctx context.Context, limit int) ([]media.HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, source, destination, COALESCE(duplicate_of, ''), created_at
		 FROM renames ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var entry media.HistoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Source, &entry.Destination, &entry.DuplicateOf, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (h *SqliteHistory) Close() error {
	return h.db.Close()
}
