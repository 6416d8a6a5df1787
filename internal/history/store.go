// Package history records every mutating operation in a small SQLite
// database next to the data directory. History is advisory: a failure to
// record is logged by the caller, never fatal to the operation itself.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"fdb-go/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Entry is one recorded operation.
type Entry struct {
	ID         string
	Operation  string
	Database   string
	Table      string
	Parameters string
	Status     string // "success" or "error"
	CreatedAt  time.Time
}

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date. path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record persists one entry.
func (s *Store) Record(e *Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO operations (id, operation, database_name, table_name, parameters, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Operation, e.Database, e.Table, e.Parameters, e.Status, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(limit int) ([]*Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, operation, database_name, table_name, parameters, status, created_at
		 FROM operations ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Operation, &e.Database, &e.Table, &e.Parameters, &e.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
