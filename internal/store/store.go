// Package store provides the persistence layer over the SQLite database:
// projects, imported tasks, and import-batch records.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/annolab/ingest/internal/db"
)

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db *db.DB

	Projects *ProjectStore
	Tasks    *TaskStore
	Imports  *ImportStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Projects = &ProjectStore{store: s}
	s.Tasks = &TaskStore{store: s}
	s.Imports = &ImportStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// ConflictError reports a uniqueness violation while writing tasks. The whole
// transaction it occurred in is rolled back.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// asConflict converts sqlite constraint violations to *ConflictError, leaving
// other errors untouched.
func asConflict(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConflictError{Err: err}
	}
	return err
}
