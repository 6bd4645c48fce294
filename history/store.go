// Package history keeps an audit log of pipeline runs in SQLite.
//
// The log is write-only from the pipeline's point of view: variant
// generation decides what to skip by looking at the output directory, never
// at this store.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DefaultRecentLimit is used when Recent is called with n <= 0.
const DefaultRecentLimit = 10

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history store is closed")

// Run is one invocation of a pipeline command.
type Run struct {
	ID                uuid.UUID
	Command           string
	StartedAt         time.Time
	FinishedAt        time.Time
	Images            int
	VariantsGenerated int
	VariantsSkipped   int
	BytesWritten      int64
	HTMLChanged       int
	Status            string
	Error             string
}

// NewRun returns a Run with a fresh id, started now.
func NewRun(command string) Run {
	return Run{
		ID:        uuid.New(),
		Command:   command,
		StartedAt: time.Now(),
	}
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is the run history database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open creates or opens the database at path, applies pending migrations and
// returns a ready Store. Parent directories are created when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	if err := migrateUp(ctx, path); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	db, err := openSQLite(ctx, DefaultConnectionConfig(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts a finished run. A zero ID is replaced with a new one.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return ErrClosed
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = StatusSuccess
	}

	const query = `
		INSERT INTO runs (
			id, command, started_at, finished_at, images,
			variants_generated, variants_skipped, bytes_written,
			html_changed, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(),
		run.Command,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Images,
		run.VariantsGenerated,
		run.VariantsSkipped,
		run.BytesWritten,
		run.HTMLChanged,
		run.Status,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		n = DefaultRecentLimit
	}

	const query = `
		SELECT id, command, started_at, finished_at, images,
			   variants_generated, variants_skipped, bytes_written,
			   html_changed, status, COALESCE(error, '')
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			id                string
			started, finished int64
		)
		if err := rows.Scan(
			&id,
			&run.Command,
			&started,
			&finished,
			&run.Images,
			&run.VariantsGenerated,
			&run.VariantsSkipped,
			&run.BytesWritten,
			&run.HTMLChanged,
			&run.Status,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the database. Calling Close twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
