// Package history records poll runs and per-file activity in a local
// SQLite database so the status view can show what the watcher has been
// doing without tailing the log file.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// Event kinds.
const (
	EventDownload = "download"
	EventMove     = "move"
	EventSkip     = "skip"
	EventError    = "error"
)

// Run is one completed poll tick.
type Run struct {
	ID             string    `db:"id"`
	StartedAt      time.Time `db:"started_at"`
	FinishedAt     time.Time `db:"finished_at"`
	Status         string    `db:"status"`
	NewAttachments int       `db:"new_attachments"`
	Error          string    `db:"error"`
}

// Event is one per-file activity record.
type Event struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// Store is the SQLite-backed activity store.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at dbPath, enables WAL mode, and
// runs any pending schema migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordRun inserts a completed poll run. A missing ID is filled with a
// fresh UUID.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, status, new_attachments, error)
		VALUES (:id, :started_at, :finished_at, :status, :new_attachments, :error)`,
		run,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// RecordEvent inserts a per-file activity record. Missing ID and
// timestamp are filled in.
func (s *Store) RecordEvent(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO events (id, kind, message, created_at)
		VALUES (:id, :kind, :message, :created_at)`,
		ev,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT id, kind, message, created_at FROM events ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting events: %w", err)
	}
	return events, nil
}

// RecentRuns returns the newest poll runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		"SELECT id, started_at, finished_at, status, new_attachments, error FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting runs: %w", err)
	}
	return runs, nil
}
