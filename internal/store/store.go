// Package store persists the audit trail of lifecycle requests to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
)

// timeFormat has a fixed-width fraction so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Activity is one recorded lifecycle request.
type Activity struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store persists activity to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite supports only one writer at a time.
	db.SetMaxOpenConns(4)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS activity (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			action      TEXT NOT NULL,
			succeeded   INTEGER NOT NULL DEFAULT 0,
			error       TEXT NOT NULL DEFAULT '',
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity(kind, entity_id);
		CREATE INDEX IF NOT EXISTS idx_activity_finished ON activity(finished_at);
	`)
	return err
}

// Record stores a lifecycle outcome. It matches lifecycle.WithRecorder.
func (s *Store) Record(ctx context.Context, o lifecycle.Outcome) error {
	errMsg := ""
	if o.Err != nil {
		errMsg = o.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (id, kind, entity_id, action, succeeded, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), o.Kind, o.ID, string(o.Action), boolToInt(o.Err == nil), errMsg,
		o.Started.UTC().Format(timeFormat), o.Finished.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// List returns the most recent activity, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, entity_id, action, succeeded, error, started_at, finished_at
		FROM activity ORDER BY finished_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	return scanActivity(rows)
}

// ListForEntity returns recent activity for one entity, newest first.
func (s *Store) ListForEntity(ctx context.Context, kind, id string, limit int) ([]Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, entity_id, action, succeeded, error, started_at, finished_at
		FROM activity WHERE kind = ? AND entity_id = ? ORDER BY finished_at DESC LIMIT ?`,
		kind, id, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	return scanActivity(rows)
}

// Prune deletes activity that finished before cutoff and returns the number removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE finished_at < ?`,
		cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("pruning activity: %w", err)
	}
	return res.RowsAffected()
}

func scanActivity(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var a Activity
		var succeeded int
		var started, finished string
		if err := rows.Scan(&a.ID, &a.Kind, &a.EntityID, &a.Action, &succeeded, &a.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Succeeded = succeeded == 1
		a.StartedAt, _ = time.Parse(timeFormat, started)
		a.FinishedAt, _ = time.Parse(timeFormat, finished)
		out = append(out, a)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
