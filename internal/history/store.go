// Package history keeps a queryable SQLite log of night audit step runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Store is a SQLite-backed workflow.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS step_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	process_key TEXT NOT NULL,
	step TEXT NOT NULL,
	outcome TEXT NOT NULL,
	audit_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS step_runs_key ON step_runs (process_key, id)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordStep inserts one step record.
func (s *Store) RecordStep(ctx context.Context, rec model.StepRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO step_runs (session, process_key, step, outcome, audit_id, payload, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Session,
		string(rec.ProcessKey),
		string(rec.Step),
		string(rec.Outcome),
		rec.AuditID,
		string(rec.Payload),
		rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save step run: %w", err)
	}
	return nil
}

// List returns every record for key in insertion order.
func (s *Store) List(ctx context.Context, key model.ProcessKey) ([]model.StepRecord, error) {
	return s.query(ctx,
		`SELECT session, process_key, step, outcome, audit_id, payload, error, started_at, duration_ms
		 FROM step_runs WHERE process_key = ? ORDER BY id`, string(key))
}

// ListRecent returns up to limit of the newest records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]model.StepRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx,
		`SELECT session, process_key, step, outcome, audit_id, payload, error, started_at, duration_ms
		 FROM step_runs ORDER BY id DESC LIMIT ?`, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list step runs: %w", err)
	}
	defer rows.Close()

	out := make([]model.StepRecord, 0)
	for rows.Next() {
		var (
			rec                model.StepRecord
			key, step, outcome string
			payload, startedAt string
			durationMS         int64
		)
		if err := rows.Scan(&rec.Session, &key, &step, &outcome, &rec.AuditID, &payload, &rec.Error, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan step run row: %w", err)
		}
		rec.ProcessKey = model.ProcessKey(key)
		rec.Step = model.StepName(step)
		rec.Outcome = model.Outcome(outcome)
		if payload != "" {
			rec.Payload = []byte(payload)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse step run time %q: %w", startedAt, err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step run rows: %w", err)
	}
	return out, nil
}
