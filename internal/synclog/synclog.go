// Package synclog records every dataset run in a local SQLite database so
// the outcome of past batches can be inspected after the console output is
// gone.
package synclog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Status is the state of one run.
type Status string

// Run states.
const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusEmpty    Status = "empty"
	StatusFailed   Status = "failed"
)

// Entry is a row in the sync_log table.
type Entry struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Dataset     string     `json:"dataset"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Features    int        `json:"features"`
	Path        string     `json:"path,omitempty"`
	ErrorClass  string     `json:"error_class,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Log provides read/write access to the sync_log table.
type Log struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	features     INTEGER NOT NULL DEFAULT 0,
	path         TEXT NOT NULL DEFAULT '',
	error_class  TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sync_log_dataset ON sync_log(dataset, started_at);
`

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "synclog: create directory for %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "synclog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "synclog: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "synclog: migrate")
	}
	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Start records the beginning of a run and returns its ID.
func (l *Log) Start(ctx context.Context, source, dataset string) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, source, dataset, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, source, dataset, string(StatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "synclog: start %s", dataset)
	}
	return id, nil
}

// Complete marks a run as finished. A run that wrote no file (empty path)
// is recorded as empty.
func (l *Log) Complete(ctx context.Context, id string, features int, path string) error {
	status := StatusComplete
	if path == "" {
		status = StatusEmpty
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE sync_log SET status = ?, completed_at = ?, features = ?, path = ? WHERE id = ?`,
		string(status), time.Now().UTC(), features, path, id,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: complete %s", id)
	}
	return checkRowsAffected(res, id)
}

// Fail marks a run as failed with an error class and message.
func (l *Log) Fail(ctx context.Context, id, class, msg string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE sync_log SET status = ?, completed_at = ?, error_class = ?, error = ? WHERE id = ?`,
		string(StatusFailed), time.Now().UTC(), class, msg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: fail %s", id)
	}
	return checkRowsAffected(res, id)
}

// List returns the most recent runs first. A limit of zero or less returns
// every run.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, source, dataset, status, started_at, completed_at, features, path, error_class, error
		FROM sync_log ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "synclog: list")
	}
	defer rows.Close() //nolint:errcheck

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var status string
		var completedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Source, &e.Dataset, &status, &e.StartedAt, &completedAt,
			&e.Features, &e.Path, &e.ErrorClass, &e.Error); err != nil {
			return nil, eris.Wrap(err, "synclog: scan entry")
		}
		e.Status = Status(status)
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "synclog: iterate")
}

// LastSuccess returns the start time of the most recent completed run of
// dataset, or nil if it has never completed.
func (l *Log) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := l.db.QueryRowContext(ctx,
		`SELECT started_at FROM sync_log
		 WHERE dataset = ? AND status IN (?, ?)
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		dataset, string(StatusComplete), string(StatusEmpty),
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "synclog: last success for %s", dataset)
	}
	return &t, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "synclog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("synclog: run not found: %s", id)
	}
	return nil
}
