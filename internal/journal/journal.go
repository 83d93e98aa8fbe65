// Package journal provides SQLite-backed history of publish runs.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 0,
	created     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	deleted     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	drafts      INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_actions (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	path   TEXT NOT NULL DEFAULT '',
	slug   TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	uri    TEXT NOT NULL DEFAULT '',
	error  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_actions_run ON run_actions(run_id);
`

// Run is one recorded publish cycle.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	Drafts     int       `json:"drafts"`
	Errors     int       `json:"errors"`
}

// Action is one per-document outcome inside a run.
type Action struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	Slug   string `json:"slug"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	URI    string `json:"uri,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DB wraps a sql.DB with journal-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite journal and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record stores a completed run with its per-document actions in one
// transaction.
func (db *DB) Record(run Run, actions []Action) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, dry_run, created, updated, deleted, skipped, drafts, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.FinishedAt, run.DryRun,
		run.Created, run.Updated, run.Deleted, run.Skipped, run.Drafts, run.Errors)
	if err != nil {
		return fmt.Errorf("journal: insert run: %w", err)
	}

	if len(actions) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO run_actions (run_id, path, slug, action, reason, uri, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("journal: prepare action insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range actions {
			if _, err := stmt.Exec(run.ID, a.Path, a.Slug, a.Action, a.Reason, a.URI, a.Error); err != nil {
				return fmt.Errorf("journal: insert action: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, dry_run, created, updated, deleted, skipped, drafts, errors
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.DryRun,
			&r.Created, &r.Updated, &r.Deleted, &r.Skipped, &r.Drafts, &r.Errors); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Actions returns the per-document actions of one run, in insert order.
func (db *DB) Actions(runID string) ([]Action, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, path, slug, action, reason, uri, error
		FROM run_actions
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: list actions: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.RunID, &a.Path, &a.Slug, &a.Action, &a.Reason, &a.URI, &a.Error); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
