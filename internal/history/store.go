// Package history records every lint invocation in a local SQLite database
// so that failures of the isolation boundary can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Invocation is one recorded RunLint call.
type Invocation struct {
	ID          int64
	ProjectFile string
	Worker      string
	ContextID   string
	Outcome     string // "ok" or the boundary error kind
	Status      string // result status when Outcome is "ok"
	Errors      int
	Warnings    int
	Message     string // error message when the call failed
	Duration    time.Duration
	Timestamp   time.Time
}

// Succeeded reports whether the call returned a result.
func (i *Invocation) Succeeded() bool {
	return i.Outcome == "ok"
}

// Store manages the SQLite history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout first so the rest wait on locks held by concurrent runs
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts an invocation and sets its ID.
func (s *Store) Record(ctx context.Context, inv *Invocation) error {
	ts := inv.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `INSERT INTO invocations
		(project_file, worker, context_id, outcome, status, errors, warnings, message, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		inv.ProjectFile, inv.Worker, inv.ContextID, inv.Outcome, inv.Status,
		inv.Errors, inv.Warnings, inv.Message, inv.Duration.Milliseconds(), ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get invocation id: %w", err)
	}
	inv.ID = id
	inv.Timestamp = ts
	return nil
}

// Recent returns up to limit invocations, newest first.
// An empty project matches every project.
func (s *Store) Recent(ctx context.Context, project string, limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, project_file, worker, context_id, outcome, status, errors, warnings, message, duration_ms, timestamp
		FROM invocations`
	args := []interface{}{}
	if project != "" {
		query += ` WHERE project_file = ?`
		args = append(args, project)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		var inv Invocation
		var durationMs int64
		if err := rows.Scan(&inv.ID, &inv.ProjectFile, &inv.Worker, &inv.ContextID, &inv.Outcome,
			&inv.Status, &inv.Errors, &inv.Warnings, &inv.Message, &durationMs, &inv.Timestamp); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durationMs) * time.Millisecond
		invocations = append(invocations, &inv)
	}
	return invocations, rows.Err()
}

// OutcomeCounts returns the number of invocations per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM invocations GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Cleanup deletes invocations older than keepDays and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays).UTC()

	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old invocations: %w", err)
	}
	return res.RowsAffected()
}
