// Package execstore is a durable, SQLite-backed log of JobExecution
// terminal states, adapted from the teacher's internal/store/db.go job
// table (§4.8, process-restart introspection).
package execstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leapstack-labs/ingestiond/internal/model"
)

// Store persists one row per terminal JobExecution.
type Store struct {
	db *sql.DB
}

// Open creates (if absent) the executions table at dbPath and returns a
// ready Store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening execstore db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS executions (
		execution_id   TEXT PRIMARY KEY,
		dataset_id     TEXT NOT NULL,
		state          TEXT NOT NULL,
		start_time     DATETIME NOT NULL,
		end_time       DATETIME NOT NULL,
		duration_ms    INTEGER NOT NULL,
		error_count    INTEGER NOT NULL,
		published_uri  TEXT,
		recorded_at    DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating executions table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordTerminal appends exec's terminal outcome. Called once per
// execution, after the engine's Run has returned.
func (s *Store) RecordTerminal(exec *model.JobExecution) error {
	_, err := s.db.Exec(`
		INSERT INTO executions (execution_id, dataset_id, state, start_time, end_time, duration_ms, error_count, published_uri, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ExecutionID,
		exec.DatasetID,
		string(exec.State),
		exec.StartTime.UTC(),
		exec.EndTime.UTC(),
		exec.EndTime.Sub(exec.StartTime).Milliseconds(),
		len(exec.Errors),
		exec.PublishedURI,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording execution %s: %w", exec.ExecutionID, err)
	}
	return nil
}

// Recent returns the most recently recorded executions, newest first,
// for the operator diagnostics endpoint.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT execution_id, dataset_id, state, start_time, end_time, duration_ms, error_count, published_uri
		FROM executions ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent executions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ExecutionID, &r.DatasetID, &r.State, &r.StartTime, &r.EndTime, &r.DurationMs, &r.ErrorCount, &r.PublishedURI); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Record is one row of execution history.
type Record struct {
	ExecutionID  string
	DatasetID    string
	State        string
	StartTime    time.Time
	EndTime      time.Time
	DurationMs   int64
	ErrorCount   int
	PublishedURI string
}
