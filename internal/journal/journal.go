// Package journal persists per-run fetch outcomes to SQLite, backing the
// status command.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/datalift-labs/stats19/internal/fetch"
)

//go:embed schema.sql
var schemaSQL string

// Journal is a SQLite-backed record of fetch runs.
type Journal struct {
	db   *sql.DB
	path string
}

// Run summarizes one invocation of the fetch pipeline.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	OK         int       `json:"ok"`
	Failed     int       `json:"failed"`
}

// FetchRecord is one file outcome within a run. Error is empty on success.
type FetchRecord struct {
	Dataset  string        `json:"dataset"`
	URL      string        `json:"url"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Open opens (creating if needed) the journal database at path and ensures
// the schema exists. Use ":memory:" for an in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db, path: path}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// RecordRun stores the outcome of one fetch pipeline invocation and
// returns the generated run id.
func (j *Journal) RecordRun(startedAt time.Time, results []fetch.Result) (string, error) {
	runID := uuid.NewString()

	ok, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}

	tx, err := j.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		"INSERT INTO runs (id, started_at, finished_at, ok_count, failed_count) VALUES (?, ?, ?, ?, ?)",
		runID, startedAt.UTC(), time.Now().UTC(), ok, failed,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range results {
		errStr := ""
		if r.Err != nil {
			errStr = r.Err.Error()
		}
		_, err = tx.Exec(
			"INSERT INTO fetches (run_id, dataset, url, bytes, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)",
			runID, r.Dataset.Name, r.Dataset.URL, r.Bytes, r.Duration.Milliseconds(), errStr,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert fetch record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (j *Journal) RecentRuns(limit int) ([]Run, error) {
	rows, err := j.db.Query(
		"SELECT id, started_at, finished_at, ok_count, failed_count FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.OK, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// RunFetches returns the per-file records of a run, in insertion order.
func (j *Journal) RunFetches(runID string) ([]FetchRecord, error) {
	rows, err := j.db.Query(
		"SELECT dataset, url, bytes, duration_ms, error FROM fetches WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FetchRecord
	for rows.Next() {
		var rec FetchRecord
		var durationMS int64
		if err := rows.Scan(&rec.Dataset, &rec.URL, &rec.Bytes, &durationMS, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch records: %w", err)
	}

	return records, nil
}
