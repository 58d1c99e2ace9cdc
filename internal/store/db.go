// Package store persists pipeline run history in SQLite.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-lake-pipeline/internal/model"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Store records runs, their stage errors and their report results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// Serialize writers; an in-memory path must also stay on one connection.
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	schema := []string{`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		container TEXT,
		object_key TEXT,
		stages TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT,
		error_type TEXT,
		message TEXT,
		created_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		name TEXT,
		title TEXT,
		result TEXT,
		PRIMARY KEY (run_id, idx)
	);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun stores a new run
func (s *Store) CreateRun(ctx context.Context, run model.RunSummary) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, container, object_key, stages, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Container, run.ObjectKey, "[]", run.CreatedAt.UTC(), now)
	return err
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res, runID)
}

// SetRunTarget records the container and object key a run worked on.
func (s *Store) SetRunTarget(ctx context.Context, runID, container, objectKey string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET container = ?, object_key = ?, updated_at = ? WHERE id = ?`,
		container, objectKey, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res, runID)
}

// SaveStages replaces the stage timings recorded for a run.
func (s *Store) SaveStages(ctx context.Context, runID string, stages []model.StageMetrics) error {
	if stages == nil {
		stages = []model.StageMetrics{}
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET stages = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res, runID)
}

// SaveRunErrors records stage errors for a run
func (s *Store) SaveRunErrors(ctx context.Context, runID string, details []model.ErrorDetail) error {
	for _, d := range details {
		ts := d.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO run_errors (run_id, stage, error_type, message, created_at) VALUES (?, ?, ?, ?, ?)`,
			runID, d.Stage, d.ErrorType, d.Message, ts.UTC())
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveReports stores the rendered query results of a run.
func (s *Store) SaveReports(ctx context.Context, runID string, reports []model.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range reports {
		data, err := json.Marshal(r.Result)
		if err != nil {
			return fmt.Errorf("encode report %s: %w", r.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO run_results (run_id, idx, name, title, result) VALUES (?, ?, ?, ?, ?)`,
			runID, r.Index, r.Name, r.Title, string(data))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns all runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, container, object_key, created_at, updated_at FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunSummary{}
	for rows.Next() {
		var run model.RunSummary
		var status string
		if err := rows.Scan(&run.ID, &status, &run.Container, &run.ObjectKey, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, err
		}
		run.Status = model.RunStatus(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its stages and errors
func (s *Store) GetRun(ctx context.Context, runID string) (*model.RunDetail, error) {
	var detail model.RunDetail
	var status, stages string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, container, object_key, stages, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&detail.ID, &status, &detail.Container, &detail.ObjectKey, &stages, &detail.CreatedAt, &detail.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	detail.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(stages), &detail.Stages); err != nil {
		return nil, fmt.Errorf("decode stages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, error_type, message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail.Errors = []model.ErrorDetail{}
	for rows.Next() {
		var d model.ErrorDetail
		if err := rows.Scan(&d.Stage, &d.ErrorType, &d.Message, &d.Timestamp); err != nil {
			return nil, err
		}
		detail.Errors = append(detail.Errors, d)
	}
	return &detail, rows.Err()
}

// GetReports returns the stored report results of a run in execution order.
// Numbers are returned as json.Number so integers and floats keep their text.
func (s *Store) GetReports(ctx context.Context, runID string) ([]model.Report, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, name, title, result FROM run_results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		var r model.Report
		var data string
		if err := rows.Scan(&r.Index, &r.Name, &r.Title, &data); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(data)))
		dec.UseNumber()
		if err := dec.Decode(&r.Result); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", r.Name, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func expectRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
