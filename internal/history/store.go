package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"fnprobe/internal/report"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// FileName is the history database kept at the results root.
const FileName = "history.db"

// Store records phase reports across sessions.
type Store struct {
	db *sql.DB
}

// PhaseRun is one recorded phase of one session.
type PhaseRun struct {
	RunID       string    `json:"runId" yaml:"runId"`
	Phase       string    `json:"phase" yaml:"phase"`
	Function    string    `json:"function" yaml:"function"`
	Region      string    `json:"region" yaml:"region"`
	BuildID     string    `json:"buildId,omitempty" yaml:"buildId,omitempty"`
	Commit      string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
	Total       int       `json:"total" yaml:"total"`
	Passed      int       `json:"passed" yaml:"passed"`
	Failed      int       `json:"failed" yaml:"failed"`
	// AverageMs is set when the phase ran a performance test.
	AverageMs *float64 `json:"averageMs,omitempty" yaml:"averageMs,omitempty"`
	Orphans   int      `json:"orphans" yaml:"orphans"`
}

// TestRun is one recorded test entry.
type TestRun struct {
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	Passed      bool   `json:"passed" yaml:"passed"`
	FailureType string `json:"failureType,omitempty" yaml:"failureType,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	DurationMs  int64  `json:"durationMs" yaml:"durationMs"`
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply history schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// Record stores a phase report. Recording the same run and phase again
// replaces the earlier record.
func (s *Store) Record(ctx context.Context, r *report.PhaseReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM phase_runs WHERE run_id = ? AND phase = ?`, r.RunID, r.Phase); err != nil {
		return fmt.Errorf("failed to replace %s/%s: %w", r.RunID, r.Phase, err)
	}

	var avg sql.NullFloat64
	if r.Performance != nil {
		avg = sql.NullFloat64{Float64: r.Performance.AverageMs, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO phase_runs
			(run_id, phase, function, region, build_id, commit_sha, generated_at, total, passed, failed, avg_ms, orphans)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Phase, r.Function, r.Region, r.BuildID, r.Commit,
		r.Timestamp.UnixMilli(), r.Totals.Total, r.Totals.Passed, r.Totals.Failed, avg, len(r.Orphans),
	); err != nil {
		return fmt.Errorf("failed to record %s/%s: %w", r.RunID, r.Phase, err)
	}

	for i, t := range r.Tests {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO test_results
				(run_id, phase, seq, name, kind, passed, failure_type, reason, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Phase, i, t.Name, t.Kind, t.Passed, t.FailureType, t.Reason, t.DurationMs,
		); err != nil {
			return fmt.Errorf("failed to record test %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s/%s: %w", r.RunID, r.Phase, err)
	}
	return nil
}

// List returns the most recent phase runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]PhaseRun, error) {
	query := `
		SELECT run_id, phase, function, region, build_id, commit_sha, generated_at, total, passed, failed, avg_ms, orphans
		FROM phase_runs
		ORDER BY generated_at DESC, run_id DESC, phase ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	runs := []PhaseRun{}
	for rows.Next() {
		var (
			run       PhaseRun
			generated int64
			avg       sql.NullFloat64
		)
		if err := rows.Scan(&run.RunID, &run.Phase, &run.Function, &run.Region, &run.BuildID, &run.Commit,
			&generated, &run.Total, &run.Passed, &run.Failed, &avg, &run.Orphans); err != nil {
			return nil, fmt.Errorf("failed to read history row: %w", err)
		}
		run.GeneratedAt = time.UnixMilli(generated).UTC()
		if avg.Valid {
			v := avg.Float64
			run.AverageMs = &v
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Tests returns the recorded entries of one phase run in report order.
func (s *Store) Tests(ctx context.Context, runID, phase string) ([]TestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, passed, failure_type, reason, duration_ms
		FROM test_results
		WHERE run_id = ? AND phase = ?
		ORDER BY seq`, runID, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to read tests of %s/%s: %w", runID, phase, err)
	}
	defer rows.Close()

	tests := []TestRun{}
	for rows.Next() {
		var t TestRun
		if err := rows.Scan(&t.Name, &t.Kind, &t.Passed, &t.FailureType, &t.Reason, &t.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to read test row: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
