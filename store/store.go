// Package store keeps the history of evaluation runs and dataset builds in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run represents a row in the eval_runs table.
type Run struct {
	ID               int64  `json:"id"`
	RunID            string `json:"run_id"`
	Model            string `json:"model"`
	Workbook         string `json:"workbook"`
	Dataset          string `json:"dataset"`
	Prompts          int    `json:"prompts"`
	Cases            int    `json:"cases"`
	Errors           int    `json:"errors"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	StartedAt        string `json:"started_at"`
	RunTimeMs        int64  `json:"run_time_ms"`
	CreatedAt        string `json:"created_at"`
}

// Result represents a row in the eval_results table.
type Result struct {
	PromptID      string  `json:"prompt_id"`
	CaseIndex     int     `json:"case_index"`
	ImageURL      string  `json:"image_url"`
	Expected      string  `json:"expected"`
	Response      string  `json:"response"`
	Extracted     string  `json:"extracted"`
	Pattern       int     `json:"pattern"`
	LowConfidence bool    `json:"low_confidence"`
	Precision     float64 `json:"precision"`
	Error         string  `json:"error,omitempty"`
	TotalTokens   int     `json:"total_tokens"`
}

// PromptSummary aggregates one prompt's results across all runs.
type PromptSummary struct {
	PromptID     string  `json:"prompt_id"`
	Runs         int     `json:"runs"`
	Results      int     `json:"results"`
	AvgPrecision float64 `json:"avg_precision"`
	Exact        int     `json:"exact"`
	LastRun      string  `json:"last_run"`
}

// Build represents a row in the dataset_builds table.
type Build struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"` // "generate" or "inflate"
	Source    string `json:"source,omitempty"`
	Output    string `json:"output"`
	Records   int    `json:"records"`
	Variants  int    `json:"variants"`
	Missing   int    `json:"missing"`
	CreatedAt string `json:"created_at"`
}

// Store wraps the SQLite database for run history.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and applies
// the schema and pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Evaluation runs ---

// SaveRun stores a run and its results in one transaction and returns the
// run's row ID.
func (s *Store) SaveRun(ctx context.Context, run Run, results []Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO eval_runs (run_id, model, workbook, dataset, prompts, cases, errors,
			prompt_tokens, completion_tokens, total_tokens, started_at, run_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Model, run.Workbook, run.Dataset, run.Prompts, run.Cases, run.Errors,
		run.PromptTokens, run.CompletionTokens, run.TotalTokens, run.StartedAt, run.RunTimeMs)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO eval_results (run_id, prompt_id, case_index, image_url, expected, response,
			extracted, pattern, low_confidence, precision, error, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, id, r.PromptID, r.CaseIndex, r.ImageURL, r.Expected, r.Response,
			r.Extracted, r.Pattern, r.LowConfidence, r.Precision, r.Error, r.TotalTokens); err != nil {
			return 0, fmt.Errorf("inserting result %s/%d: %w", r.PromptID, r.CaseIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, COALESCE(model, ''), COALESCE(workbook, ''), COALESCE(dataset, ''),
			prompts, cases, errors, prompt_tokens, completion_tokens, total_tokens,
			started_at, run_time_ms, created_at
		FROM eval_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RunID, &r.Model, &r.Workbook, &r.Dataset,
			&r.Prompts, &r.Cases, &r.Errors, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens,
			&r.StartedAt, &r.RunTimeMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the results of the run with the given run ID in
// prompt then case order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.prompt_id, r.case_index, r.image_url, COALESCE(r.expected, ''), COALESCE(r.response, ''),
			COALESCE(r.extracted, ''), r.pattern, r.low_confidence, r.precision, COALESCE(r.error, ''), r.total_tokens
		FROM eval_results r
		JOIN eval_runs er ON er.id = r.run_id
		WHERE er.run_id = ?
		ORDER BY r.id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.PromptID, &r.CaseIndex, &r.ImageURL, &r.Expected, &r.Response,
			&r.Extracted, &r.Pattern, &r.LowConfidence, &r.Precision, &r.Error, &r.TotalTokens); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// PromptSummaries aggregates precision per prompt across every stored run,
// best average first. Failed requests are excluded from the averages.
func (s *Store) PromptSummaries(ctx context.Context) ([]PromptSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.prompt_id,
			COUNT(DISTINCT r.run_id),
			COUNT(*),
			AVG(r.precision),
			SUM(CASE WHEN r.precision = 1 THEN 1 ELSE 0 END),
			MAX(er.started_at)
		FROM eval_results r
		JOIN eval_runs er ON er.id = r.run_id
		WHERE COALESCE(r.error, '') = ''
		GROUP BY r.prompt_id
		ORDER BY AVG(r.precision) DESC, r.prompt_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PromptSummary
	for rows.Next() {
		var p PromptSummary
		if err := rows.Scan(&p.PromptID, &p.Runs, &p.Results, &p.AvgPrecision, &p.Exact, &p.LastRun); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Dataset builds ---

// RecordBuild logs a dataset generation or inflation.
func (s *Store) RecordBuild(ctx context.Context, b Build) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dataset_builds (kind, source, output, records, variants, missing)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.Kind, b.Source, b.Output, b.Records, b.Variants, b.Missing)
	if err != nil {
		return 0, fmt.Errorf("inserting build: %w", err)
	}
	return res.LastInsertId()
}

// ListBuilds returns the most recent builds first. limit <= 0 returns all.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(source, ''), output, records, variants, missing, created_at
		FROM dataset_builds ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Kind, &b.Source, &b.Output, &b.Records, &b.Variants, &b.Missing, &b.CreatedAt); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
