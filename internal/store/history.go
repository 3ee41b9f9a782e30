package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/venturalitica/venturalitica-go/internal/models"
)

// Run is one recorded enforcement run.
type Run struct {
	ID        string                    `json:"id"`
	Timestamp time.Time                 `json:"timestamp"`
	Policy    string                    `json:"policy"`
	Strict    bool                      `json:"strict"`
	Summary   models.Summary            `json:"summary"`
	Results   []models.ComplianceResult `json:"results"`
}

// History is a SQLite-backed log of enforcement runs. SQLite only supports a
// single writer, so the pool is pinned to one connection.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the run history database.
func OpenHistory(path string) (*History, error) {
	if path == "" {
		return nil, fmt.Errorf("history path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return h, nil
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		policy TEXT NOT NULL,
		strict INTEGER NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		results TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_policy ON runs(policy);
	`
	_, err := h.db.Exec(schema)
	return err
}

// RecordRun stores one run and returns its generated id.
func (h *History) RecordRun(ctx context.Context, policy string, strict bool, results []models.ComplianceResult) (string, error) {
	id := uuid.NewString()
	summary := models.Summarize(results)

	encoded, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode run results: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO runs (id, timestamp, policy, strict, total, passed, failed, skipped, errors, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().Unix(), policy, boolInt(strict),
		summary.Total, summary.Passed, summary.Failed, summary.Skipped, summary.Errors,
		string(encoded),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means all.
func (h *History) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, timestamp, policy, strict, total, passed, failed, skipped, errors, results
		FROM runs ORDER BY timestamp DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			ts      int64
			strict  int
			encoded string
		)
		if err := rows.Scan(&run.ID, &ts, &run.Policy, &strict,
			&run.Summary.Total, &run.Summary.Passed, &run.Summary.Failed,
			&run.Summary.Skipped, &run.Summary.Errors, &encoded); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Timestamp = time.Unix(ts, 0).UTC()
		run.Strict = strict != 0
		if err := json.Unmarshal([]byte(encoded), &run.Results); err != nil {
			return nil, fmt.Errorf("decode run %s results: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run by id.
func (h *History) Get(ctx context.Context, id string) (*Run, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, timestamp, policy, strict, total, passed, failed, skipped, errors, results
		FROM runs WHERE id = ?`, id)

	var (
		run     Run
		ts      int64
		strict  int
		encoded string
	)
	err := row.Scan(&run.ID, &ts, &run.Policy, &strict,
		&run.Summary.Total, &run.Summary.Passed, &run.Summary.Failed,
		&run.Summary.Skipped, &run.Summary.Errors, &encoded)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	run.Timestamp = time.Unix(ts, 0).UTC()
	run.Strict = strict != 0
	if err := json.Unmarshal([]byte(encoded), &run.Results); err != nil {
		return nil, fmt.Errorf("decode run %s results: %w", run.ID, err)
	}
	return &run, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
