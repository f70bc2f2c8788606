package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"triage/internal/logging"
	"triage/pkg/schema"
)

const createReportsTable = `
CREATE TABLE IF NOT EXISTS triage_reports (
	run_id     TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	report     JSONB NOT NULL
)`

const upsertReport = `
INSERT INTO triage_reports (run_id, report)
VALUES ($1, $2::jsonb)
ON CONFLICT (run_id) DO UPDATE SET report = EXCLUDED.report`

// PostgresStore writes each run's report as one JSONB row.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

// NewPostgresStore connects to dsn and ensures the reports table exists.
func NewPostgresStore(ctx context.Context, dsn string, log logging.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createReportsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}

	return &PostgresStore{pool: pool, log: log}, nil
}

// Save upserts the report under runID.
func (s *PostgresStore) Save(ctx context.Context, runID string, report *schema.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if _, err := s.pool.Exec(ctx, upsertReport, runID, string(data)); err != nil {
		return fmt.Errorf("insert report %s: %w", runID, err)
	}

	s.log.Info("Report stored in postgres", "run_id", runID, "emails", report.Len())
	return nil
}

// load returns the raw JSON report stored under runID.
func (s *PostgresStore) load(ctx context.Context, runID string) (json.RawMessage, error) {
	var data string
	err := s.pool.QueryRow(ctx, `SELECT report::text FROM triage_reports WHERE run_id = $1`, runID).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	return json.RawMessage(data), nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
