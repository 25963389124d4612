package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/finops-scan/pkg/review"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore opens a connection pool, verifies it, and applies the
// embedded schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, dsn: dsn}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRun persists the run header and its rows in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run, rows []review.Row) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.RowCount = len(rows)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_runs (id, profile, partitions, started_at, finished_at, row_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Profile, strings.Join(run.Partitions, ","), run.StartedAt, run.FinishedAt, run.RowCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review_rows (
			id, run_id, partition_name, resource_id, resource_name, service,
			sub_resource, label, reasons, confidence, coverage_ok,
			throttle_sum, avg_ops_sec, collected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		row := &rows[i]

		var avgOps sql.NullFloat64
		if row.Indicators.AvgOpsPerSec.Known {
			avgOps = sql.NullFloat64{Float64: row.Indicators.AvgOpsPerSec.Value, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			uuid.New().String(), run.ID,
			row.Resource.Partition, row.Resource.ID, row.Resource.Name, row.Resource.Service,
			row.SubResource, string(row.Result.Label), strings.Join(row.Result.Reasons, "; "),
			row.Result.Confidence, row.CoverageOK, row.ThrottleSum, avgOps, row.CollectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row for %s: %w", row.Resource.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for a profile, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, profileName string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, partitions, started_at, finished_at, row_count
		FROM review_runs
		WHERE profile = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, profileName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var partitions string
		if err := rows.Scan(&run.ID, &run.Profile, &partitions, &run.StartedAt, &run.FinishedAt, &run.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if partitions != "" {
			run.Partitions = strings.Split(partitions, ",")
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// LabelHistory returns a resource's labels across past runs, newest first.
// Useful for spotting resources that flap between labels run to run.
func (s *PostgresStore) LabelHistory(ctx context.Context, resourceID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT label
		FROM review_rows
		WHERE resource_id = $1 AND sub_resource = ''
		ORDER BY collected_at DESC
		LIMIT $2
	`, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query label history: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
