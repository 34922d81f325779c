package db

import (
	"context"
	"fmt"

	"monzo-manager/src/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

func CreateRun(ctx context.Context, pool *pgxpool.Pool, run models.Run) error {
	query := `
		INSERT INTO runs (id, kind, reference, status, amount, detail, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var detail any
	if len(run.Detail) > 0 {
		detail = string(run.Detail)
	}
	_, err := pool.Exec(ctx, query, run.ID, run.Kind, run.Reference, run.Status, run.Amount,
		detail, run.Error, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

func GetRuns(ctx context.Context, pool *pgxpool.Pool, kind string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, reference, status, amount, COALESCE(detail::text, ''), error, started_at, completed_at
		FROM runs
		WHERE ($1::text = '' OR kind = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var r models.Run
		var detail string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Reference, &r.Status, &r.Amount, &detail, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if detail != "" {
			r.Detail = []byte(detail)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunRecorder stores runs in Postgres.
type RunRecorder struct {
	pool *pgxpool.Pool
}

func NewRunRecorder(pool *pgxpool.Pool) *RunRecorder {
	return &RunRecorder{pool: pool}
}

func (r *RunRecorder) RecordRun(ctx context.Context, run models.Run) error {
	return CreateRun(ctx, r.pool, run)
}

func (r *RunRecorder) ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error) {
	return GetRuns(ctx, r.pool, kind, limit)
}
