package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when an update run id does not exist
var ErrRunNotFound = errors.New("update run not found")

// RunStore persists price update cycle outcomes
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a run store backed by the given pool
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Create inserts a running record for a new cycle and returns its id
func (s *RunStore) Create(ctx context.Context, source string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO price_update_runs (source, status, started_at)
		VALUES ($1, 'running', NOW())
		RETURNING id
	`, source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create update run: %w", err)
	}
	return id, nil
}

// Complete finalizes a run record with its counters
func (s *RunStore) Complete(ctx context.Context, runID int64, run UpdateRun) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE price_update_runs
		SET status = $2,
		    completed_at = NOW(),
		    processed = $3,
		    auto_accepted = $4,
		    flagged = $5,
		    unchanged = $6,
		    out_of_stock = $7,
		    errored = $8,
		    skipped_pending_review = $9,
		    error_message = $10
		WHERE id = $1
	`, runID, run.Status, run.Processed, run.AutoAccepted, run.Flagged,
		run.Unchanged, run.OutOfStock, run.Errored, run.SkippedPendingReview,
		run.ErrorMessage)
	if err != nil {
		return fmt.Errorf("complete update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get fetches one run by id
func (s *RunStore) Get(ctx context.Context, runID int64) (*UpdateRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source, status, started_at, completed_at, processed,
		       auto_accepted, flagged, unchanged, out_of_stock, errored,
		       skipped_pending_review, error_message, created_at
		FROM price_update_runs
		WHERE id = $1
	`, runID)

	var r UpdateRun
	err := row.Scan(
		&r.ID, &r.Source, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Processed,
		&r.AutoAccepted, &r.Flagged, &r.Unchanged, &r.OutOfStock, &r.Errored,
		&r.SkippedPendingReview, &r.ErrorMessage, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get update run: %w", err)
	}
	return &r, nil
}

// List returns recent runs, newest first
func (s *RunStore) List(ctx context.Context, limit, offset int) ([]UpdateRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, status, started_at, completed_at, processed,
		       auto_accepted, flagged, unchanged, out_of_stock, errored,
		       skipped_pending_review, error_message, created_at
		FROM price_update_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list update runs: %w", err)
	}
	defer rows.Close()

	var runs []UpdateRun
	for rows.Next() {
		var r UpdateRun
		if err := rows.Scan(
			&r.ID, &r.Source, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Processed,
			&r.AutoAccepted, &r.Flagged, &r.Unchanged, &r.OutOfStock, &r.Errored,
			&r.SkippedPendingReview, &r.ErrorMessage, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan update run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
