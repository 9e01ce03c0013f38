package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateEntry is returned by Enqueue when the item already has a
// pending queue entry. Callers in the update cycle swallow it: the item is
// simply already under review.
var ErrDuplicateEntry = errors.New("pending validation entry already exists for item")

// ErrEntryNotFound is returned when a queue entry id does not exist
var ErrEntryNotFound = errors.New("validation queue entry not found")

// InvalidTransitionError is returned by Transition when the entry has
// already left the pending state. It carries the reviewer details so the
// gateway can report "already reviewed by X at T".
type InvalidTransitionError struct {
	EntryID    int64
	Status     string
	ReviewedBy string
	ReviewedAt time.Time
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("entry %d already %s by %s at %s",
		e.EntryID, e.Status, e.ReviewedBy, e.ReviewedAt.Format(time.RFC3339))
}

// QueueStore manages the validation queue lifecycle: pending entries are
// created by the updater, transitioned exactly once by the review gateway,
// and terminal after that.
type QueueStore struct {
	pool *pgxpool.Pool
}

// NewQueueStore creates a queue store backed by the given pool
func NewQueueStore(pool *pgxpool.Pool) *QueueStore {
	return &QueueStore{pool: pool}
}

const queueEntryColumns = `
	q.id, q.item_id, q.old_price_cents, q.new_price_cents, q.percentage_change,
	q.validation_reason, q.validation_layer, q.validation_details, q.status,
	q.flagged_at, q.reviewed_at, q.reviewed_by, q.admin_notes, q.is_test,
	q.created_at, q.updated_at`

func scanQueueEntry(row pgx.Row) (*ValidationQueueEntry, error) {
	var e ValidationQueueEntry
	err := row.Scan(
		&e.ID, &e.ItemID, &e.OldPriceCents, &e.NewPriceCents, &e.PercentageChange,
		&e.ValidationReason, &e.ValidationLayer, &e.ValidationDetails, &e.Status,
		&e.FlaggedAt, &e.ReviewedAt, &e.ReviewedBy, &e.AdminNotes, &e.IsTest,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Enqueue inserts a new pending entry for a flagged price change. The
// conditional insert plus the partial unique index on (item_id) WHERE
// status='pending' guarantee at most one pending entry per item.
func (s *QueueStore) Enqueue(ctx context.Context, entry ValidationQueueEntry) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO price_validation_queue (
			item_id, old_price_cents, new_price_cents, percentage_change,
			validation_reason, validation_layer, validation_details, is_test
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM price_validation_queue
			WHERE item_id = $1 AND status = 'pending'
		)
		RETURNING id
	`, entry.ItemID, entry.OldPriceCents, entry.NewPriceCents, entry.PercentageChange,
		entry.ValidationReason, entry.ValidationLayer, entry.ValidationDetails,
		entry.IsTest).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrDuplicateEntry
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race to a concurrent enqueue; same outcome
			return 0, ErrDuplicateEntry
		}
		return 0, fmt.Errorf("enqueue validation entry: %w", err)
	}
	return id, nil
}

// GetEntry fetches a single queue entry by id
func (s *QueueStore) GetEntry(ctx context.Context, entryID int64) (*ValidationQueueEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+queueEntryColumns+`
		FROM price_validation_queue q
		WHERE q.id = $1
	`, entryID)
	return scanQueueEntry(row)
}

// ListFilter narrows List results. Zero values mean no filtering; Limit
// defaults to 50.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// List returns queue entries ordered by flagged_at descending, joined with
// the item title for review surfaces. Total is the unpaginated match count.
func (s *QueueStore) List(ctx context.Context, filter ListFilter) ([]ValidationQueueEntry, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	where := ``
	args := []any{}
	if filter.Status != "" {
		where = `WHERE q.status = $1`
		args = append(args, filter.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM price_validation_queue q ` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count validation entries: %w", err)
	}

	query := `
		SELECT ` + queueEntryColumns + `, ci.title
		FROM price_validation_queue q
		JOIN catalog_items ci ON ci.id = q.item_id
		` + where + `
		ORDER BY q.flagged_at DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list validation entries: %w", err)
	}
	defer rows.Close()

	var entries []ValidationQueueEntry
	for rows.Next() {
		var e ValidationQueueEntry
		if err := rows.Scan(
			&e.ID, &e.ItemID, &e.OldPriceCents, &e.NewPriceCents, &e.PercentageChange,
			&e.ValidationReason, &e.ValidationLayer, &e.ValidationDetails, &e.Status,
			&e.FlaggedAt, &e.ReviewedAt, &e.ReviewedBy, &e.AdminNotes, &e.IsTest,
			&e.CreatedAt, &e.UpdatedAt, &e.ItemTitle,
		); err != nil {
			return nil, 0, fmt.Errorf("scan validation entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Transition moves a pending entry to approved or rejected. The WHERE
// status='pending' clause is the single serialization point between
// concurrent reviewers: the first caller wins, later callers get
// *InvalidTransitionError with the winner's details.
func (s *QueueStore) Transition(ctx context.Context, entryID int64, newStatus, reviewedBy string, adminNotes *string) (*ValidationQueueEntry, error) {
	if newStatus != QueueStatusApproved && newStatus != QueueStatusRejected {
		return nil, fmt.Errorf("illegal target status %q", newStatus)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE price_validation_queue q
		SET status = $2,
		    reviewed_at = NOW(),
		    reviewed_by = $3,
		    admin_notes = $4,
		    updated_at = NOW()
		WHERE q.id = $1 AND q.status = 'pending'
		RETURNING `+queueEntryColumns,
		entryID, newStatus, reviewedBy, adminNotes)

	entry, err := scanQueueEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, fmt.Errorf("transition validation entry: %w", err)
	}

	// No pending row matched: distinguish missing from already reviewed
	existing, getErr := s.GetEntry(ctx, entryID)
	if getErr != nil {
		return nil, getErr
	}
	invalid := &InvalidTransitionError{
		EntryID: entryID,
		Status:  existing.Status,
	}
	if existing.ReviewedBy != nil {
		invalid.ReviewedBy = *existing.ReviewedBy
	}
	if existing.ReviewedAt != nil {
		invalid.ReviewedAt = *existing.ReviewedAt
	}
	return nil, invalid
}

// Stats returns queue counts by status. The three counts are independent
// queries, so run them concurrently.
func (s *QueueStore) Stats(ctx context.Context) (*QueueStats, error) {
	var stats QueueStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.pool.QueryRow(gctx, `
			SELECT COUNT(*) FROM price_validation_queue WHERE status = 'pending'
		`).Scan(&stats.Pending)
	})
	g.Go(func() error {
		return s.pool.QueryRow(gctx, `
			SELECT COUNT(*) FROM price_validation_queue
			WHERE status = 'approved' AND reviewed_at >= date_trunc('day', NOW())
		`).Scan(&stats.ApprovedToday)
	})
	g.Go(func() error {
		return s.pool.QueryRow(gctx, `
			SELECT COUNT(*) FROM price_validation_queue
			WHERE status = 'rejected' AND reviewed_at >= date_trunc('day', NOW())
		`).Scan(&stats.RejectedToday)
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats.TotalFlagged = stats.Pending + stats.ApprovedToday + stats.RejectedToday
	return &stats, nil
}

// CountStalePending counts pending entries flagged before the cutoff,
// used by the review-SLA sweeper
func (s *QueueStore) CountStalePending(ctx context.Context, olderThanHours int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM price_validation_queue
		WHERE status = 'pending' AND flagged_at < NOW() - ($1 * INTERVAL '1 hour')
	`, olderThanHours).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale pending entries: %w", err)
	}
	return count, nil
}
