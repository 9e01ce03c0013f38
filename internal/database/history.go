package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryStore persists immutable price history records
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a history store backed by the given pool
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Insert appends one price history record. ChangePercent stays NULL when the
// old price was zero; the percentage is undefined there and must not be
// fabricated.
func (s *HistoryStore) Insert(ctx context.Context, entry PriceHistoryEntry) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO price_history (
			item_id, old_price_cents, new_price_cents, change_cents,
			change_percent, update_source, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, entry.ItemID, entry.OldPriceCents, entry.NewPriceCents, entry.ChangeCents,
		entry.ChangePercent, entry.UpdateSource, entry.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert price history: %w", err)
	}
	return id, nil
}

// ListForItem returns history records for one item, newest first
func (s *HistoryStore) ListForItem(ctx context.Context, itemID int64, limit, offset int) ([]PriceHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, old_price_cents, new_price_cents, change_cents,
		       change_percent, update_source, notes, created_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, itemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	defer rows.Close()

	var entries []PriceHistoryEntry
	for rows.Next() {
		var e PriceHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.ItemID, &e.OldPriceCents, &e.NewPriceCents, &e.ChangeCents,
			&e.ChangePercent, &e.UpdateSource, &e.Notes, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRecent returns the most recent history records across all items,
// used by the weekly report export
func (s *HistoryStore) ListRecent(ctx context.Context, days, limit int) ([]PriceHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, old_price_cents, new_price_cents, change_cents,
		       change_percent, update_source, notes, created_at
		FROM price_history
		WHERE created_at >= NOW() - ($1 * INTERVAL '1 day')
		ORDER BY created_at DESC
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent price history: %w", err)
	}
	defer rows.Close()

	var entries []PriceHistoryEntry
	for rows.Next() {
		var e PriceHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.ItemID, &e.OldPriceCents, &e.NewPriceCents, &e.ChangeCents,
			&e.ChangePercent, &e.UpdateSource, &e.Notes, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
