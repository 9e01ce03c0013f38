package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound is returned when a catalog item id does not exist
var ErrItemNotFound = errors.New("catalog item not found")

// CatalogStore provides catalog item reads and the two legal price write
// paths: the auto-accept write (ApplyAcceptedPrice) and the approval commit
// (CommitApprovedPrice). No other method mutates price_cents.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a catalog store backed by the given pool
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

const catalogItemColumns = `
	id, title, category, price_cents, affiliate_link, price_status,
	last_price_check, price_fetch_attempts, price_updated_at,
	requires_approval, last_validation_status, validation_notes,
	is_test, created_at, updated_at`

func scanCatalogItem(row pgx.Row) (*CatalogItem, error) {
	var item CatalogItem
	err := row.Scan(
		&item.ID, &item.Title, &item.Category, &item.PriceCents, &item.AffiliateLink,
		&item.PriceStatus, &item.LastPriceCheck, &item.PriceFetchAttempts,
		&item.PriceUpdatedAt, &item.RequiresApproval, &item.LastValidationStatus,
		&item.ValidationNotes, &item.IsTest, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetItem fetches a single catalog item by id
func (s *CatalogStore) GetItem(ctx context.Context, itemID int64) (*CatalogItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+catalogItemColumns+`
		FROM catalog_items
		WHERE id = $1
	`, itemID)
	return scanCatalogItem(row)
}

// ItemsDueForCheck selects the batch of items eligible for a price check:
// not disabled, under the fetch-attempt ceiling, and either never checked or
// checked before the freshness cutoff. Oldest checks first so starved items
// drain ahead of fresh ones.
func (s *CatalogStore) ItemsDueForCheck(ctx context.Context, freshnessHours, maxAttempts, limit int) ([]CatalogItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+catalogItemColumns+`
		FROM catalog_items
		WHERE price_status != 'disabled'
		  AND price_fetch_attempts < $2
		  AND (last_price_check IS NULL OR last_price_check < NOW() - ($1 * INTERVAL '1 hour'))
		ORDER BY last_price_check ASC NULLS FIRST
		LIMIT $3
	`, freshnessHours, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("select items due for check: %w", err)
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var item CatalogItem
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Category, &item.PriceCents, &item.AffiliateLink,
			&item.PriceStatus, &item.LastPriceCheck, &item.PriceFetchAttempts,
			&item.PriceUpdatedAt, &item.RequiresApproval, &item.LastValidationStatus,
			&item.ValidationNotes, &item.IsTest, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ApplyAcceptedPrice writes an auto-accepted price to the item and resets
// the fetch attempt counter
func (s *CatalogStore) ApplyAcceptedPrice(ctx context.Context, itemID int64, newPriceCents int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET price_cents = $2,
		    price_updated_at = NOW(),
		    price_status = 'active',
		    price_fetch_attempts = 0,
		    last_validation_status = 'approved',
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, newPriceCents)
	if err != nil {
		return fmt.Errorf("apply accepted price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// CommitApprovedPrice writes the price from an approved queue entry and
// releases the approval soft lock. Only the review gateway calls this.
func (s *CatalogStore) CommitApprovedPrice(ctx context.Context, itemID int64, newPriceCents int, notes string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET price_cents = $2,
		    price_updated_at = NOW(),
		    price_status = 'active',
		    requires_approval = FALSE,
		    last_validation_status = 'approved',
		    validation_notes = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, newPriceCents, notes)
	if err != nil {
		return fmt.Errorf("commit approved price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// MarkRejected releases the approval soft lock without touching the price
func (s *CatalogStore) MarkRejected(ctx context.Context, itemID int64, notes string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET requires_approval = FALSE,
		    last_validation_status = 'rejected',
		    validation_notes = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, notes)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// MarkFlagged records that a pending queue entry now guards the item
func (s *CatalogStore) MarkFlagged(ctx context.Context, itemID int64, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET requires_approval = TRUE,
		    last_validation_status = 'flagged',
		    validation_notes = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, reason)
	if err != nil {
		return fmt.Errorf("mark flagged: %w", err)
	}
	return nil
}

// MarkOutOfStock sets the out-of-stock status without touching the price
func (s *CatalogStore) MarkOutOfStock(ctx context.Context, itemID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET price_status = 'out_of_stock',
		    price_fetch_attempts = 0,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("mark out of stock: %w", err)
	}
	return nil
}

// MarkUnchanged records a successful lookup that observed no price movement
func (s *CatalogStore) MarkUnchanged(ctx context.Context, itemID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET price_status = 'active',
		    price_fetch_attempts = 0,
		    updated_at = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("mark unchanged: %w", err)
	}
	return nil
}

// RecordFetchFailure increments the attempt counter and flips the item to
// error status once the ceiling is crossed. Returns the new attempt count.
func (s *CatalogStore) RecordFetchFailure(ctx context.Context, itemID int64, maxAttempts int) (int, error) {
	var attempts int
	row := s.pool.QueryRow(ctx, `
		UPDATE catalog_items
		SET price_fetch_attempts = price_fetch_attempts + 1,
		    price_status = CASE
		        WHEN price_fetch_attempts + 1 >= $2 THEN 'error'
		        ELSE price_status
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING price_fetch_attempts
	`, itemID, maxAttempts)
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, fmt.Errorf("record fetch failure: %w", err)
	}
	return attempts, nil
}

// TouchPriceCheck advances last_price_check so the freshness window moves
// regardless of the item's outcome this cycle
func (s *CatalogStore) TouchPriceCheck(ctx context.Context, itemID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET last_price_check = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("touch price check: %w", err)
	}
	return nil
}

// DisableItem removes an item from price tracking. Items are never deleted.
func (s *CatalogStore) DisableItem(ctx context.Context, itemID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE catalog_items
		SET price_status = 'disabled',
		    updated_at = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("disable item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
