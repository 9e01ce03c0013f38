// Package review implements the admin approval workflow over the
// validation queue: listing pending entries, committing approved prices
// and recording rejections, one decision per entry.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mybookshelf/price-service/internal/classifier"
	"github.com/mybookshelf/price-service/internal/database"
)

// QueueStore is the queue access the gateway needs
type QueueStore interface {
	GetEntry(ctx context.Context, entryID int64) (*database.ValidationQueueEntry, error)
	List(ctx context.Context, filter database.ListFilter) ([]database.ValidationQueueEntry, int, error)
	Transition(ctx context.Context, entryID int64, newStatus, reviewedBy string, adminNotes *string) (*database.ValidationQueueEntry, error)
	Stats(ctx context.Context) (*database.QueueStats, error)
}

// CatalogStore applies review outcomes to the catalog
type CatalogStore interface {
	CommitApprovedPrice(ctx context.Context, itemID int64, newPriceCents int, notes string) error
	MarkRejected(ctx context.Context, itemID int64, notes string) error
}

// HistoryStore records the audit trail of admin decisions
type HistoryStore interface {
	Insert(ctx context.Context, entry database.PriceHistoryEntry) (int64, error)
}

// Decision is the outcome of a single approve or reject call
type Decision struct {
	Entry         *database.ValidationQueueEntry `json:"entry"`
	ItemID        int64                          `json:"item_id"`
	NewPriceCents int                            `json:"new_price_cents"`
}

// BulkOutcome reports per-entry results of a bulk decision
type BulkOutcome struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// BulkFailure names one entry that could not be decided and why
type BulkFailure struct {
	EntryID int64  `json:"entry_id"`
	Reason  string `json:"reason"`
}

// Gateway coordinates queue transitions with catalog writes
type Gateway struct {
	queue   QueueStore
	catalog CatalogStore
	history HistoryStore
	logger  zerolog.Logger
}

func New(queue QueueStore, catalog CatalogStore, history HistoryStore, logger zerolog.Logger) *Gateway {
	return &Gateway{
		queue:   queue,
		catalog: catalog,
		history: history,
		logger:  logger.With().Str("component", "review").Logger(),
	}
}

// ListPending returns pending entries, newest flags first, with the total
// pending count for pagination.
func (g *Gateway) ListPending(ctx context.Context, limit, offset int) ([]database.ValidationQueueEntry, int, error) {
	return g.queue.List(ctx, database.ListFilter{Status: database.QueueStatusPending, Limit: limit, Offset: offset})
}

// List returns entries of any status
func (g *Gateway) List(ctx context.Context, filter database.ListFilter) ([]database.ValidationQueueEntry, int, error) {
	return g.queue.List(ctx, filter)
}

// GetEntry returns one queue entry by id
func (g *Gateway) GetEntry(ctx context.Context, entryID int64) (*database.ValidationQueueEntry, error) {
	return g.queue.GetEntry(ctx, entryID)
}

// Approve transitions the entry to approved and commits its proposed price
// to the catalog. The transition is the serialization point: it succeeds for
// exactly one caller, so the catalog write happens at most once per entry.
func (g *Gateway) Approve(ctx context.Context, entryID int64, reviewedBy string, notes *string) (*Decision, error) {
	if notes == nil {
		n := "Approved by admin"
		notes = &n
	}

	entry, err := g.queue.Transition(ctx, entryID, database.QueueStatusApproved, reviewedBy, notes)
	if err != nil {
		return nil, err
	}

	if err := g.catalog.CommitApprovedPrice(ctx, entry.ItemID, entry.NewPriceCents, *notes); err != nil {
		// The entry is already approved; the catalog write must be retried
		// out of band rather than silently lost.
		g.logger.Error().Err(err).
			Int64("entry_id", entryID).
			Int64("item_id", entry.ItemID).
			Msg("Approved entry but catalog commit failed")
		return nil, fmt.Errorf("commit approved price for item %d: %w", entry.ItemID, err)
	}

	g.recordDecision(ctx, entry, "admin_approved", notes)

	g.logger.Info().
		Int64("entry_id", entryID).
		Int64("item_id", entry.ItemID).
		Int("new_cents", entry.NewPriceCents).
		Str("reviewed_by", reviewedBy).
		Msg("Price change approved")

	return &Decision{Entry: entry, ItemID: entry.ItemID, NewPriceCents: entry.NewPriceCents}, nil
}

// Reject transitions the entry to rejected. The stored price is untouched;
// clearing the review hold lets the next cycle re-evaluate the item fresh.
func (g *Gateway) Reject(ctx context.Context, entryID int64, reviewedBy string, notes *string) (*Decision, error) {
	if notes == nil {
		n := "Rejected by admin"
		notes = &n
	}

	entry, err := g.queue.Transition(ctx, entryID, database.QueueStatusRejected, reviewedBy, notes)
	if err != nil {
		return nil, err
	}

	if err := g.catalog.MarkRejected(ctx, entry.ItemID, *notes); err != nil {
		g.logger.Error().Err(err).
			Int64("entry_id", entryID).
			Int64("item_id", entry.ItemID).
			Msg("Rejected entry but failed to clear review hold")
		return nil, fmt.Errorf("clear review hold for item %d: %w", entry.ItemID, err)
	}

	g.logger.Info().
		Int64("entry_id", entryID).
		Int64("item_id", entry.ItemID).
		Str("reviewed_by", reviewedBy).
		Msg("Price change rejected")

	return &Decision{Entry: entry, ItemID: entry.ItemID, NewPriceCents: entry.NewPriceCents}, nil
}

// BulkApprove approves each entry independently. One bad id never blocks
// the rest; the outcome lists every success and failure.
func (g *Gateway) BulkApprove(ctx context.Context, entryIDs []int64, reviewedBy string, notes *string) *BulkOutcome {
	return g.bulkDecide(ctx, entryIDs, reviewedBy, notes, g.Approve)
}

// BulkReject rejects each entry independently
func (g *Gateway) BulkReject(ctx context.Context, entryIDs []int64, reviewedBy string, notes *string) *BulkOutcome {
	return g.bulkDecide(ctx, entryIDs, reviewedBy, notes, g.Reject)
}

func (g *Gateway) bulkDecide(ctx context.Context, entryIDs []int64, reviewedBy string, notes *string,
	decide func(context.Context, int64, string, *string) (*Decision, error)) *BulkOutcome {

	outcome := &BulkOutcome{Succeeded: []int64{}, Failed: []BulkFailure{}}
	for _, id := range entryIDs {
		if _, err := decide(ctx, id, reviewedBy, notes); err != nil {
			outcome.Failed = append(outcome.Failed, BulkFailure{EntryID: id, Reason: failureReason(err)})
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, id)
	}
	return outcome
}

// Stats returns dashboard counters for the queue
func (g *Gateway) Stats(ctx context.Context) (*database.QueueStats, error) {
	return g.queue.Stats(ctx)
}

func (g *Gateway) recordDecision(ctx context.Context, entry *database.ValidationQueueEntry, source string, notes *string) {
	hist := database.PriceHistoryEntry{
		ItemID:        entry.ItemID,
		OldPriceCents: entry.OldPriceCents,
		NewPriceCents: entry.NewPriceCents,
		ChangeCents:   entry.NewPriceCents - entry.OldPriceCents,
		UpdateSource:  source,
		Notes:         notes,
	}
	if entry.OldPriceCents > 0 {
		pct := classifier.PercentChange(entry.OldPriceCents, entry.NewPriceCents)
		hist.ChangePercent = &pct
	}
	if _, err := g.history.Insert(ctx, hist); err != nil {
		g.logger.Error().Err(err).Int64("item_id", entry.ItemID).Msg("Failed to insert decision history")
	}
}

func failureReason(err error) string {
	var invalid *database.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.Is(err, database.ErrEntryNotFound):
		return "entry not found"
	default:
		return err.Error()
	}
}
