// Package updater walks the catalog, fetches current prices from the
// external source, and routes each observed change through the classifier:
// applied directly when accepted, queued for admin review when flagged.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mybookshelf/price-service/internal/classifier"
	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/notify"
	"github.com/mybookshelf/price-service/internal/pricesource"
)

// CatalogStore is the catalog access the updater needs
type CatalogStore interface {
	ItemsDueForCheck(ctx context.Context, freshnessHours, maxAttempts, limit int) ([]database.CatalogItem, error)
	ApplyAcceptedPrice(ctx context.Context, itemID int64, newPriceCents int) error
	MarkFlagged(ctx context.Context, itemID int64, reason string) error
	MarkOutOfStock(ctx context.Context, itemID int64) error
	MarkUnchanged(ctx context.Context, itemID int64) error
	RecordFetchFailure(ctx context.Context, itemID int64, maxAttempts int) (int, error)
	TouchPriceCheck(ctx context.Context, itemID int64) error
}

// HistoryStore persists price history records
type HistoryStore interface {
	Insert(ctx context.Context, entry database.PriceHistoryEntry) (int64, error)
}

// QueueStore enqueues flagged changes
type QueueStore interface {
	Enqueue(ctx context.Context, entry database.ValidationQueueEntry) (int64, error)
}

// RunStore persists cycle outcomes; nil disables run records
type RunStore interface {
	Create(ctx context.Context, source string) (int64, error)
	Complete(ctx context.Context, runID int64, run database.UpdateRun) error
}

// Config holds cycle tuning
type Config struct {
	BatchSize        int           // Max items per cycle
	FreshnessHours   int           // Skip items checked within this window
	MaxFetchAttempts int           // Failures before price_status = error
	RetryMaxAttempts uint64        // Per-item retries of transient lookups
	RetryInterval    time.Duration // Initial backoff between retries
	Classifier       classifier.Config
}

// DefaultConfig mirrors the production cron tuning
func DefaultConfig() Config {
	return Config{
		BatchSize:        50,
		FreshnessHours:   25,
		MaxFetchAttempts: 5,
		RetryMaxAttempts: 2,
		RetryInterval:    2 * time.Second,
		Classifier:       classifier.DefaultConfig(),
	}
}

// CycleReport summarizes one full pass over the eligible batch
type CycleReport struct {
	RunID                int64     `json:"run_id,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	CompletedAt          time.Time `json:"completed_at"`
	Processed            int       `json:"processed"`
	AutoAccepted         int       `json:"auto_accepted"`
	Flagged              int       `json:"flagged"`
	Unchanged            int       `json:"unchanged"`
	OutOfStock           int       `json:"out_of_stock"`
	Errored              int       `json:"errored"`
	SkippedPendingReview int       `json:"skipped_pending_review"`
}

// Updater orchestrates price update cycles
type Updater struct {
	catalog  CatalogStore
	history  HistoryStore
	queue    QueueStore
	runs     RunStore
	source   pricesource.Source
	notifier notify.Notifier
	cfg      Config
	logger   zerolog.Logger
}

// New creates an updater. runs may be nil; notifier may be notify.Noop.
func New(catalog CatalogStore, history HistoryStore, queue QueueStore, runs RunStore,
	source pricesource.Source, notifier notify.Notifier, cfg Config, logger zerolog.Logger) *Updater {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Updater{
		catalog:  catalog,
		history:  history,
		queue:    queue,
		runs:     runs,
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "updater").Logger(),
	}
}

// RunCycle performs one pass over the eligible batch. Items are processed
// sequentially; the source rate-limits aggressive clients, so no fan-out.
// A single item's failure never aborts the batch, and the report always
// covers every selected item.
func (u *Updater) RunCycle(ctx context.Context, runSource string) (*CycleReport, error) {
	report := &CycleReport{StartedAt: time.Now()}

	items, err := u.catalog.ItemsDueForCheck(ctx, u.cfg.FreshnessHours, u.cfg.MaxFetchAttempts, u.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("select update batch: %w", err)
	}

	if u.runs != nil {
		runID, err := u.runs.Create(ctx, runSource)
		if err != nil {
			u.logger.Warn().Err(err).Msg("Failed to create run record, continuing without one")
		} else {
			report.RunID = runID
		}
	}

	u.logger.Info().Int("batch_size", len(items)).Msg("Starting price update cycle")

	for i := range items {
		if ctx.Err() != nil {
			// Stopped between items: everything processed so far is
			// committed, the rest stays due for the next cycle.
			u.logger.Warn().Err(ctx.Err()).Int("processed", report.Processed).Msg("Cycle interrupted")
			break
		}
		u.processItem(ctx, &items[i], report)
		report.Processed++
	}

	report.CompletedAt = time.Now()
	observeCycle(report)
	u.finishRun(ctx, report)
	u.logger.Info().
		Int("processed", report.Processed).
		Int("auto_accepted", report.AutoAccepted).
		Int("flagged", report.Flagged).
		Int("unchanged", report.Unchanged).
		Int("out_of_stock", report.OutOfStock).
		Int("errored", report.Errored).
		Msg("Price update cycle complete")

	u.notifier.CycleSummary(ctx, "Daily price update summary", map[string]any{
		"processed":     report.Processed,
		"auto_accepted": report.AutoAccepted,
		"flagged":       report.Flagged,
		"unchanged":     report.Unchanged,
		"out_of_stock":  report.OutOfStock,
		"errored":       report.Errored,
	})

	return report, nil
}

// processItem runs the fetch -> history -> classify -> write sequence for
// one item. Every outcome path ends with last_price_check advancing so the
// freshness window moves even for failures.
func (u *Updater) processItem(ctx context.Context, item *database.CatalogItem, report *CycleReport) {
	logger := u.logger.With().Int64("item_id", item.ID).Str("title", item.Title).Logger()
	defer func() {
		if err := u.catalog.TouchPriceCheck(ctx, item.ID); err != nil {
			logger.Error().Err(err).Msg("Failed to advance price check timestamp")
		}
	}()

	link := ""
	if item.AffiliateLink != nil {
		link = *item.AffiliateLink
	}

	result, err := u.lookupWithRetry(ctx, link)
	switch {
	case err == nil:
		// fall through to the observation handling below
	case errors.Is(err, pricesource.ErrNotFound):
		// Authoritative delisting signal
		u.handleUnavailable(ctx, item, "product delisted at source", report, logger)
		return
	case errors.Is(err, pricesource.ErrNoIdentifier):
		logger.Warn().Msg("Affiliate link carries no product identifier")
		u.handleFetchFailure(ctx, item, err, report, logger)
		return
	default:
		u.handleFetchFailure(ctx, item, err, report, logger)
		return
	}

	if !result.Available {
		u.handleUnavailable(ctx, item, "product currently unavailable", report, logger)
		return
	}

	if result.RawTitle != "" && !pricesource.TitlesMatch(item.Title, result.RawTitle) {
		// The link may point at the wrong product; record the mismatch but
		// let the classifier bound the damage.
		logger.Warn().Str("scraped_title", result.RawTitle).Msg("Fetched title does not match catalog title")
	}

	oldPrice := 0
	if item.PriceCents != nil {
		oldPrice = *item.PriceCents
	}
	newPrice := result.PriceCents

	if newPrice == oldPrice && item.PriceCents != nil {
		if err := u.catalog.MarkUnchanged(ctx, item.ID); err != nil {
			logger.Error().Err(err).Msg("Failed to record unchanged price")
			report.Errored++
			return
		}
		observeOutcome("unchanged")
		report.Unchanged++
		return
	}

	u.recordHistory(ctx, item.ID, oldPrice, newPrice, "automated", nil, logger)

	if item.RequiresApproval {
		// A pending review guards this item; auto-writing now would race
		// the admin's decision.
		logger.Info().Msg("Item awaiting review, skipping auto-write")
		report.SkippedPendingReview++
		return
	}

	verdict := classifier.Classify(u.cfg.Classifier, item.Category, oldPrice, newPrice)
	if verdict.Accept {
		if err := u.catalog.ApplyAcceptedPrice(ctx, item.ID, newPrice); err != nil {
			logger.Error().Err(err).Msg("Failed to apply accepted price")
			report.Errored++
			return
		}
		observeOutcome("auto_accepted")
		logger.Info().
			Int("old_cents", oldPrice).
			Int("new_cents", newPrice).
			Float64("percent_change", verdict.PercentageChange).
			Msg("Price auto-accepted")
		report.AutoAccepted++
		return
	}

	u.flagChange(ctx, item, oldPrice, newPrice, verdict, report, logger)
}

func (u *Updater) flagChange(ctx context.Context, item *database.CatalogItem, oldPrice, newPrice int,
	verdict classifier.Verdict, report *CycleReport, logger zerolog.Logger) {

	details, err := json.Marshal(verdict.Details)
	if err != nil {
		details = nil
	}

	_, err = u.queue.Enqueue(ctx, database.ValidationQueueEntry{
		ItemID:            item.ID,
		OldPriceCents:     oldPrice,
		NewPriceCents:     newPrice,
		PercentageChange:  verdict.PercentageChange,
		ValidationReason:  verdict.Reason,
		ValidationLayer:   verdict.Layer,
		ValidationDetails: details,
		IsTest:            item.IsTest,
	})
	if err != nil && !errors.Is(err, database.ErrDuplicateEntry) {
		logger.Error().Err(err).Msg("Failed to enqueue flagged change")
		report.Errored++
		return
	}
	// ErrDuplicateEntry means the item is already under review; the new
	// observation simply waits for the same decision.

	if err := u.catalog.MarkFlagged(ctx, item.ID, verdict.Reason); err != nil {
		logger.Error().Err(err).Msg("Failed to mark item flagged")
		report.Errored++
		return
	}

	observeOutcome("flagged")
	logger.Warn().
		Int("old_cents", oldPrice).
		Int("new_cents", newPrice).
		Float64("percent_change", verdict.PercentageChange).
		Str("reason", verdict.Reason).
		Msg("Price change flagged for review")
	report.Flagged++

	u.notifier.Alert(ctx, "Price change flagged for review",
		fmt.Sprintf("%s: %s -> %s (%+.1f%%)\nReason: %s",
			item.Title, notify.FormatCents(oldPrice), notify.FormatCents(newPrice),
			verdict.PercentageChange, verdict.Reason))
}

func (u *Updater) handleUnavailable(ctx context.Context, item *database.CatalogItem, note string,
	report *CycleReport, logger zerolog.Logger) {

	if err := u.catalog.MarkOutOfStock(ctx, item.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark item out of stock")
		report.Errored++
		return
	}

	// Zero-change history row keeps the audit trail continuous across
	// stock gaps; the stored price is untouched.
	oldPrice := 0
	if item.PriceCents != nil {
		oldPrice = *item.PriceCents
	}
	u.recordHistory(ctx, item.ID, oldPrice, oldPrice, "automated", &note, logger)

	observeOutcome("out_of_stock")
	logger.Info().Str("note", note).Msg("Item out of stock")
	report.OutOfStock++
}

func (u *Updater) handleFetchFailure(ctx context.Context, item *database.CatalogItem, cause error,
	report *CycleReport, logger zerolog.Logger) {

	attempts, err := u.catalog.RecordFetchFailure(ctx, item.ID, u.cfg.MaxFetchAttempts)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to record fetch failure")
	}

	observeOutcome("errored")
	logger.Warn().
		Err(cause).
		Int("attempts", attempts).
		Int("ceiling", u.cfg.MaxFetchAttempts).
		Msg("Price fetch failed, will retry next cycle")
	report.Errored++
}

func (u *Updater) recordHistory(ctx context.Context, itemID int64, oldPrice, newPrice int,
	source string, notes *string, logger zerolog.Logger) {

	entry := database.PriceHistoryEntry{
		ItemID:        itemID,
		OldPriceCents: oldPrice,
		NewPriceCents: newPrice,
		ChangeCents:   newPrice - oldPrice,
		UpdateSource:  source,
		Notes:         notes,
	}
	if oldPrice > 0 {
		pct := classifier.PercentChange(oldPrice, newPrice)
		entry.ChangePercent = &pct
	}
	if _, err := u.history.Insert(ctx, entry); err != nil {
		// History is an audit trail, not a gate; log and continue.
		logger.Error().Err(err).Msg("Failed to insert price history")
	}
}

// lookupWithRetry retries transient lookup failures with exponential
// backoff. Permanent outcomes (not found, bad link) return immediately.
func (u *Updater) lookupWithRetry(ctx context.Context, link string) (*pricesource.Result, error) {
	var result *pricesource.Result

	operation := func() error {
		r, err := u.source.Lookup(ctx, link)
		if err != nil {
			if pricesource.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.cfg.RetryInterval
	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, u.cfg.RetryMaxAttempts), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *Updater) finishRun(ctx context.Context, report *CycleReport) {
	if u.runs == nil || report.RunID == 0 {
		return
	}
	err := u.runs.Complete(ctx, report.RunID, database.UpdateRun{
		Status:               "completed",
		Processed:            report.Processed,
		AutoAccepted:         report.AutoAccepted,
		Flagged:              report.Flagged,
		Unchanged:            report.Unchanged,
		OutOfStock:           report.OutOfStock,
		Errored:              report.Errored,
		SkippedPendingReview: report.SkippedPendingReview,
	})
	if err != nil {
		u.logger.Warn().Err(err).Int64("run_id", report.RunID).Msg("Failed to finalize run record")
	}
}
