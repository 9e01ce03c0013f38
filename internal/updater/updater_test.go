package updater

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/pricesource"
)

// fakeCatalog is an in-memory CatalogStore
type fakeCatalog struct {
	items       map[int64]*database.CatalogItem
	order       []int64
	failTouchID int64
}

func newFakeCatalog(items ...*database.CatalogItem) *fakeCatalog {
	fc := &fakeCatalog{items: make(map[int64]*database.CatalogItem)}
	for _, item := range items {
		fc.items[item.ID] = item
		fc.order = append(fc.order, item.ID)
	}
	return fc
}

func (f *fakeCatalog) ItemsDueForCheck(_ context.Context, _, maxAttempts, limit int) ([]database.CatalogItem, error) {
	var due []database.CatalogItem
	for _, id := range f.order {
		item := f.items[id]
		if item.PriceStatus == database.PriceStatusDisabled || item.PriceFetchAttempts >= maxAttempts {
			continue
		}
		due = append(due, *item)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeCatalog) ApplyAcceptedPrice(_ context.Context, itemID int64, newPriceCents int) error {
	item := f.items[itemID]
	price := newPriceCents
	item.PriceCents = &price
	item.PriceStatus = database.PriceStatusActive
	item.PriceFetchAttempts = 0
	now := time.Now()
	item.PriceUpdatedAt = &now
	return nil
}

func (f *fakeCatalog) MarkFlagged(_ context.Context, itemID int64, reason string) error {
	item := f.items[itemID]
	item.RequiresApproval = true
	status := database.ValidationFlagged
	item.LastValidationStatus = &status
	item.ValidationNotes = &reason
	return nil
}

func (f *fakeCatalog) MarkOutOfStock(_ context.Context, itemID int64) error {
	f.items[itemID].PriceStatus = database.PriceStatusOutOfStock
	return nil
}

func (f *fakeCatalog) MarkUnchanged(_ context.Context, itemID int64) error {
	item := f.items[itemID]
	item.PriceStatus = database.PriceStatusActive
	item.PriceFetchAttempts = 0
	return nil
}

func (f *fakeCatalog) RecordFetchFailure(_ context.Context, itemID int64, maxAttempts int) (int, error) {
	item := f.items[itemID]
	item.PriceFetchAttempts++
	if item.PriceFetchAttempts >= maxAttempts {
		item.PriceStatus = database.PriceStatusError
	}
	return item.PriceFetchAttempts, nil
}

func (f *fakeCatalog) TouchPriceCheck(_ context.Context, itemID int64) error {
	now := time.Now()
	f.items[itemID].LastPriceCheck = &now
	return nil
}

// fakeHistory records inserts
type fakeHistory struct {
	entries []database.PriceHistoryEntry
}

func (f *fakeHistory) Insert(_ context.Context, entry database.PriceHistoryEntry) (int64, error) {
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

// fakeQueue enforces the one-pending-entry-per-item invariant
type fakeQueue struct {
	entries []database.ValidationQueueEntry
}

func (f *fakeQueue) Enqueue(_ context.Context, entry database.ValidationQueueEntry) (int64, error) {
	for _, existing := range f.entries {
		if existing.ItemID == entry.ItemID && existing.Status == database.QueueStatusPending {
			return 0, database.ErrDuplicateEntry
		}
	}
	entry.ID = int64(len(f.entries) + 1)
	entry.Status = database.QueueStatusPending
	f.entries = append(f.entries, entry)
	return entry.ID, nil
}

// scriptedSource returns canned lookup results keyed by affiliate link
type scriptedSource struct {
	results map[string]*pricesource.Result
	errs    map[string]error
	calls   []string
}

func (s *scriptedSource) Lookup(_ context.Context, link string) (*pricesource.Result, error) {
	s.calls = append(s.calls, link)
	if err, ok := s.errs[link]; ok {
		return nil, err
	}
	if r, ok := s.results[link]; ok {
		return r, nil
	}
	return nil, pricesource.ErrNotFound
}

func link(s string) *string { return &s }

func cents(v int) *int { return &v }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 0
	cfg.RetryInterval = time.Millisecond
	return cfg
}

func newTestUpdater(catalog *fakeCatalog, history *fakeHistory, queue *fakeQueue, source pricesource.Source) *Updater {
	return New(catalog, history, queue, nil, source, nil, testConfig(), zerolog.Nop())
}

func TestSmallChangeAutoAccepted(t *testing.T) {
	item := &database.CatalogItem{
		ID: 1, Title: "Atomic Habits", Category: "books",
		PriceCents: cents(1000), AffiliateLink: link("https://www.amazon.com/dp/B07D23CFGR"),
		PriceStatus: database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	queue := &fakeQueue{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 1030, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, queue, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.AutoAccepted)
	assert.Equal(t, 0, report.Flagged)
	assert.Equal(t, 1030, *item.PriceCents, "price should be committed")
	assert.Empty(t, queue.entries, "no queue entry for an accepted change")
	require.Len(t, history.entries, 1)
	assert.Equal(t, 1000, history.entries[0].OldPriceCents)
	assert.Equal(t, 1030, history.entries[0].NewPriceCents)
	require.NotNil(t, history.entries[0].ChangePercent)
	assert.InDelta(t, 3.0, *history.entries[0].ChangePercent, 0.001)
}

func TestExtremeChangeFlagged(t *testing.T) {
	item := &database.CatalogItem{
		ID: 2, Title: "Deep Work", Category: "books",
		PriceCents: cents(1000), AffiliateLink: link("https://www.amazon.com/dp/B0189PX1RQ"),
		PriceStatus: database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	queue := &fakeQueue{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 8500, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, queue, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Flagged)
	assert.Equal(t, 0, report.AutoAccepted)
	assert.Equal(t, 1000, *item.PriceCents, "flagged change must not touch the stored price")
	assert.True(t, item.RequiresApproval)
	require.Len(t, queue.entries, 1)
	entry := queue.entries[0]
	assert.Equal(t, int64(2), entry.ItemID)
	assert.Equal(t, 1000, entry.OldPriceCents)
	assert.Equal(t, 8500, entry.NewPriceCents)
	assert.InDelta(t, 750.0, entry.PercentageChange, 0.001)
	assert.Equal(t, "threshold_validation", entry.ValidationLayer)
}

func TestDuplicateFlagSwallowed(t *testing.T) {
	item := &database.CatalogItem{
		ID: 3, Title: "Good to Great", Category: "books",
		PriceCents: cents(1000), AffiliateLink: link("https://www.amazon.com/dp/0066620996"),
		PriceStatus: database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	queue := &fakeQueue{}
	queue.entries = append(queue.entries, database.ValidationQueueEntry{
		ID: 99, ItemID: 3, Status: database.QueueStatusPending,
	})
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 8500, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, queue, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Errored, "duplicate entry is not an error")
	assert.Len(t, queue.entries, 1, "no second pending entry for the same item")
}

func TestPendingReviewSoftLockSkipsAutoWrite(t *testing.T) {
	// Even a change that would auto-accept must not race a pending decision
	item := &database.CatalogItem{
		ID: 4, Title: "The Lean Startup", Category: "books",
		PriceCents: cents(1000), AffiliateLink: link("https://www.amazon.com/dp/0307887898"),
		PriceStatus: database.PriceStatusActive, RequiresApproval: true,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	queue := &fakeQueue{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 1050, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, queue, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedPendingReview)
	assert.Equal(t, 0, report.AutoAccepted)
	assert.Equal(t, 1000, *item.PriceCents)
}

func TestOutOfStockRecordsZeroChangeHistory(t *testing.T) {
	item := &database.CatalogItem{
		ID: 5, Title: "Measure What Matters", Category: "books",
		PriceCents: cents(1799), AffiliateLink: link("https://www.amazon.com/dp/0525536221"),
		PriceStatus: database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	queue := &fakeQueue{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {Available: false},
	}}

	report, err := newTestUpdater(catalog, history, queue, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.OutOfStock)
	assert.Equal(t, database.PriceStatusOutOfStock, item.PriceStatus)
	assert.Equal(t, 1799, *item.PriceCents, "stored price untouched")
	require.Len(t, history.entries, 1, "zero-change row keeps the audit trail continuous")
	assert.Equal(t, history.entries[0].OldPriceCents, history.entries[0].NewPriceCents)
	assert.Equal(t, 0, history.entries[0].ChangeCents)
}

func TestFetchFailureIncrementsAttempts(t *testing.T) {
	item := &database.CatalogItem{
		ID: 6, Title: "Drive", Category: "books",
		PriceCents: cents(1200), AffiliateLink: link("https://www.amazon.com/dp/1594484805"),
		PriceStatus: database.PriceStatusActive, PriceFetchAttempts: 3,
	}
	catalog := newFakeCatalog(item)
	source := &scriptedSource{errs: map[string]error{
		*item.AffiliateLink: &pricesource.TransientError{Op: "fetch", Err: context.DeadlineExceeded},
	}}

	u := newTestUpdater(catalog, &fakeHistory{}, &fakeQueue{}, source)

	report, err := u.RunCycle(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 4, item.PriceFetchAttempts)
	assert.Equal(t, database.PriceStatusActive, item.PriceStatus, "below ceiling stays retryable")

	// One more failed cycle crosses the ceiling
	report, err = u.RunCycle(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 5, item.PriceFetchAttempts)
	assert.Equal(t, database.PriceStatusError, item.PriceStatus)
	assert.NotNil(t, item.LastPriceCheck, "freshness window advances even on failure")
}

func TestSingleItemFailureDoesNotAbortBatch(t *testing.T) {
	items := make([]*database.CatalogItem, 5)
	source := &scriptedSource{results: map[string]*pricesource.Result{}, errs: map[string]error{}}
	for i := range items {
		url := "https://www.amazon.com/dp/B00000000" + string(rune('1'+i))
		items[i] = &database.CatalogItem{
			ID: int64(i + 1), Title: "Book", Category: "books",
			PriceCents: cents(1000), AffiliateLink: link(url),
			PriceStatus: database.PriceStatusActive,
		}
		if i == 2 {
			source.errs[url] = &pricesource.TransientError{Op: "fetch", Err: context.DeadlineExceeded}
		} else {
			source.results[url] = &pricesource.Result{PriceCents: 1010, Available: true}
		}
	}

	catalog := newFakeCatalog(items...)
	report, err := newTestUpdater(catalog, &fakeHistory{}, &fakeQueue{}, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 5, report.Processed, "report covers every selected item")
	assert.Equal(t, 4, report.AutoAccepted)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 1, items[2].PriceFetchAttempts)
	for i, item := range items {
		if i != 2 {
			assert.Equal(t, 1010, *item.PriceCents, "item %d processed normally", i+1)
		}
	}
}

func TestBaselinePriceAccepted(t *testing.T) {
	// Newly tracked item: no stored price yet
	item := &database.CatalogItem{
		ID: 7, Title: "New Arrival", Category: "books",
		AffiliateLink: link("https://www.amazon.com/dp/B000000007"),
		PriceStatus:   database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 9999, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, &fakeQueue{}, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.AutoAccepted)
	assert.Equal(t, 9999, *item.PriceCents)
	require.Len(t, history.entries, 1)
	assert.Nil(t, history.entries[0].ChangePercent, "no percentage against a zero baseline")
}

func TestNotFoundTreatedAsDelisted(t *testing.T) {
	item := &database.CatalogItem{
		ID: 8, Title: "Gone Book", Category: "books",
		PriceCents: cents(1500), AffiliateLink: link("https://www.amazon.com/dp/B000000008"),
		PriceStatus: database.PriceStatusActive,
	}
	catalog := newFakeCatalog(item)
	source := &scriptedSource{errs: map[string]error{
		*item.AffiliateLink: pricesource.ErrNotFound,
	}}

	report, err := newTestUpdater(catalog, &fakeHistory{}, &fakeQueue{}, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.OutOfStock)
	assert.Equal(t, database.PriceStatusOutOfStock, item.PriceStatus)
	assert.Equal(t, 1500, *item.PriceCents)
}

func TestUnchangedPriceSkipsHistory(t *testing.T) {
	item := &database.CatalogItem{
		ID: 9, Title: "Steady Book", Category: "books",
		PriceCents: cents(2500), AffiliateLink: link("https://www.amazon.com/dp/B000000009"),
		PriceStatus: database.PriceStatusError, PriceFetchAttempts: 2,
	}
	catalog := newFakeCatalog(item)
	history := &fakeHistory{}
	source := &scriptedSource{results: map[string]*pricesource.Result{
		*item.AffiliateLink: {PriceCents: 2500, Available: true},
	}}

	report, err := newTestUpdater(catalog, history, &fakeQueue{}, source).RunCycle(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Unchanged)
	assert.Empty(t, history.entries, "no history row without an observed change")
	assert.Equal(t, database.PriceStatusActive, item.PriceStatus, "successful lookup recovers error status")
	assert.Equal(t, 0, item.PriceFetchAttempts)
}
