package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mybookshelf/price-service/internal/database"
)

// TestStoreIntegration runs the database stores against a real postgres
// container with the production schema applied.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer postgresContainer.Terminate(ctx)

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Connect(ctx, connStr, 10, 2, 0, 0))
	defer database.Close()

	applySchema(ctx, t)

	pool := database.Pool()
	catalog := database.NewCatalogStore(pool)
	queue := database.NewQueueStore(pool)
	history := database.NewHistoryStore(pool)
	runs := database.NewRunStore(pool)

	itemID := insertItem(ctx, t, "Atomic Habits", 1700)

	t.Run("EnqueueAndDuplicate", func(t *testing.T) {
		entryID, err := queue.Enqueue(ctx, database.ValidationQueueEntry{
			ItemID:           itemID,
			OldPriceCents:    1700,
			NewPriceCents:    8500,
			PercentageChange: 400,
			ValidationReason: "change 400.0% exceeds max 35.0%",
			ValidationLayer:  "threshold_validation",
		})
		require.NoError(t, err)
		assert.Greater(t, entryID, int64(0))

		// Second pending entry for the same item is suppressed
		_, err = queue.Enqueue(ctx, database.ValidationQueueEntry{
			ItemID:           itemID,
			OldPriceCents:    1700,
			NewPriceCents:    9000,
			PercentageChange: 429.4,
			ValidationReason: "change 429.4% exceeds max 35.0%",
			ValidationLayer:  "threshold_validation",
		})
		assert.ErrorIs(t, err, database.ErrDuplicateEntry)

		entry, err := queue.GetEntry(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, database.QueueStatusPending, entry.Status)
		assert.Equal(t, 8500, entry.NewPriceCents)
		assert.Nil(t, entry.ReviewedAt)
	})

	t.Run("ListJoinsItemTitle", func(t *testing.T) {
		entries, total, err := queue.List(ctx, database.ListFilter{Status: database.QueueStatusPending})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, entries, 1)
		assert.Equal(t, "Atomic Habits", entries[0].ItemTitle)
	})

	t.Run("TransitionFirstReviewerWins", func(t *testing.T) {
		entries, _, err := queue.List(ctx, database.ListFilter{Status: database.QueueStatusPending})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		entryID := entries[0].ID

		notes := "Verified against publisher site"
		entry, err := queue.Transition(ctx, entryID, database.QueueStatusApproved, "alice@example.com", &notes)
		require.NoError(t, err)
		assert.Equal(t, database.QueueStatusApproved, entry.Status)
		require.NotNil(t, entry.ReviewedBy)
		assert.Equal(t, "alice@example.com", *entry.ReviewedBy)
		require.NotNil(t, entry.ReviewedAt)

		// Losing reviewer gets the winner's details back
		_, err = queue.Transition(ctx, entryID, database.QueueStatusRejected, "bob@example.com", nil)
		var invalid *database.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, database.QueueStatusApproved, invalid.Status)
		assert.Equal(t, "alice@example.com", invalid.ReviewedBy)

		// Terminal states never flip back
		_, err = queue.Transition(ctx, entryID, database.QueueStatusApproved, "carol@example.com", nil)
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("TransitionUnknownEntry", func(t *testing.T) {
		_, err := queue.Transition(ctx, 999999, database.QueueStatusApproved, "alice@example.com", nil)
		assert.ErrorIs(t, err, database.ErrEntryNotFound)
	})

	t.Run("NewPendingAllowedAfterReview", func(t *testing.T) {
		// The partial unique index only covers pending rows, so a fresh
		// flag on a reviewed item must enqueue cleanly
		entryID, err := queue.Enqueue(ctx, database.ValidationQueueEntry{
			ItemID:           itemID,
			OldPriceCents:    8500,
			NewPriceCents:    1200,
			PercentageChange: -85.9,
			ValidationReason: "change -85.9% exceeds max 35.0%",
			ValidationLayer:  "threshold_validation",
		})
		require.NoError(t, err)

		rejectNotes := "Listing error on retailer side"
		_, err = queue.Transition(ctx, entryID, database.QueueStatusRejected, "alice@example.com", &rejectNotes)
		require.NoError(t, err)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := queue.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Pending)
		assert.Equal(t, 1, stats.ApprovedToday)
		assert.Equal(t, 1, stats.RejectedToday)
		assert.Equal(t, 2, stats.TotalFlagged)
	})

	t.Run("CountStalePending", func(t *testing.T) {
		staleID := insertItem(ctx, t, "Deep Work", 1500)
		entryID, err := queue.Enqueue(ctx, database.ValidationQueueEntry{
			ItemID:           staleID,
			OldPriceCents:    1500,
			NewPriceCents:    9900,
			PercentageChange: 560,
			ValidationReason: "change 560.0% exceeds max 35.0%",
			ValidationLayer:  "threshold_validation",
		})
		require.NoError(t, err)

		count, err := queue.CountStalePending(ctx, 72)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		_, err = pool.Exec(ctx, `
			UPDATE price_validation_queue SET flagged_at = NOW() - INTERVAL '80 hours'
			WHERE id = $1
		`, entryID)
		require.NoError(t, err)

		count, err = queue.CountStalePending(ctx, 72)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("CatalogFlagAndCommit", func(t *testing.T) {
		flaggedID := insertItem(ctx, t, "The Pragmatic Programmer", 2400)

		require.NoError(t, catalog.MarkFlagged(ctx, flaggedID, "change 250.0% exceeds max 35.0%"))
		item, err := catalog.GetItem(ctx, flaggedID)
		require.NoError(t, err)
		assert.True(t, item.RequiresApproval)
		require.NotNil(t, item.PriceCents)
		assert.Equal(t, 2400, *item.PriceCents)

		require.NoError(t, catalog.CommitApprovedPrice(ctx, flaggedID, 8400, "Approved by admin"))
		item, err = catalog.GetItem(ctx, flaggedID)
		require.NoError(t, err)
		assert.False(t, item.RequiresApproval)
		require.NotNil(t, item.PriceCents)
		assert.Equal(t, 8400, *item.PriceCents)
		require.NotNil(t, item.LastValidationStatus)
		assert.Equal(t, database.ValidationApproved, *item.LastValidationStatus)
	})

	t.Run("CatalogReject", func(t *testing.T) {
		rejectedID := insertItem(ctx, t, "Clean Code", 3200)
		require.NoError(t, catalog.MarkFlagged(ctx, rejectedID, "suspicious jump"))
		require.NoError(t, catalog.MarkRejected(ctx, rejectedID, "Rejected by admin"))

		item, err := catalog.GetItem(ctx, rejectedID)
		require.NoError(t, err)
		assert.False(t, item.RequiresApproval)
		require.NotNil(t, item.PriceCents)
		assert.Equal(t, 3200, *item.PriceCents)
		require.NotNil(t, item.LastValidationStatus)
		assert.Equal(t, database.ValidationRejected, *item.LastValidationStatus)
	})

	t.Run("ApplyAcceptedPrice", func(t *testing.T) {
		acceptedID := insertItem(ctx, t, "Thinking Fast and Slow", 1400)
		require.NoError(t, catalog.ApplyAcceptedPrice(ctx, acceptedID, 1450))

		item, err := catalog.GetItem(ctx, acceptedID)
		require.NoError(t, err)
		require.NotNil(t, item.PriceCents)
		assert.Equal(t, 1450, *item.PriceCents)
		assert.Equal(t, database.PriceStatusActive, item.PriceStatus)
		assert.NotNil(t, item.PriceUpdatedAt)
	})

	t.Run("FetchFailureCeiling", func(t *testing.T) {
		failingID := insertItem(ctx, t, "Ghost Listing", 900)

		var attempts int
		var err error
		for i := 0; i < 5; i++ {
			attempts, err = catalog.RecordFetchFailure(ctx, failingID, 5)
			require.NoError(t, err)
		}
		assert.Equal(t, 5, attempts)

		item, err := catalog.GetItem(ctx, failingID)
		require.NoError(t, err)
		assert.Equal(t, database.PriceStatusError, item.PriceStatus)
	})

	t.Run("ItemsDueForCheck", func(t *testing.T) {
		dueID := insertItem(ctx, t, "Overdue Item", 1100)
		_, err := pool.Exec(ctx, `
			UPDATE catalog_items SET last_price_check = NOW() - INTERVAL '26 hours'
			WHERE id = $1
		`, dueID)
		require.NoError(t, err)

		freshID := insertItem(ctx, t, "Fresh Item", 1200)
		_, err = pool.Exec(ctx, `
			UPDATE catalog_items SET last_price_check = NOW() - INTERVAL '1 hour'
			WHERE id = $1
		`, freshID)
		require.NoError(t, err)

		due, err := catalog.ItemsDueForCheck(ctx, 25, 5, 100)
		require.NoError(t, err)

		ids := make(map[int64]bool, len(due))
		for _, item := range due {
			ids[item.ID] = true
		}
		assert.True(t, ids[dueID])
		assert.False(t, ids[freshID])
	})

	t.Run("History", func(t *testing.T) {
		histItemID := insertItem(ctx, t, "History Item", 1000)

		pct := 3.0
		_, err := history.Insert(ctx, database.PriceHistoryEntry{
			ItemID:        histItemID,
			OldPriceCents: 1000,
			NewPriceCents: 1030,
			ChangeCents:   30,
			ChangePercent: &pct,
			UpdateSource:  "automated",
		})
		require.NoError(t, err)

		entries, err := history.ListForItem(ctx, histItemID, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 1030, entries[0].NewPriceCents)
		require.NotNil(t, entries[0].ChangePercent)
		assert.InDelta(t, 3.0, *entries[0].ChangePercent, 0.001)

		recent, err := history.ListRecent(ctx, 7, 100)
		require.NoError(t, err)
		assert.NotEmpty(t, recent)
	})

	t.Run("UpdateRuns", func(t *testing.T) {
		runID, err := runs.Create(ctx, "integration-test")
		require.NoError(t, err)

		require.NoError(t, runs.Complete(ctx, runID, database.UpdateRun{
			Status:       "completed",
			Processed:    10,
			AutoAccepted: 7,
			Flagged:      2,
			Unchanged:    1,
		}))

		run, err := runs.Get(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "completed", run.Status)
		assert.Equal(t, 10, run.Processed)
		assert.Equal(t, 2, run.Flagged)
		assert.NotNil(t, run.CompletedAt)

		list, err := runs.List(ctx, 10, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})
}

func setupTestDatabase(ctx context.Context) (*postgres.PostgresContainer, error) {
	return postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(60*time.Second),
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
			),
		),
	)
}

func applySchema(ctx context.Context, t *testing.T) {
	t.Helper()

	schema, err := os.ReadFile("../../schema.sql")
	require.NoError(t, err)

	_, err = database.Pool().Exec(ctx, string(schema))
	require.NoError(t, err)
}

func insertItem(ctx context.Context, t *testing.T, title string, priceCents int) int64 {
	t.Helper()

	var id int64
	err := database.Pool().QueryRow(ctx, `
		INSERT INTO catalog_items (title, category, price_cents, affiliate_link)
		VALUES ($1, 'books', $2, 'https://example.com/dp/B000TEST')
		RETURNING id
	`, title, priceCents).Scan(&id)
	require.NoError(t, err)
	return id
}
