package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupConfig configures retention policies for cleanup jobs
type CleanupConfig struct {
	ReviewedRetentionDays int // Keep approved/rejected queue entries this long
	HistoryRetentionDays  int // Keep price history rows this long
}

// DefaultCleanupConfig returns sensible retention defaults
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		ReviewedRetentionDays: 90,  // Reviewed entries kept for auditing
		HistoryRetentionDays:  365, // Price history kept a full year
	}
}

// CleanupReviewedEntries removes queue entries decided long ago. Pending
// entries are never touched; an undecided flag stays visible until an
// admin resolves it.
func CleanupReviewedEntries(ctx context.Context, db *pgxpool.Pool, cfg CleanupConfig) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -cfg.ReviewedRetentionDays)

	result, err := db.Exec(ctx, `
		DELETE FROM price_validation_queue
		WHERE status IN ('approved', 'rejected')
		AND reviewed_at < $1
	`, cutoffDate)

	if err != nil {
		return 0, fmt.Errorf("cleanup reviewed entries: %w", err)
	}

	rowsAffected := result.RowsAffected()
	slog.Info("cleaned up reviewed queue entries", "rows_deleted", rowsAffected, "cutoff", cutoffDate)

	return rowsAffected, nil
}

// CleanupOldHistory removes price history rows past the retention window
func CleanupOldHistory(ctx context.Context, db *pgxpool.Pool, cfg CleanupConfig) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)

	result, err := db.Exec(ctx, `
		DELETE FROM price_history
		WHERE created_at < $1
	`, cutoffDate)

	if err != nil {
		return 0, fmt.Errorf("cleanup old history: %w", err)
	}

	rowsAffected := result.RowsAffected()
	slog.Info("cleaned up old price history", "rows_deleted", rowsAffected, "cutoff", cutoffDate)

	return rowsAffected, nil
}

// CleanupTestData removes rows created by tests and seeding scripts,
// identified by the is_test flag rather than title patterns.
func CleanupTestData(ctx context.Context, db *pgxpool.Pool) (int64, error) {
	var total int64

	result, err := db.Exec(ctx, `
		DELETE FROM price_validation_queue WHERE is_test = TRUE
	`)
	if err != nil {
		return 0, fmt.Errorf("cleanup test queue entries: %w", err)
	}
	total += result.RowsAffected()

	result, err = db.Exec(ctx, `
		DELETE FROM price_history
		WHERE item_id IN (SELECT id FROM catalog_items WHERE is_test = TRUE)
	`)
	if err != nil {
		return total, fmt.Errorf("cleanup test history: %w", err)
	}
	total += result.RowsAffected()

	result, err = db.Exec(ctx, `
		DELETE FROM catalog_items WHERE is_test = TRUE
	`)
	if err != nil {
		return total, fmt.Errorf("cleanup test items: %w", err)
	}
	total += result.RowsAffected()

	slog.Info("cleaned up test data", "rows_deleted", total)
	return total, nil
}

// CleanupOldRuns removes update run records older than the history window
func CleanupOldRuns(ctx context.Context, db *pgxpool.Pool, cfg CleanupConfig) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)

	result, err := db.Exec(ctx, `
		DELETE FROM price_update_runs
		WHERE started_at < $1
	`, cutoffDate)

	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}

	rowsAffected := result.RowsAffected()
	slog.Info("cleaned up old update runs", "rows_deleted", rowsAffected, "cutoff", cutoffDate)

	return rowsAffected, nil
}

// RunAllCleanupJobs runs all retention jobs in sequence. A single job's
// failure does not stop the rest.
func RunAllCleanupJobs(ctx context.Context, db *pgxpool.Pool, cfg CleanupConfig) error {
	slog.Info("starting cleanup jobs")

	if _, err := CleanupReviewedEntries(ctx, db, cfg); err != nil {
		slog.Error("failed to cleanup reviewed entries", "error", err)
	}

	if _, err := CleanupOldHistory(ctx, db, cfg); err != nil {
		slog.Error("failed to cleanup old history", "error", err)
	}

	if _, err := CleanupOldRuns(ctx, db, cfg); err != nil {
		slog.Error("failed to cleanup old runs", "error", err)
	}

	slog.Info("cleanup jobs completed")

	return nil
}

// GetCleanupStats returns counts of what each retention job would delete
func GetCleanupStats(ctx context.Context, db *pgxpool.Pool, cfg CleanupConfig) (map[string]int64, error) {
	stats := make(map[string]int64)

	reviewedCutoff := time.Now().AddDate(0, 0, -cfg.ReviewedRetentionDays)
	var reviewedCount int64
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM price_validation_queue
		WHERE status IN ('approved', 'rejected') AND reviewed_at < $1
	`, reviewedCutoff).Scan(&reviewedCount)
	if err != nil {
		return nil, fmt.Errorf("count reviewed entries: %w", err)
	}
	stats["reviewed_entries"] = reviewedCount

	historyCutoff := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)
	var historyCount int64
	err = db.QueryRow(ctx, `
		SELECT COUNT(*) FROM price_history WHERE created_at < $1
	`, historyCutoff).Scan(&historyCount)
	if err != nil {
		return nil, fmt.Errorf("count old history: %w", err)
	}
	stats["old_history"] = historyCount

	var testCount int64
	err = db.QueryRow(ctx, `
		SELECT COUNT(*) FROM catalog_items WHERE is_test = TRUE
	`).Scan(&testCount)
	if err != nil {
		return nil, fmt.Errorf("count test items: %w", err)
	}
	stats["test_items"] = testCount

	return stats, nil
}

// getPool returns the database connection pool
// This is a bridge to the database package to avoid circular dependencies
func getPool() *pgxpool.Pool {
	return dbPoolGetter()
}

// dbPoolGetter is a function that returns the database pool
// This will be set by the database package initialization
var dbPoolGetter func() *pgxpool.Pool

// RegisterDBPoolGetter registers the database pool getter function
// This should be called from the database package initialization
func RegisterDBPoolGetter(getter func() *pgxpool.Pool) {
	dbPoolGetter = getter
}
