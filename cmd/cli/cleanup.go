package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/jobs"
)

var (
	cleanupDryRun     bool
	cleanupTestData   bool
	reviewedRetention int
	historyRetention  int
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run retention cleanup jobs",
	Long: `Delete reviewed queue entries, price history, and run records past their
retention windows. Pending queue entries are never deleted. With --test-data,
also remove rows created by tests and seeding scripts.`,
	Example: `  price-service cleanup --dry-run
  price-service cleanup --reviewed-days 30
  price-service cleanup --test-data`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without deleting")
	cleanupCmd.Flags().BoolVar(&cleanupTestData, "test-data", false, "Also delete rows flagged is_test")
	cleanupCmd.Flags().IntVar(&reviewedRetention, "reviewed-days", 0, "Retention for reviewed queue entries (defaults to 90)")
	cleanupCmd.Flags().IntVar(&historyRetention, "history-days", 0, "Retention for price history and runs (defaults to 365)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := database.Pool()

	retention := jobs.DefaultCleanupConfig()
	if reviewedRetention > 0 {
		retention.ReviewedRetentionDays = reviewedRetention
	}
	if historyRetention > 0 {
		retention.HistoryRetentionDays = historyRetention
	}

	if cleanupDryRun {
		stats, err := jobs.GetCleanupStats(ctx, pool, retention)
		if err != nil {
			return fmt.Errorf("cleanup stats: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TARGET\tROWS")
		fmt.Fprintf(w, "reviewed queue entries\t%d\n", stats["reviewed_entries"])
		fmt.Fprintf(w, "old history rows\t%d\n", stats["old_history"])
		fmt.Fprintf(w, "test items\t%d\n", stats["test_items"])
		w.Flush()
		return nil
	}

	if err := jobs.RunAllCleanupJobs(ctx, pool, retention); err != nil {
		return fmt.Errorf("cleanup jobs: %w", err)
	}

	if cleanupTestData {
		deleted, err := jobs.CleanupTestData(ctx, pool)
		if err != nil {
			return fmt.Errorf("cleanup test data: %w", err)
		}
		fmt.Printf("Deleted %d test rows\n", deleted)
	}

	fmt.Println("Cleanup complete")
	return nil
}
