package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/reports"
)

var (
	reportOutput string
	reportDays   int
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the price review workbook",
	Long: `Render an XLSX workbook with the pending validation queue, recent price
changes, and update run outcomes.`,
	Example: `  price-service report --out review.xlsx
  price-service report --out review.xlsx --days 30`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOutput, "out", "price-review.xlsx", "Output file path")
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "History window in days")
}

func runReport(cmd *cobra.Command, args []string) error {
	pool := database.Pool()
	builder := reports.NewBuilder(
		database.NewQueueStore(pool),
		database.NewHistoryStore(pool),
		database.NewRunStore(pool),
	)

	opts := reports.DefaultOptions()
	if reportDays > 0 {
		opts.HistoryDays = reportDays
	}

	data, err := builder.Build(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if err := os.WriteFile(reportOutput, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("Report written to %s (%d bytes)\n", reportOutput, len(data))
	return nil
}
