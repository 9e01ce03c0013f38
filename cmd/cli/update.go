package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mybookshelf/price-service/internal/classifier"
	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/notify"
	"github.com/mybookshelf/price-service/internal/pricesource"
	"github.com/mybookshelf/price-service/internal/updater"
)

var (
	updateBatchSize int
	updateDryView   bool
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one price update cycle",
	Long: `Run a full price update cycle: select catalog items due for a check,
fetch current prices from the source, auto-accept ordinary changes, and queue
extreme changes for admin review.`,
	Example: `  price-service update
  price-service update --batch-size 100`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().IntVar(&updateBatchSize, "batch-size", 0, "Max items to process this cycle (defaults to configured batch size)")
	updateCmd.Flags().BoolVar(&updateDryView, "due-only", false, "Only list items due for a check, without fetching")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := database.Pool()

	catalog := database.NewCatalogStore(pool)
	history := database.NewHistoryStore(pool)
	queue := database.NewQueueStore(pool)
	runs := database.NewRunStore(pool)

	updaterCfg := updater.Config{
		BatchSize:        cfg.Pricing.BatchSize,
		FreshnessHours:   cfg.Pricing.FreshnessHours,
		MaxFetchAttempts: cfg.Pricing.MaxFetchAttempts,
		RetryMaxAttempts: uint64(cfg.Source.MaxRetries),
		RetryInterval:    time.Duration(cfg.Source.RetryIntervalMs) * time.Millisecond,
		Classifier: classifier.Config{
			DefaultMaxChangePercent:  cfg.Pricing.DefaultMaxChangePercent,
			CategoryMaxChangePercent: cfg.Pricing.CategoryMaxChangePct,
			MaxPriceCents:            cfg.Pricing.MaxPriceCents,
			MinPriceCents:            cfg.Pricing.MinPriceCents,
		},
	}
	if updateBatchSize > 0 {
		updaterCfg.BatchSize = updateBatchSize
	}

	if updateDryView {
		return listDueItems(ctx, catalog, updaterCfg)
	}

	notifier := notify.New(notify.Config{
		Enabled:    cfg.Notify.Enabled,
		WebhookURL: cfg.Notify.WebhookURL,
		APIKey:     cfg.Notify.APIKey,
		FromEmail:  cfg.Notify.FromEmail,
		AdminEmail: cfg.Notify.AdminEmail,
	}, *logger)

	source := pricesource.NewAmazonSource(pricesource.AmazonConfig{
		BaseURL:           cfg.Source.BaseURL,
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerMinute: float64(cfg.Source.RequestsPerMinute),
	}, *logger)

	u := updater.New(catalog, history, queue, runs, source, notifier, updaterCfg, *logger)

	report, err := u.RunCycle(ctx, "cli")
	if err != nil {
		return fmt.Errorf("update cycle failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PROCESSED\tACCEPTED\tFLAGGED\tUNCHANGED\tOUT OF STOCK\tERRORED\tSKIPPED")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		report.Processed, report.AutoAccepted, report.Flagged,
		report.Unchanged, report.OutOfStock, report.Errored, report.SkippedPendingReview)
	w.Flush()

	return nil
}

func listDueItems(ctx context.Context, catalog *database.CatalogStore, updaterCfg updater.Config) error {
	items, err := catalog.ItemsDueForCheck(ctx, updaterCfg.FreshnessHours, updaterCfg.MaxFetchAttempts, updaterCfg.BatchSize)
	if err != nil {
		return fmt.Errorf("select due items: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tSTATUS\tLAST CHECK\tATTEMPTS")
	for _, item := range items {
		price := "-"
		if item.PriceCents != nil {
			price = notify.FormatCents(*item.PriceCents)
		}
		lastCheck := "never"
		if item.LastPriceCheck != nil {
			lastCheck = item.LastPriceCheck.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
			item.ID, item.Title, price, item.PriceStatus, lastCheck, item.PriceFetchAttempts)
	}
	w.Flush()

	fmt.Printf("\n%d items due for a price check\n", len(items))
	return nil
}
