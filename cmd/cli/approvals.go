package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/notify"
	"github.com/mybookshelf/price-service/internal/review"
)

var (
	approvalsStatus string
	approvalsLimit  int
	decisionBy      string
	decisionNotes   string
)

// approvalsCmd represents the approvals command group
var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Review flagged price changes",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List validation queue entries",
	Example: `  price-service approvals list
  price-service approvals list --status approved --limit 20`,
	RunE: runApprovalsList,
}

var approvalsApproveCmd = &cobra.Command{
	Use:     "approve <entry-id>",
	Short:   "Approve a flagged price change",
	Example: `  price-service approvals approve 42 --by admin@mybookshelf.io`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecision(args[0], true)
	},
}

var approvalsRejectCmd = &cobra.Command{
	Use:     "reject <entry-id>",
	Short:   "Reject a flagged price change",
	Example: `  price-service approvals reject 42 --by admin@mybookshelf.io --notes "scrape error"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecision(args[0], false)
	},
}

var approvalsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show validation queue counters",
	RunE:  runApprovalsStats,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsRejectCmd, approvalsStatsCmd)

	approvalsListCmd.Flags().StringVar(&approvalsStatus, "status", "pending", "Filter by status (pending, approved, rejected, all)")
	approvalsListCmd.Flags().IntVar(&approvalsLimit, "limit", 50, "Max entries to list")

	for _, cmd := range []*cobra.Command{approvalsApproveCmd, approvalsRejectCmd} {
		cmd.Flags().StringVar(&decisionBy, "by", "cli", "Reviewer identity recorded on the decision")
		cmd.Flags().StringVar(&decisionNotes, "notes", "", "Review notes")
	}
}

func newGateway() *review.Gateway {
	pool := database.Pool()
	return review.New(
		database.NewQueueStore(pool),
		database.NewCatalogStore(pool),
		database.NewHistoryStore(pool),
		*logger,
	)
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	status := approvalsStatus
	if status == "all" {
		status = ""
	}

	entries, total, err := newGateway().List(context.Background(), database.ListFilter{
		Status: status,
		Limit:  approvalsLimit,
	})
	if err != nil {
		return fmt.Errorf("list queue entries: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tITEM\tOLD\tNEW\tCHANGE\tSTATUS\tREASON\tFLAGGED")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%+.1f%%\t%s\t%s\t%s\n",
			e.ID, e.ItemTitle,
			notify.FormatCents(e.OldPriceCents), notify.FormatCents(e.NewPriceCents),
			e.PercentageChange, e.Status, e.ValidationReason,
			e.FlaggedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Printf("\n%d of %d entries\n", len(entries), total)
	return nil
}

func runDecision(rawID string, approve bool) error {
	entryID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", rawID)
	}

	var notes *string
	if decisionNotes != "" {
		notes = &decisionNotes
	}

	gateway := newGateway()
	ctx := context.Background()

	var decision *review.Decision
	if approve {
		decision, err = gateway.Approve(ctx, entryID, decisionBy, notes)
	} else {
		decision, err = gateway.Reject(ctx, entryID, decisionBy, notes)
	}
	if err != nil {
		return err
	}

	verb := "rejected"
	if approve {
		verb = "approved"
	}
	fmt.Printf("Entry %d %s: item %d, proposed price %s\n",
		entryID, verb, decision.ItemID, notify.FormatCents(decision.NewPriceCents))
	return nil
}

func runApprovalsStats(cmd *cobra.Command, args []string) error {
	stats, err := newGateway().Stats(context.Background())
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PENDING\tAPPROVED TODAY\tREJECTED TODAY\tTOTAL")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\n",
		stats.Pending, stats.ApprovedToday, stats.RejectedToday, stats.TotalFlagged)
	w.Flush()
	return nil
}
