// Package reports renders admin-facing XLSX exports of the validation
// queue, recent price movements, and update run outcomes.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mybookshelf/price-service/internal/database"
)

const (
	sheetPending = "Pending Review"
	sheetHistory = "Recent Changes"
	sheetRuns    = "Update Runs"
)

// QueueLister lists validation queue entries
type QueueLister interface {
	List(ctx context.Context, filter database.ListFilter) ([]database.ValidationQueueEntry, int, error)
}

// HistoryLister lists recent price history rows
type HistoryLister interface {
	ListRecent(ctx context.Context, days, limit int) ([]database.PriceHistoryEntry, error)
}

// RunLister lists update run records
type RunLister interface {
	List(ctx context.Context, limit, offset int) ([]database.UpdateRun, error)
}

// Builder assembles the price review workbook
type Builder struct {
	queue   QueueLister
	history HistoryLister
	runs    RunLister
}

// NewBuilder creates a report builder over the given stores
func NewBuilder(queue QueueLister, history HistoryLister, runs RunLister) *Builder {
	return &Builder{queue: queue, history: history, runs: runs}
}

// Options bounds the review report contents
type Options struct {
	HistoryDays  int // Window for the recent changes sheet
	MaxRows      int // Per-sheet row ceiling
	IncludeRules bool
}

// DefaultOptions returns the standard weekly report shape
func DefaultOptions() Options {
	return Options{
		HistoryDays: 7,
		MaxRows:     1000,
	}
}

// Build renders the workbook and returns the xlsx bytes
func (b *Builder) Build(ctx context.Context, opts Options) ([]byte, error) {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 7
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 1000
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetPending)
	if err := b.writePendingSheet(ctx, f, opts); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetHistory); err != nil {
		return nil, fmt.Errorf("create history sheet: %w", err)
	}
	if err := b.writeHistorySheet(ctx, f, opts); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetRuns); err != nil {
		return nil, fmt.Errorf("create runs sheet: %w", err)
	}
	if err := b.writeRunsSheet(ctx, f, opts); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) writePendingSheet(ctx context.Context, f *excelize.File, opts Options) error {
	entries, _, err := b.queue.List(ctx, database.ListFilter{
		Status: database.QueueStatusPending,
		Limit:  opts.MaxRows,
	})
	if err != nil {
		return fmt.Errorf("list pending entries: %w", err)
	}

	writeHeader(f, sheetPending, []string{
		"Entry ID", "Item", "Old Price", "New Price", "Change %", "Reason", "Flagged At",
	})

	for i, e := range entries {
		row := i + 2
		setRow(f, sheetPending, row, []any{
			e.ID,
			e.ItemTitle,
			centsToDollars(e.OldPriceCents),
			centsToDollars(e.NewPriceCents),
			fmt.Sprintf("%+.1f%%", e.PercentageChange),
			e.ValidationReason,
			e.FlaggedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (b *Builder) writeHistorySheet(ctx context.Context, f *excelize.File, opts Options) error {
	entries, err := b.history.ListRecent(ctx, opts.HistoryDays, opts.MaxRows)
	if err != nil {
		return fmt.Errorf("list recent history: %w", err)
	}

	writeHeader(f, sheetHistory, []string{
		"Item ID", "Old Price", "New Price", "Change", "Change %", "Source", "Recorded At",
	})

	for i, e := range entries {
		changePct := ""
		if e.ChangePercent != nil {
			changePct = fmt.Sprintf("%+.1f%%", *e.ChangePercent)
		}
		row := i + 2
		setRow(f, sheetHistory, row, []any{
			e.ItemID,
			centsToDollars(e.OldPriceCents),
			centsToDollars(e.NewPriceCents),
			centsToDollars(e.ChangeCents),
			changePct,
			e.UpdateSource,
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (b *Builder) writeRunsSheet(ctx context.Context, f *excelize.File, opts Options) error {
	runs, err := b.runs.List(ctx, opts.MaxRows, 0)
	if err != nil {
		return fmt.Errorf("list update runs: %w", err)
	}

	writeHeader(f, sheetRuns, []string{
		"Run ID", "Source", "Status", "Started", "Processed", "Auto Accepted",
		"Flagged", "Unchanged", "Out Of Stock", "Errored",
	})

	for i, r := range runs {
		row := i + 2
		setRow(f, sheetRuns, row, []any{
			r.ID,
			r.Source,
			r.Status,
			r.StartedAt.Format(time.RFC3339),
			r.Processed,
			r.AutoAccepted,
			r.Flagged,
			r.Unchanged,
			r.OutOfStock,
			r.Errored,
		})
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, columns []string) {
	setRow(f, sheet, 1, toAny(columns))
}

func setRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		// Best effort; a bad cell leaves a gap rather than failing the report
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func centsToDollars(cents int) float64 {
	return float64(cents) / 100
}
