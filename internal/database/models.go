package database

import (
	"time"
)

// Price status values for catalog items
const (
	PriceStatusActive     = "active"
	PriceStatusOutOfStock = "out_of_stock"
	PriceStatusError      = "error"
	PriceStatusDisabled   = "disabled"
)

// Validation queue entry statuses
const (
	QueueStatusPending  = "pending"
	QueueStatusApproved = "approved"
	QueueStatusRejected = "rejected"
)

// Validation states recorded on the catalog item itself
const (
	ValidationFlagged  = "flagged"
	ValidationApproved = "approved"
	ValidationRejected = "rejected"
)

// CatalogItem represents a tracked product in the affiliate catalog
type CatalogItem struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Category             string     `json:"category"`       // Threshold lookup key ('books', 'accessories', ...)
	PriceCents           *int       `json:"price_cents"`    // Committed price in cents, nil before first fetch
	AffiliateLink        *string    `json:"affiliate_link"` // Outbound product link the source client resolves
	PriceStatus          string     `json:"price_status"`   // 'active' | 'out_of_stock' | 'error' | 'disabled'
	LastPriceCheck       *time.Time `json:"last_price_check"`
	PriceFetchAttempts   int        `json:"price_fetch_attempts"` // Consecutive failed lookups, reset on success
	PriceUpdatedAt       *time.Time `json:"price_updated_at"`     // Last accepted price write
	RequiresApproval     bool       `json:"requires_approval"`    // Soft lock while a queue entry is pending
	LastValidationStatus *string    `json:"last_validation_status"`
	ValidationNotes      *string    `json:"validation_notes"`
	IsTest               bool       `json:"is_test"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PriceHistoryEntry is an immutable record of one observed price change
type PriceHistoryEntry struct {
	ID            int64     `json:"id"`
	ItemID        int64     `json:"item_id"`
	OldPriceCents int       `json:"old_price_cents"`
	NewPriceCents int       `json:"new_price_cents"`
	ChangeCents   int       `json:"change_cents"`
	ChangePercent *float64  `json:"change_percent"` // nil when the old price was zero
	UpdateSource  string    `json:"update_source"`  // 'automated', 'admin_approved', ...
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValidationQueueEntry is a flagged price change awaiting admin review
type ValidationQueueEntry struct {
	ID                int64      `json:"id"`
	ItemID            int64      `json:"item_id"`
	ItemTitle         string     `json:"item_title,omitempty"` // Joined from catalog_items for list views
	OldPriceCents     int        `json:"old_price_cents"`
	NewPriceCents     int        `json:"new_price_cents"`
	PercentageChange  float64    `json:"percentage_change"`
	ValidationReason  string     `json:"validation_reason"`
	ValidationLayer   string     `json:"validation_layer"`              // Rule that fired, e.g. 'threshold_validation'
	ValidationDetails []byte     `json:"validation_details,omitempty"`  // JSONB payload, rendered verbatim by the admin UI
	Status            string     `json:"status"`                        // 'pending' | 'approved' | 'rejected'
	FlaggedAt         time.Time  `json:"flagged_at"`
	ReviewedAt        *time.Time `json:"reviewed_at"` // nil iff status is pending
	ReviewedBy        *string    `json:"reviewed_by"`
	AdminNotes        *string    `json:"admin_notes"`
	IsTest            bool       `json:"is_test"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UpdateRun records the outcome of one price update cycle
type UpdateRun struct {
	ID                   int64      `json:"id"`
	Source               string     `json:"source"` // 'cli', 'api', 'scheduled'
	Status               string     `json:"status"` // 'running', 'completed', 'failed'
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	Processed            int        `json:"processed"`
	AutoAccepted         int        `json:"auto_accepted"`
	Flagged              int        `json:"flagged"`
	Unchanged            int        `json:"unchanged"`
	OutOfStock           int        `json:"out_of_stock"`
	Errored              int        `json:"errored"`
	SkippedPendingReview int        `json:"skipped_pending_review"`
	ErrorMessage         *string    `json:"error_message"`
	CreatedAt            time.Time  `json:"created_at"`
}

// QueueStats aggregates queue entries by status for dashboards
type QueueStats struct {
	Pending       int `json:"pending"`
	ApprovedToday int `json:"approved_today"`
	RejectedToday int `json:"rejected_today"`
	TotalFlagged  int `json:"total_flagged"`
}
