package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/middleware"
	"github.com/mybookshelf/price-service/internal/review"
)

// ApprovalsHandler serves the admin review API over the validation queue
type ApprovalsHandler struct {
	gateway *review.Gateway
}

// NewApprovalsHandler creates the approvals handler
func NewApprovalsHandler(gateway *review.Gateway) *ApprovalsHandler {
	return &ApprovalsHandler{gateway: gateway}
}

// ListApprovalsRequest represents query parameters for listing queue entries
type ListApprovalsRequest struct {
	Status string `form:"status" json:"status" jsonschema:"enum=pending,enum=approved,enum=rejected"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=200" jsonschema:"minimum=0,maximum=200"`
	Offset int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListApprovalsResponse represents the response for listing queue entries
type ListApprovalsResponse struct {
	Entries []database.ValidationQueueEntry `json:"entries" jsonschema:"required"`
	Total   int                             `json:"total" jsonschema:"required"`
}

// DecisionRequest represents the body of an approve or reject call
type DecisionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// BulkDecisionRequest represents the body of a bulk approve or reject call
type BulkDecisionRequest struct {
	EntryIDs []int64 `json:"entry_ids" binding:"required,min=1" jsonschema:"required,minItems=1"`
	Notes    *string `json:"notes,omitempty"`
}

// ListApprovals returns queue entries, newest flags first
// @Summary List validation queue entries
// @Description Returns flagged price changes with optional status filter, newest first
// @Tags approvals
// @Produce json
// @Param status query string false "Filter by status" Enums(pending, approved, rejected)
// @Param limit query int false "Number of entries to return" default(50) minimum(0) maximum(200)
// @Param offset query int false "Number of entries to skip" default(0) minimum(0)
// @Success 200 {object} ListApprovalsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/admin/approvals [get]
func (h *ApprovalsHandler) ListApprovals(c *gin.Context) {
	var req ListApprovalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != "" &&
		req.Status != database.QueueStatusPending &&
		req.Status != database.QueueStatusApproved &&
		req.Status != database.QueueStatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	entries, total, err := h.gateway.List(c.Request.Context(), database.ListFilter{
		Status: req.Status,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list queue entries"})
		return
	}
	if entries == nil {
		entries = []database.ValidationQueueEntry{}
	}

	c.JSON(http.StatusOK, ListApprovalsResponse{Entries: entries, Total: total})
}

// GetApproval returns a single queue entry
// @Summary Get a validation queue entry
// @Tags approvals
// @Produce json
// @Param id path int true "Queue entry ID"
// @Success 200 {object} database.ValidationQueueEntry
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /internal/admin/approvals/{id} [get]
func (h *ApprovalsHandler) GetApproval(c *gin.Context) {
	entryID, ok := entryIDParam(c)
	if !ok {
		return
	}

	entry, err := h.gateway.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, database.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entry"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Approve commits the flagged price change
// @Summary Approve a flagged price change
// @Description Transitions the entry to approved and writes the proposed price to the catalog
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path int true "Queue entry ID"
// @Param request body DecisionRequest false "Optional review notes"
// @Success 200 {object} review.Decision
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry already reviewed"
// @Router /internal/admin/approvals/{id}/approve [post]
func (h *ApprovalsHandler) Approve(c *gin.Context) {
	h.decide(c, h.gateway.Approve)
}

// Reject declines the flagged price change, leaving the stored price as is
// @Summary Reject a flagged price change
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path int true "Queue entry ID"
// @Param request body DecisionRequest false "Optional review notes"
// @Success 200 {object} review.Decision
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry already reviewed"
// @Router /internal/admin/approvals/{id}/reject [post]
func (h *ApprovalsHandler) Reject(c *gin.Context) {
	h.decide(c, h.gateway.Reject)
}

func (h *ApprovalsHandler) decide(c *gin.Context,
	decide func(ctx context.Context, entryID int64, reviewedBy string, notes *string) (*review.Decision, error)) {

	entryID, ok := entryIDParam(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	decision, err := decide(c.Request.Context(), entryID, middleware.Reviewer(c), req.Notes)
	if err != nil {
		var invalid *database.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			c.JSON(http.StatusConflict, gin.H{"error": invalid.Error()})
		case errors.Is(err, database.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}

// BulkApprove approves several entries in one call
// @Summary Bulk approve flagged price changes
// @Description Approves each entry independently and reports per-entry outcomes
// @Tags approvals
// @Accept json
// @Produce json
// @Param request body BulkDecisionRequest true "Entry IDs and optional notes"
// @Success 200 {object} review.BulkOutcome
// @Failure 400 {object} map[string]string "Bad request"
// @Router /internal/admin/approvals/bulk-approve [post]
func (h *ApprovalsHandler) BulkApprove(c *gin.Context) {
	h.bulkDecide(c, h.gateway.BulkApprove)
}

// BulkReject rejects several entries in one call
// @Summary Bulk reject flagged price changes
// @Tags approvals
// @Accept json
// @Produce json
// @Param request body BulkDecisionRequest true "Entry IDs and optional notes"
// @Success 200 {object} review.BulkOutcome
// @Failure 400 {object} map[string]string "Bad request"
// @Router /internal/admin/approvals/bulk-reject [post]
func (h *ApprovalsHandler) BulkReject(c *gin.Context) {
	h.bulkDecide(c, h.gateway.BulkReject)
}

func (h *ApprovalsHandler) bulkDecide(c *gin.Context,
	decide func(ctx context.Context, entryIDs []int64, reviewedBy string, notes *string) *review.BulkOutcome) {

	var req BulkDecisionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := decide(c.Request.Context(), req.EntryIDs, middleware.Reviewer(c), req.Notes)
	c.JSON(http.StatusOK, outcome)
}

// GetStats returns queue counters for the admin dashboard
// @Summary Validation queue statistics
// @Description Pending count, today's decisions, and the total flagged
// @Tags approvals
// @Produce json
// @Success 200 {object} database.QueueStats
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/admin/approvals/stats [get]
func (h *ApprovalsHandler) GetStats(c *gin.Context) {
	stats, err := h.gateway.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load queue stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RegisterApprovalRoutes mounts the review API on the given group
func RegisterApprovalRoutes(r *gin.RouterGroup, gateway *review.Gateway) {
	h := NewApprovalsHandler(gateway)
	r.GET("/approvals", h.ListApprovals)
	r.GET("/approvals/stats", h.GetStats)
	r.GET("/approvals/:id", h.GetApproval)
	r.POST("/approvals/:id/approve", h.Approve)
	r.POST("/approvals/:id/reject", h.Reject)
	r.POST("/approvals/bulk-approve", h.BulkApprove)
	r.POST("/approvals/bulk-reject", h.BulkReject)
}

func entryIDParam(c *gin.Context) (int64, bool) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || entryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return 0, false
	}
	return entryID, true
}
