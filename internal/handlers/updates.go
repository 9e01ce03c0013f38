package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/updater"
)

// updateSem limits concurrent update cycles; the external source punishes
// parallel scraping, so one cycle at a time is plenty
var updateSem = make(chan struct{}, 1)

// UpdateRunner starts price update cycles
type UpdateRunner interface {
	RunCycle(ctx context.Context, runSource string) (*updater.CycleReport, error)
}

// RunReader reads persisted update run records
type RunReader interface {
	Get(ctx context.Context, runID int64) (*database.UpdateRun, error)
	List(ctx context.Context, limit, offset int) ([]database.UpdateRun, error)
}

// UpdatesHandler serves the update trigger and run inspection API
type UpdatesHandler struct {
	runner UpdateRunner
	runs   RunReader
}

// NewUpdatesHandler creates the updates handler
func NewUpdatesHandler(runner UpdateRunner, runs RunReader) *UpdatesHandler {
	return &UpdatesHandler{runner: runner, runs: runs}
}

// UpdateStartedResponse represents the 202 response when a cycle is started
type UpdateStartedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TriggerUpdate starts a price update cycle asynchronously
// @Summary Trigger a price update cycle
// @Description Starts one cycle in the background and returns immediately. At most one cycle runs at a time; a busy service returns 409.
// @Tags updates
// @Produce json
// @Success 202 {object} UpdateStartedResponse
// @Failure 409 {object} map[string]string "A cycle is already running"
// @Router /internal/admin/updates [post]
func (h *UpdatesHandler) TriggerUpdate(c *gin.Context) {
	select {
	case updateSem <- struct{}{}:
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "an update cycle is already running"})
		return
	}

	// Spawn goroutine for actual processing
	go func() {
		defer func() { <-updateSem }()

		// Use a background context; the cycle outlives the HTTP request
		bgCtx := context.Background()
		report, err := h.runner.RunCycle(bgCtx, "api")
		if err != nil {
			log.Error().Err(err).Msg("API-triggered update cycle failed")
			return
		}
		log.Info().
			Int64("run_id", report.RunID).
			Int("processed", report.Processed).
			Msg("API-triggered update cycle finished")
	}()

	c.JSON(http.StatusAccepted, UpdateStartedResponse{
		Status:  "started",
		Message: "Price update cycle started; poll /internal/admin/updates/runs for the outcome",
	})
}

// ListRunsResponse represents the response for listing update runs
type ListRunsResponse struct {
	Runs []database.UpdateRun `json:"runs" jsonschema:"required"`
}

// ListRuns returns recent update runs, newest first
// @Summary List price update runs
// @Tags updates
// @Produce json
// @Param limit query int false "Number of runs to return" default(20) minimum(1) maximum(100)
// @Param offset query int false "Number of runs to skip" default(0) minimum(0)
// @Success 200 {object} ListRunsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/admin/updates/runs [get]
func (h *UpdatesHandler) ListRuns(c *gin.Context) {
	limit, offset := paginationParams(c, 20, 100)

	runs, err := h.runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	if runs == nil {
		runs = []database.UpdateRun{}
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs})
}

// GetRun returns one update run record
// @Summary Get a price update run
// @Tags updates
// @Produce json
// @Param id path int true "Run ID"
// @Success 200 {object} database.UpdateRun
// @Failure 404 {object} map[string]string "Run not found"
// @Router /internal/admin/updates/runs/{id} [get]
func (h *UpdatesHandler) GetRun(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || runID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runs.Get(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("run %d not found", runID)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// RegisterUpdateRoutes mounts the update API on the given group
func RegisterUpdateRoutes(r *gin.RouterGroup, runner UpdateRunner, runs RunReader) {
	h := NewUpdatesHandler(runner, runs)
	r.POST("/updates", h.TriggerUpdate)
	r.GET("/updates/runs", h.ListRuns)
	r.GET("/updates/runs/:id", h.GetRun)
}

func paginationParams(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
