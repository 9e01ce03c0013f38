package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybookshelf/price-service/internal/database"
	"github.com/mybookshelf/price-service/internal/review"
)

// queueFake backs the review gateway in handler tests
type queueFake struct {
	entries map[int64]*database.ValidationQueueEntry
}

func (f *queueFake) GetEntry(_ context.Context, entryID int64) (*database.ValidationQueueEntry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return nil, database.ErrEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *queueFake) List(_ context.Context, filter database.ListFilter) ([]database.ValidationQueueEntry, int, error) {
	var out []database.ValidationQueueEntry
	for _, e := range f.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (f *queueFake) Transition(_ context.Context, entryID int64, newStatus, reviewedBy string,
	adminNotes *string) (*database.ValidationQueueEntry, error) {

	e, ok := f.entries[entryID]
	if !ok {
		return nil, database.ErrEntryNotFound
	}
	if e.Status != database.QueueStatusPending {
		return nil, &database.InvalidTransitionError{EntryID: entryID, Status: e.Status}
	}
	now := time.Now()
	e.Status = newStatus
	e.ReviewedBy = &reviewedBy
	e.ReviewedAt = &now
	e.AdminNotes = adminNotes
	copied := *e
	return &copied, nil
}

func (f *queueFake) Stats(_ context.Context) (*database.QueueStats, error) {
	return &database.QueueStats{Pending: len(f.entries)}, nil
}

type catalogFake struct {
	committed map[int64]int
}

func (f *catalogFake) CommitApprovedPrice(_ context.Context, itemID int64, newPriceCents int, _ string) error {
	f.committed[itemID] = newPriceCents
	return nil
}

func (f *catalogFake) MarkRejected(_ context.Context, _ int64, _ string) error { return nil }

type historyFake struct{}

func (historyFake) Insert(_ context.Context, _ database.PriceHistoryEntry) (int64, error) {
	return 1, nil
}

func setupRouter(queue *queueFake, catalog *catalogFake) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	gateway := review.New(queue, catalog, historyFake{}, zerolog.Nop())
	RegisterApprovalRoutes(router.Group("/internal/admin"), gateway)
	return router
}

func pendingApproval(id, itemID int64) *database.ValidationQueueEntry {
	return &database.ValidationQueueEntry{
		ID: id, ItemID: itemID,
		OldPriceCents: 1000, NewPriceCents: 8500, PercentageChange: 750,
		Status: database.QueueStatusPending, FlaggedAt: time.Now(),
	}
}

func TestApproveEndpoint(t *testing.T) {
	queue := &queueFake{entries: map[int64]*database.ValidationQueueEntry{1: pendingApproval(1, 10)}}
	catalog := &catalogFake{committed: map[int64]int{}}
	router := setupRouter(queue, catalog)

	body := bytes.NewBufferString(`{"notes":"looks legitimate"}`)
	req := httptest.NewRequest(http.MethodPost, "/internal/admin/approvals/1/approve", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var decision review.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, int64(10), decision.ItemID)
	assert.Equal(t, 8500, decision.NewPriceCents)
	assert.Equal(t, 8500, catalog.committed[10])
	assert.Equal(t, database.QueueStatusApproved, queue.entries[1].Status)
}

func TestApproveAlreadyReviewedConflict(t *testing.T) {
	entry := pendingApproval(1, 10)
	entry.Status = database.QueueStatusRejected
	queue := &queueFake{entries: map[int64]*database.ValidationQueueEntry{1: entry}}
	router := setupRouter(queue, &catalogFake{committed: map[int64]int{}})

	req := httptest.NewRequest(http.MethodPost, "/internal/admin/approvals/1/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already rejected")
}

func TestApproveUnknownEntry404(t *testing.T) {
	router := setupRouter(&queueFake{entries: map[int64]*database.ValidationQueueEntry{}},
		&catalogFake{committed: map[int64]int{}})

	req := httptest.NewRequest(http.MethodPost, "/internal/admin/approvals/42/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectEndpointLeavesPrice(t *testing.T) {
	queue := &queueFake{entries: map[int64]*database.ValidationQueueEntry{1: pendingApproval(1, 10)}}
	catalog := &catalogFake{committed: map[int64]int{}}
	router := setupRouter(queue, catalog)

	req := httptest.NewRequest(http.MethodPost, "/internal/admin/approvals/1/reject", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, catalog.committed)
	assert.Equal(t, database.QueueStatusRejected, queue.entries[1].Status)
}

func TestBulkApproveEndpoint(t *testing.T) {
	queue := &queueFake{entries: map[int64]*database.ValidationQueueEntry{
		1: pendingApproval(1, 10),
		2: pendingApproval(2, 11),
	}}
	catalog := &catalogFake{committed: map[int64]int{}}
	router := setupRouter(queue, catalog)

	body := bytes.NewBufferString(`{"entry_ids":[1,2,404]}`)
	req := httptest.NewRequest(http.MethodPost, "/internal/admin/approvals/bulk-approve", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var outcome review.BulkOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.ElementsMatch(t, []int64{1, 2}, outcome.Succeeded)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, int64(404), outcome.Failed[0].EntryID)
}

func TestListApprovalsInvalidStatus(t *testing.T) {
	router := setupRouter(&queueFake{entries: map[int64]*database.ValidationQueueEntry{}},
		&catalogFake{committed: map[int64]int{}})

	req := httptest.NewRequest(http.MethodGet, "/internal/admin/approvals?status=bogus", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListApprovalsEmpty(t *testing.T) {
	router := setupRouter(&queueFake{entries: map[int64]*database.ValidationQueueEntry{}},
		&catalogFake{committed: map[int64]int{}})

	req := httptest.NewRequest(http.MethodGet, "/internal/admin/approvals?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListApprovalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Entries)
	assert.Empty(t, resp.Entries)
	assert.Zero(t, resp.Total)
}
