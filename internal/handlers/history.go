package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mybookshelf/price-service/internal/database"
)

// ItemHistoryResponse represents the price history of one catalog item
type ItemHistoryResponse struct {
	Item    *database.CatalogItem        `json:"item" jsonschema:"required"`
	History []database.PriceHistoryEntry `json:"history" jsonschema:"required"`
}

// HistoryHandler serves price history for catalog items
type HistoryHandler struct {
	catalog *database.CatalogStore
	history *database.HistoryStore
}

// NewHistoryHandler creates the history handler
func NewHistoryHandler(catalog *database.CatalogStore, history *database.HistoryStore) *HistoryHandler {
	return &HistoryHandler{catalog: catalog, history: history}
}

// GetItemHistory returns an item with its price history, newest first
// @Summary Get price history for a catalog item
// @Tags history
// @Produce json
// @Param id path int true "Catalog item ID"
// @Param limit query int false "Number of history rows to return" default(50) minimum(1) maximum(500)
// @Param offset query int false "Number of history rows to skip" default(0) minimum(0)
// @Success 200 {object} ItemHistoryResponse
// @Failure 404 {object} map[string]string "Item not found"
// @Router /internal/items/{id}/history [get]
func (h *HistoryHandler) GetItemHistory(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	ctx := c.Request.Context()
	item, err := h.catalog.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load item"})
		return
	}

	limit, offset := paginationParams(c, 50, 500)
	history, err := h.history.ListForItem(ctx, itemID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if history == nil {
		history = []database.PriceHistoryEntry{}
	}

	c.JSON(http.StatusOK, ItemHistoryResponse{Item: item, History: history})
}

// RegisterHistoryRoutes mounts the history API on the given group
func RegisterHistoryRoutes(r *gin.RouterGroup, catalog *database.CatalogStore, history *database.HistoryStore) {
	h := NewHistoryHandler(catalog, history)
	r.GET("/items/:id/history", h.GetItemHistory)
}
