package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mybookshelf/price-service/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves XLSX exports for the admin dashboard
type ReportsHandler struct {
	builder *reports.Builder
}

// NewReportsHandler creates the reports handler
func NewReportsHandler(builder *reports.Builder) *ReportsHandler {
	return &ReportsHandler{builder: builder}
}

// DownloadReviewReport renders and streams the review workbook
// @Summary Download the price review report
// @Description XLSX workbook with pending reviews, recent price changes, and update run outcomes
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param days query int false "History window in days" default(7) minimum(1) maximum(90)
// @Success 200 {file} binary
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/admin/reports/review [get]
func (h *ReportsHandler) DownloadReviewReport(c *gin.Context) {
	opts := reports.DefaultOptions()
	if v, err := strconv.Atoi(c.DefaultQuery("days", "")); err == nil && v > 0 && v <= 90 {
		opts.HistoryDays = v
	}

	data, err := h.builder.Build(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	filename := fmt.Sprintf("price-review-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// RegisterReportRoutes mounts the report API on the given group
func RegisterReportRoutes(r *gin.RouterGroup, builder *reports.Builder) {
	h := NewReportsHandler(builder)
	r.GET("/reports/review", h.DownloadReviewReport)
}
