package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/response"
	"github.com/selekta/portal-backend/internal/service"
)

// DashboardHandler handles the admin overview and result export endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	exportService    *service.ExportService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, exportService *service.ExportService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		exportService:    exportService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboard godoc
// GET /api/v1/admin/dashboard
// Returns usage stats, the podium, and the leaderboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	data, err := h.dashboardService.GetDashboard(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Build dashboard failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// ListSessions godoc
// GET /api/v1/admin/sessions
// Returns every test session in leaderboard order.
func (h *DashboardHandler) ListSessions(c *gin.Context) {
	sessions, err := h.dashboardService.ListSessions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List sessions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ExportCSV godoc
// GET /api/v1/admin/export
// Streams all session results as a CSV download.
func (h *DashboardHandler) ExportCSV(c *gin.Context) {
	filename := h.exportService.Filename(time.Now())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exportService.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		// Headers may already be out; log and cut the stream.
		h.log.Error().Err(err).Msg("CSV export failed")
	}
}
