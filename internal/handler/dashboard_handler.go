package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/service"
	"github.com/class1/class1-admin-api/pkg/response"
)

// DashboardHandler exposes the landing-page summary.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs a new DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Aggregated counters for the current week and month
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
