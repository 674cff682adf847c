package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/service"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/response"
)

// ProgressHandler wires the weekly and monthly ledgers to HTTP routes.
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler constructs a new ProgressHandler.
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// GetWeek godoc
// @Summary Weekly checklist for all students
// @Tags Progress
// @Produce json
// @Param weekKey path string true "ISO week key (YYYY-Www)"
// @Success 200 {object} response.Envelope
// @Router /weekly/{weekKey} [get]
func (h *ProgressHandler) GetWeek(c *gin.Context) {
	view, err := h.progress.GetWeek(c.Request.Context(), c.Param("weekKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UpsertWeekly godoc
// @Summary Set one checklist field for one student
// @Description An empty date clears the field. The done flag is derived from the date.
// @Tags Progress
// @Accept json
// @Produce json
// @Param weekKey path string true "ISO week key (YYYY-Www)"
// @Param payload body service.WeeklyFieldRequest true "Field update"
// @Success 200 {object} response.Envelope
// @Router /weekly/{weekKey} [post]
func (h *ProgressHandler) UpsertWeekly(c *gin.Context) {
	var req service.WeeklyFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekly check payload"))
		return
	}
	view, err := h.progress.UpsertWeeklyField(c.Request.Context(), c.Param("weekKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Calendar godoc
// @Summary Weekly checklists for every ISO week overlapping a month
// @Tags Progress
// @Produce json
// @Param monthKey path string true "Month key (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /weekly/calendar/{monthKey} [get]
func (h *ProgressHandler) Calendar(c *gin.Context) {
	view, err := h.progress.Calendar(c.Request.Context(), c.Param("monthKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GetMonth godoc
// @Summary Monthly overview for all students
// @Tags Progress
// @Produce json
// @Param monthKey path string true "Month key (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /monthly/{monthKey} [get]
func (h *ProgressHandler) GetMonth(c *gin.Context) {
	view, err := h.progress.GetMonth(c.Request.Context(), c.Param("monthKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UpsertMonthly godoc
// @Summary Set a student's payment state for a month
// @Description Paid is derived from the last-paid date being present.
// @Tags Progress
// @Accept json
// @Produce json
// @Param monthKey path string true "Month key (YYYY-MM)"
// @Param payload body service.MonthlyCheckRequest true "Monthly update"
// @Success 200 {object} response.Envelope
// @Router /monthly/{monthKey} [post]
func (h *ProgressHandler) UpsertMonthly(c *gin.Context) {
	var req service.MonthlyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid monthly check payload"))
		return
	}
	view, err := h.progress.UpsertMonthly(c.Request.Context(), c.Param("monthKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
