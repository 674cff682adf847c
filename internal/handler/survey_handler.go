package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/repository"
	"github.com/class1/class1-admin-api/internal/service"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/response"
)

// SurveyHandler wires survey intake and the archive to HTTP routes.
type SurveyHandler struct {
	surveys *service.SurveyService
}

// NewSurveyHandler constructs a new SurveyHandler.
func NewSurveyHandler(surveys *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveys: surveys}
}

// Submit godoc
// @Summary Submit a survey response
// @Description Public endpoint used by the satisfaction form. Flags the student's current-month record.
// @Tags Surveys
// @Accept json
// @Produce json
// @Param payload body service.SubmitSurveyRequest true "Survey payload"
// @Success 201 {object} response.Envelope
// @Router /surveys [post]
func (h *SurveyHandler) Submit(c *gin.Context) {
	var req service.SubmitSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid survey payload"))
		return
	}
	survey, err := h.surveys.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, survey)
}

// List godoc
// @Summary List survey responses
// @Tags Surveys
// @Produce json
// @Param month query string false "Filter by submission month (YYYY-MM)"
// @Param search query string false "Search by member number or student name"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /surveys [get]
func (h *SurveyHandler) List(c *gin.Context) {
	filter := repository.SurveyFilter{
		MonthKey: c.Query("month"),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	surveys, pagination, err := h.surveys.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, surveys, pagination)
}

// Months godoc
// @Summary List months having survey responses
// @Tags Surveys
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /surveys/months [get]
func (h *SurveyHandler) Months(c *gin.Context) {
	months, err := h.surveys.Months(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, months, nil)
}

// Get godoc
// @Summary Get one survey response
// @Tags Surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Success 200 {object} response.Envelope
// @Router /surveys/{id} [get]
func (h *SurveyHandler) Get(c *gin.Context) {
	survey, err := h.surveys.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, survey, nil)
}

// Delete godoc
// @Summary Delete one survey response
// @Tags Surveys
// @Param id path string true "Survey ID"
// @Success 204
// @Router /surveys/{id} [delete]
func (h *SurveyHandler) Delete(c *gin.Context) {
	if err := h.surveys.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
