package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/service"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/response"
)

// ReportHandler wires survey exports to HTTP routes.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs a new ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create godoc
// @Summary Request a survey archive export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.ReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	job, err := h.reports.CreateJob(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// List godoc
// @Summary List recent export jobs
// @Tags Reports
// @Produce json
// @Param limit query int false "Max jobs returned"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	job, err := h.reports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description The token authenticates the download; no session is required.
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.File); err != nil {
		// Headers are already out; nothing sensible left to send.
		_ = c.Error(err)
	}
}
