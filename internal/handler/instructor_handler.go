package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/class1/class1-admin-api/internal/service"
	appErrors "github.com/class1/class1-admin-api/pkg/errors"
	"github.com/class1/class1-admin-api/pkg/response"
)

// InstructorHandler wires instructor services to HTTP routes.
type InstructorHandler struct {
	instructors *service.InstructorService
}

// NewInstructorHandler constructs a new InstructorHandler.
func NewInstructorHandler(instructors *service.InstructorService) *InstructorHandler {
	return &InstructorHandler{instructors: instructors}
}

// List godoc
// @Summary List instructors
// @Tags Instructors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	instructors, err := h.instructors.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// Get godoc
// @Summary Get instructor detail
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	instructor, err := h.instructors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Create godoc
// @Summary Create instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body service.InstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Router /instructors [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	var req service.InstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	instructor, err := h.instructors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// Update godoc
// @Summary Rename instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body service.InstructorRequest true "Instructor payload"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [put]
func (h *InstructorHandler) Update(c *gin.Context) {
	var req service.InstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	instructor, err := h.instructors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}

// Delete godoc
// @Summary Delete instructor
// @Description Removes the instructor; assigned students become unassigned.
// @Tags Instructors
// @Param id path string true "Instructor ID"
// @Success 204
// @Router /instructors/{id} [delete]
func (h *InstructorHandler) Delete(c *gin.Context) {
	if err := h.instructors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
