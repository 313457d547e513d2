package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edugest/mini-pautas-api/internal/models"
	"github.com/edugest/mini-pautas-api/internal/service"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/response"
)

// GradeHandler exposes raw grade entry endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grade entries
// @Tags Grades
// @Produce json
// @Param student_id query string false "Student ID"
// @Param component_id query string false "Component ID"
// @Param discipline_id query string false "Discipline ID"
// @Param period query string false "Grading period"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	filter := models.GradeFilter{
		StudentID:    c.Query("student_id"),
		ComponentID:  c.Query("component_id"),
		DisciplineID: c.Query("discipline_id"),
		Period:       c.Query("period"),
	}
	grades, err := h.grades.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Upsert godoc
// @Summary Write one raw grade and recompute downstream values
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req service.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grades.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, warningMeta(result.Warning))
}

// Delete godoc
// @Summary Delete one raw grade and recompute downstream values
// @Tags Grades
// @Produce json
// @Param student_id query string true "Student ID"
// @Param component_id query string true "Component ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	result, err := h.grades.Delete(c.Request.Context(), c.Query("student_id"), c.Query("component_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
