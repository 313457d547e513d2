package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edugest/mini-pautas-api/internal/service"
	"github.com/edugest/mini-pautas-api/pkg/response"
)

// ReportHandler exposes final grades, pautas, report cards and exports.
type ReportHandler struct {
	reports   *service.ReportService
	recompute *service.RecomputeService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports *service.ReportService, recompute *service.RecomputeService) *ReportHandler {
	return &ReportHandler{reports: reports, recompute: recompute}
}

// GetFinal godoc
// @Summary Get the final grade of a student in a discipline
// @Tags Finals
// @Produce json
// @Param student_id query string true "Student ID"
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /finals [get]
func (h *ReportHandler) GetFinal(c *gin.Context) {
	final, err := h.reports.GetFinal(c.Request.Context(), c.Query("student_id"), c.Query("discipline_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, final, nil)
}

// ClassPauta godoc
// @Summary Get the grade sheet of a class for one discipline and period
// @Tags Reports
// @Produce json
// @Param class_id query string true "Class ID"
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /reports/pauta [get]
func (h *ReportHandler) ClassPauta(c *gin.Context) {
	pauta, err := h.reports.ClassPauta(c.Request.Context(), c.Query("class_id"), c.Query("discipline_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pauta, nil)
}

// ExportPauta godoc
// @Summary Download the grade sheet as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param class_id query string true "Class ID"
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /reports/pauta/export [get]
func (h *ReportHandler) ExportPauta(c *gin.Context) {
	exported, err := h.reports.ExportPauta(c.Request.Context(), c.Query("class_id"), c.Query("discipline_id"), c.Query("period"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+exported.Filename)
	c.Data(http.StatusOK, exported.ContentType, exported.Payload)
}

// ReportCard godoc
// @Summary Get a student's per-discipline final grades
// @Tags Reports
// @Produce json
// @Param student_id query string true "Student ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /reports/report-card [get]
func (h *ReportHandler) ReportCard(c *gin.Context) {
	card, err := h.reports.StudentReportCard(c.Request.Context(), c.Query("student_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// RecomputeStudent godoc
// @Summary Recompute one student's final grade synchronously
// @Tags Recompute
// @Produce json
// @Param id path string true "Student ID"
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recompute/students/{id} [post]
func (h *ReportHandler) RecomputeStudent(c *gin.Context) {
	result, err := h.recompute.RecomputeStudent(c.Request.Context(), c.Param("id"), c.Query("discipline_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RecomputeClass godoc
// @Summary Recompute a whole class in the background
// @Tags Recompute
// @Produce json
// @Param id path string true "Class ID"
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recompute/classes/{id} [post]
func (h *ReportHandler) RecomputeClass(c *gin.Context) {
	summary, err := h.recompute.RecomputeClass(c.Request.Context(), c.Param("id"), c.Query("discipline_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, summary, nil)
}
