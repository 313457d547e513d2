package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edugest/mini-pautas-api/internal/service"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/response"
)

// FormulaHandler exposes discipline-level formula endpoints.
type FormulaHandler struct {
	formulas *service.FormulaService
}

// NewFormulaHandler constructs the handler.
func NewFormulaHandler(formulas *service.FormulaService) *FormulaHandler {
	return &FormulaHandler{formulas: formulas}
}

// Get godoc
// @Summary Get the final-grade formula of a discipline
// @Tags Formulas
// @Produce json
// @Param id path string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /disciplines/{id}/formula [get]
func (h *FormulaHandler) Get(c *gin.Context) {
	formula, err := h.formulas.Get(c.Request.Context(), c.Param("id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, formula, nil)
}

// Set godoc
// @Summary Set the final-grade formula of a discipline
// @Tags Formulas
// @Accept json
// @Produce json
// @Param id path string true "Discipline ID"
// @Param period query string true "Grading period"
// @Param payload body service.SetFormulaRequest true "Formula payload"
// @Success 200 {object} response.Envelope
// @Router /disciplines/{id}/formula [put]
func (h *FormulaHandler) Set(c *gin.Context) {
	var req service.SetFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	formula, err := h.formulas.Set(c.Request.Context(), c.Param("id"), c.Query("period"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, formula, nil)
}

// Validate godoc
// @Summary Dry-run validate a formula expression
// @Tags Formulas
// @Accept json
// @Produce json
// @Param id path string true "Discipline ID"
// @Param period query string true "Grading period"
// @Param payload body service.SetFormulaRequest true "Formula payload"
// @Success 200 {object} response.Envelope
// @Router /disciplines/{id}/formula/validate [post]
func (h *FormulaHandler) Validate(c *gin.Context) {
	var req service.SetFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	check, err := h.formulas.Validate(c.Request.Context(), c.Param("id"), c.Query("period"), req.Expression)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
