package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edugest/mini-pautas-api/internal/service"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/response"
)

// ComponentHandler exposes grade component catalog endpoints.
type ComponentHandler struct {
	components *service.ComponentService
}

// NewComponentHandler constructs the handler.
func NewComponentHandler(components *service.ComponentService) *ComponentHandler {
	return &ComponentHandler{components: components}
}

// List godoc
// @Summary List components of a discipline and period
// @Tags Components
// @Produce json
// @Param discipline_id query string true "Discipline ID"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /components [get]
func (h *ComponentHandler) List(c *gin.Context) {
	components, err := h.components.List(c.Request.Context(), c.Query("discipline_id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, components, nil)
}

// Get godoc
// @Summary Get one component
// @Tags Components
// @Produce json
// @Param id path string true "Component ID"
// @Success 200 {object} response.Envelope
// @Router /components/{id} [get]
func (h *ComponentHandler) Get(c *gin.Context) {
	component, err := h.components.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, component, nil)
}

// Create godoc
// @Summary Create a component
// @Tags Components
// @Accept json
// @Produce json
// @Param payload body service.SaveComponentRequest true "Component payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /components [post]
func (h *ComponentHandler) Create(c *gin.Context) {
	var req service.SaveComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.components.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result.Component, nil, warningMeta(result.Warning))
}

// Update godoc
// @Summary Update a component
// @Tags Components
// @Accept json
// @Produce json
// @Param id path string true "Component ID"
// @Param payload body service.SaveComponentRequest true "Component payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /components/{id} [put]
func (h *ComponentHandler) Update(c *gin.Context) {
	var req service.SaveComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.components.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Component, nil, warningMeta(result.Warning))
}

// Delete godoc
// @Summary Delete a component
// @Tags Components
// @Param id path string true "Component ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /components/{id} [delete]
func (h *ComponentHandler) Delete(c *gin.Context) {
	if err := h.components.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func warningMeta(warning string) map[string]interface{} {
	if warning == "" {
		return nil
	}
	return map[string]interface{}{"warning": warning}
}
