package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniclinic/clinic-api/internal/middleware"
	"github.com/uniclinic/clinic-api/internal/service"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
	"github.com/uniclinic/clinic-api/pkg/response"
)

// AvailabilityHandler manages a doctor's recurring weekly windows.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Create godoc
// @Summary Create availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.CreateAvailabilityRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Router /doctor/availabilities [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// List godoc
// @Summary List own availability windows
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctor/availabilities [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	windows, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Update godoc
// @Summary Update availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body service.UpdateAvailabilityRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /doctor/availabilities/{id} [patch]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Delete availability window
// @Tags Availability
// @Param id path string true "Window ID"
// @Success 204
// @Router /doctor/availabilities/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
