package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniclinic/clinic-api/internal/middleware"
	"github.com/uniclinic/clinic-api/internal/models"
	"github.com/uniclinic/clinic-api/internal/service"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
	"github.com/uniclinic/clinic-api/pkg/response"
)

type slotService interface {
	CreateManual(ctx context.Context, doctorID string, req service.CreateSlotRequest) (*models.Slot, error)
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error)
}

type bookingService interface {
	Claim(ctx context.Context, slotID, patientID string) (*service.ClaimResult, error)
	Cancel(ctx context.Context, slotID, doctorID string) (*models.Slot, error)
}

// SlotHandler exposes slot browsing, manual creation and booking endpoints.
type SlotHandler struct {
	slots   slotService
	booking bookingService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(slots slotService, booking bookingService) *SlotHandler {
	return &SlotHandler{slots: slots, booking: booking}
}

// List godoc
// @Summary List slots
// @Description Filter by doctor, status and date range. Patients typically query status=available.
// @Tags Slots
// @Produce json
// @Param doctor_id query string false "Doctor ID"
// @Param status query string false "Slot status"
// @Param date_from query string false "Inclusive lower bound (YYYY-MM-DD)"
// @Param date_to query string false "Inclusive upper bound (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	filter := models.SlotFilter{
		DoctorID: c.Query("doctor_id"),
		Status:   models.SlotStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	var err error
	if filter.DateFrom, err = queryDate(c, "date_from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.DateTo, err = queryDate(c, "date_to"); err != nil {
		response.Error(c, err)
		return
	}

	claims := middleware.CurrentClaims(c)
	if claims != nil && claims.Role == models.RoleStudent {
		// Students may only see their own bookings besides open slots.
		if filter.Status != models.SlotAvailable {
			filter.PatientID = claims.UserID
		}
	}

	slots, pagination, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// CreateManual godoc
// @Summary Create a one-off slot inside an owned window
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /doctor/slots [post]
func (h *SlotHandler) CreateManual(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.CreateManual(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Claim godoc
// @Summary Claim an open slot
// @Description Atomically books the slot for the caller and opens a pending visit. Exactly one concurrent caller wins.
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id}/claim [post]
func (h *SlotHandler) Claim(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.booking.Claim(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a slot
// @Description Cancels the slot and any pending visit attached to it. Doctor must own the slot.
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /doctor/slots/{id}/cancel [post]
func (h *SlotHandler) Cancel(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	slot, err := h.booking.Cancel(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return &date, nil
}
