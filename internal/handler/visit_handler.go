package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniclinic/clinic-api/internal/middleware"
	"github.com/uniclinic/clinic-api/internal/models"
	"github.com/uniclinic/clinic-api/internal/service"
	appErrors "github.com/uniclinic/clinic-api/pkg/errors"
	"github.com/uniclinic/clinic-api/pkg/response"
)

type visitService interface {
	CreateVisit(ctx context.Context, doctorID string, req service.CreateVisitRequest) (*models.Visit, error)
	Complete(ctx context.Context, visitID, doctorID string) (*models.Visit, error)
	ListVisits(ctx context.Context, filter models.VisitFilter) ([]models.Visit, *models.Pagination, error)
}

// VisitHandler exposes clinic visit endpoints.
type VisitHandler struct {
	service visitService
}

// NewVisitHandler constructs handler.
func NewVisitHandler(svc visitService) *VisitHandler {
	return &VisitHandler{service: svc}
}

// Create godoc
// @Summary Record a visit for a booked slot
// @Tags Visits
// @Accept json
// @Produce json
// @Param payload body service.CreateVisitRequest true "Visit payload"
// @Success 201 {object} response.Envelope
// @Router /doctor/visits [post]
func (h *VisitHandler) Create(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	visit, err := h.service.CreateVisit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visit)
}

// Complete godoc
// @Summary Complete a pending visit
// @Description Marks the visit completed and closes its slot. Only the owning doctor may complete.
// @Tags Visits
// @Produce json
// @Param id path string true "Visit ID"
// @Success 200 {object} response.Envelope
// @Router /doctor/visits/{id}/complete [post]
func (h *VisitHandler) Complete(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	visit, err := h.service.Complete(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// List godoc
// @Summary List visits
// @Description Doctors see their own schedule, students their own visits, admins everything.
// @Tags Visits
// @Produce json
// @Param status query string false "Visit status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /visits [get]
func (h *VisitHandler) List(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.VisitFilter{
		Status:   models.VisitStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	switch claims.Role {
	case models.RoleDoctor:
		filter.DoctorID = claims.UserID
	case models.RoleStudent:
		filter.PatientID = claims.UserID
	case models.RoleAdmin:
		filter.DoctorID = c.Query("doctor_id")
		filter.PatientID = c.Query("patient_id")
	}

	visits, pagination, err := h.service.ListVisits(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visits, pagination)
}
