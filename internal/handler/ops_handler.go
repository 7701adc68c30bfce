package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniclinic/clinic-api/internal/service"
	"github.com/uniclinic/clinic-api/pkg/response"
)

type slotJobs interface {
	Run(ctx context.Context) (*service.GenerationResult, error)
	Cleanup(ctx context.Context) (int64, error)
}

// OpsHandler exposes admin-triggered maintenance operations that the
// scheduler otherwise runs on cadence.
type OpsHandler struct {
	jobs slotJobs
}

// NewOpsHandler constructs handler.
func NewOpsHandler(jobs slotJobs) *OpsHandler {
	return &OpsHandler{jobs: jobs}
}

// Generate godoc
// @Summary Generate next week's slots now
// @Description Runs the weekly slot generation synchronously. Safe to repeat; existing slots are skipped.
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/ops/generate-slots [post]
func (h *OpsHandler) Generate(c *gin.Context) {
	result, err := h.jobs.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cleanup godoc
// @Summary Remove expired unclaimed slots now
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/ops/cleanup-slots [post]
func (h *OpsHandler) Cleanup(c *gin.Context) {
	removed, err := h.jobs.Cleanup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
