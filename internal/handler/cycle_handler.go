package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
	"github.com/noah-isme/staff-appraisal-api/pkg/response"
)

type cycleService interface {
	List(ctx context.Context) ([]models.AppraisalCycle, error)
	Get(ctx context.Context, id string) (*models.AppraisalCycle, error)
}

// CycleHandler exposes appraisal cycle lookups.
type CycleHandler struct {
	service cycleService
}

// NewCycleHandler constructs the handler.
func NewCycleHandler(service cycleService) *CycleHandler {
	return &CycleHandler{service: service}
}

// List godoc
// @Summary List appraisal cycles, newest first
// @Tags Cycles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cycles [get]
func (h *CycleHandler) List(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cycles, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycles, nil)
}

// Get godoc
// @Summary Get an appraisal cycle
// @Tags Cycles
// @Produce json
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Router /cycles/{id} [get]
func (h *CycleHandler) Get(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cycle, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycle, nil)
}
