package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-appraisal-api/internal/dto"
	"github.com/noah-isme/staff-appraisal-api/internal/models"
	"github.com/noah-isme/staff-appraisal-api/internal/service"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
	"github.com/noah-isme/staff-appraisal-api/pkg/response"
)

type appraisalService interface {
	Create(ctx context.Context, req dto.CreateAppraisalRequest, actor *models.JWTClaims) (*models.Appraisal, error)
	GetCurrent(ctx context.Context, actor *models.JWTClaims, cycleID string) (*models.Appraisal, error)
	GetFull(ctx context.Context, appraisalID string, actor *models.JWTClaims) (*dto.AppraisalDetail, error)
	SavePart(ctx context.Context, appraisalID string, key models.PartKey, req dto.SavePartRequest, actor *models.JWTClaims) (*models.Appraisal, error)
	RecalculateTotals(ctx context.Context, appraisalID string, actor *models.JWTClaims) (*models.Totals, error)
	Transition(ctx context.Context, appraisalID string, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Appraisal, error)
	History(ctx context.Context, appraisalID string, actor *models.JWTClaims) ([]models.HistoryEntry, error)
}

type exportService interface {
	Render(ctx context.Context, appraisalID, format string, actor *models.JWTClaims) (*service.ExportResult, error)
}

// AppraisalHandler exposes REST endpoints for the appraisal workflow.
type AppraisalHandler struct {
	service appraisalService
	exports exportService
}

// NewAppraisalHandler constructs the handler.
func NewAppraisalHandler(service appraisalService, exports exportService) *AppraisalHandler {
	return &AppraisalHandler{service: service, exports: exports}
}

// Create godoc
// @Summary Provision a draft appraisal for a teacher and cycle
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppraisalRequest true "Provisioning payload"
// @Success 201 {object} response.Envelope
// @Router /appraisals [post]
func (h *AppraisalHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateAppraisalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appraisal payload"))
		return
	}
	appraisal, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appraisal)
}

// GetCurrent godoc
// @Summary Get the acting teacher's appraisal for a cycle
// @Tags Appraisals
// @Produce json
// @Param cycle_id query string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/me [get]
func (h *AppraisalHandler) GetCurrent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appraisal, err := h.service.GetCurrent(c.Request.Context(), claims, c.Query("cycle_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appraisal, nil)
}

// Get godoc
// @Summary Get an appraisal with resolved part views
// @Tags Appraisals
// @Produce json
// @Param id path string true "Appraisal ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{id} [get]
func (h *AppraisalHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.GetFull(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// SavePart godoc
// @Summary Save one part's raw values and recompute totals
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param id path string true "Appraisal ID"
// @Param key path string true "Part key (A-E)"
// @Param payload body dto.SavePartRequest true "Raw field values"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{id}/parts/{key} [put]
func (h *AppraisalHandler) SavePart(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SavePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid part payload"))
		return
	}
	appraisal, err := h.service.SavePart(c.Request.Context(), c.Param("id"), models.PartKey(c.Param("key")), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appraisal, nil)
}

// Recalculate godoc
// @Summary Recompute totals from saved raw values (idempotent repair)
// @Tags Appraisals
// @Produce json
// @Param id path string true "Appraisal ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{id}/recalculate [post]
func (h *AppraisalHandler) Recalculate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	totals, err := h.service.RecalculateTotals(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}

// Transition godoc
// @Summary Apply a workflow action to an appraisal
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param id path string true "Appraisal ID"
// @Param payload body dto.TransitionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{id}/transitions [post]
func (h *AppraisalHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
		return
	}
	appraisal, err := h.service.Transition(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appraisal, nil)
}

// History godoc
// @Summary List the appraisal's transition history
// @Tags Appraisals
// @Produce json
// @Param id path string true "Appraisal ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{id}/history [get]
func (h *AppraisalHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	history, err := h.service.History(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Export godoc
// @Summary Export an appraisal score sheet
// @Tags Appraisals
// @Produce octet-stream
// @Param id path string true "Appraisal ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /appraisals/{id}/export [get]
func (h *AppraisalHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	result, err := h.exports.Render(c.Request.Context(), c.Param("id"), c.Query("format"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
