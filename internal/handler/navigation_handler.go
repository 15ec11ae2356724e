package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
	appErrors "github.com/noah-isme/staff-appraisal-api/pkg/errors"
	"github.com/noah-isme/staff-appraisal-api/pkg/response"
)

// NavigationHandler serves the role-scoped menu configuration.
type NavigationHandler struct{}

// NewNavigationHandler constructs the handler.
func NewNavigationHandler() *NavigationHandler {
	return &NavigationHandler{}
}

// Get godoc
// @Summary Get navigation entries for the acting user's role
// @Tags Navigation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /navigation [get]
func (h *NavigationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, models.NavigationFor(claims.Role), nil)
}
