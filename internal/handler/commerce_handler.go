package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grades-api/internal/models"
	"github.com/noah-isme/lms-grades-api/internal/service"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
	"github.com/noah-isme/lms-grades-api/pkg/response"
)

type commerceService interface {
	Current(ctx context.Context) (*models.CommerceConfiguration, error)
	Configure(ctx context.Context, req service.ConfigureCommerceRequest) (*models.CommerceConfiguration, error)
}

// CommerceHandler exposes the commerce configuration.
type CommerceHandler struct {
	commerce commerceService
}

// NewCommerceHandler constructs handler.
func NewCommerceHandler(commerce commerceService) *CommerceHandler {
	return &CommerceHandler{commerce: commerce}
}

// Get godoc
// @Summary Current commerce configuration
// @Tags Commerce
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /commerce/configuration [get]
func (h *CommerceHandler) Get(c *gin.Context) {
	cfg, err := h.commerce.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Update godoc
// @Summary Enable or disable checkout on the ecommerce service
// @Tags Commerce
// @Accept json
// @Produce json
// @Param payload body service.ConfigureCommerceRequest true "Commerce switches"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /commerce/configuration [put]
func (h *CommerceHandler) Update(c *gin.Context) {
	var req service.ConfigureCommerceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cfg, err := h.commerce.Configure(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
