package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
	"github.com/itops-hq/asset-custody-api/pkg/response"
)

type returnService interface {
	Create(ctx context.Context, req dto.CreateReturnRequest, actor *models.JWTClaims) (*models.ReturnRequest, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) error
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ReturnRequest, error)
	List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.ReturnRequest, error)
}

// ReturnHandler exposes the return workflow endpoints.
type ReturnHandler struct {
	service returnService
}

// NewReturnHandler constructs the handler.
func NewReturnHandler(service returnService) *ReturnHandler {
	return &ReturnHandler{service: service}
}

// Create godoc
// @Summary File a return request
// @Tags Returns
// @Accept json
// @Produce json
// @Param payload body dto.CreateReturnRequest true "Return payload"
// @Success 201 {object} response.Envelope
// @Router /returns [post]
func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid return payload"))
		return
	}
	ret, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ret)
}

// List godoc
// @Summary List return requests
// @Tags Returns
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param asset_id query string false "Asset filter"
// @Success 200 {object} response.Envelope
// @Router /returns [get]
func (h *ReturnHandler) List(c *gin.Context) {
	returns, err := h.service.List(c.Request.Context(), requestFilterFromQuery(c), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, returns, nil)
}

// Get godoc
// @Summary Get return detail
// @Tags Returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} response.Envelope
// @Router /returns/{id} [get]
func (h *ReturnHandler) Get(c *gin.Context) {
	ret, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ret, nil)
}

// Cancel godoc
// @Summary Cancel a return request
// @Tags Returns
// @Param id path string true "Return ID"
// @Success 204
// @Router /returns/{id} [delete]
func (h *ReturnHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
