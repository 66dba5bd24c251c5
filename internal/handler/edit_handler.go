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

type editService interface {
	Create(ctx context.Context, req dto.CreateEditRequest, actor *models.JWTClaims) (*models.EditRequest, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) error
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.EditRequest, error)
	List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.EditRequest, error)
}

// EditHandler exposes the edit workflow endpoints.
type EditHandler struct {
	service editService
}

// NewEditHandler constructs the handler.
func NewEditHandler(service editService) *EditHandler {
	return &EditHandler{service: service}
}

// Create godoc
// @Summary File an edit request
// @Tags Edits
// @Accept json
// @Produce json
// @Param payload body dto.CreateEditRequest true "Edit payload"
// @Success 201 {object} response.Envelope
// @Router /edit-requests [post]
func (h *EditHandler) Create(c *gin.Context) {
	var req dto.CreateEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	edit, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edit)
}

// List godoc
// @Summary List edit requests
// @Tags Edits
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param asset_id query string false "Asset filter"
// @Success 200 {object} response.Envelope
// @Router /edit-requests [get]
func (h *EditHandler) List(c *gin.Context) {
	edits, err := h.service.List(c.Request.Context(), requestFilterFromQuery(c), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edits, nil)
}

// Get godoc
// @Summary Get edit detail
// @Tags Edits
// @Produce json
// @Param id path string true "Edit ID"
// @Success 200 {object} response.Envelope
// @Router /edit-requests/{id} [get]
func (h *EditHandler) Get(c *gin.Context) {
	edit, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edit, nil)
}

// Cancel godoc
// @Summary Cancel an edit request
// @Tags Edits
// @Param id path string true "Edit ID"
// @Success 204
// @Router /edit-requests/{id} [delete]
func (h *EditHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
