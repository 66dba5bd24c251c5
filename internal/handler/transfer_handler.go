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

type transferService interface {
	Create(ctx context.Context, req dto.CreateTransferRequest, actor *models.JWTClaims) (*models.TransferRequest, error)
	Confirm(ctx context.Context, id string, req dto.ConfirmTransferRequest, actor *models.JWTClaims) (*models.TransferRequest, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) error
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TransferRequest, error)
	List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.TransferRequest, error)
}

// TransferHandler exposes the transfer workflow endpoints.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(service transferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Create godoc
// @Summary File a transfer request
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Router /transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transfer payload"))
		return
	}
	transfer, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// List godoc
// @Summary List transfer requests
// @Tags Transfers
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param asset_id query string false "Asset filter"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	transfers, err := h.service.List(c.Request.Context(), requestFilterFromQuery(c), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfers, nil)
}

// Get godoc
// @Summary Get transfer detail
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	transfer, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// Confirm godoc
// @Summary Confirm or decline a transfer as its recipient
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.ConfirmTransferRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/confirm [post]
func (h *TransferHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid confirmation payload"))
		return
	}
	transfer, err := h.service.Confirm(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// Cancel godoc
// @Summary Cancel a transfer request
// @Tags Transfers
// @Param id path string true "Transfer ID"
// @Success 204
// @Router /transfers/{id} [delete]
func (h *TransferHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
