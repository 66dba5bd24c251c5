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

type approvalService interface {
	Decide(ctx context.Context, req dto.DecisionRequest, actor *models.JWTClaims) (interface{}, error)
}

type pendingService interface {
	AdminSummary(ctx context.Context) (*dto.AdminPendingSummary, error)
	UserSummary(ctx context.Context, userID string) (*dto.UserPendingSummary, error)
}

// ApprovalHandler exposes the approval coordinator endpoints.
type ApprovalHandler struct {
	approvals approvalService
	pending   pendingService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(approvals approvalService, pending pendingService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, pending: pending}
}

// Decide godoc
// @Summary Approve or reject a pending request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /approvals/decide [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	result, err := h.approvals.Decide(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PendingSummary godoc
// @Summary Get pending workload counters
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /approvals/pending/summary [get]
func (h *ApprovalHandler) PendingSummary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.IsAdmin() {
		summary, err := h.pending.AdminSummary(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, summary, nil)
		return
	}
	summary, err := h.pending.UserSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
