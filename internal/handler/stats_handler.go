package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/pkg/response"
)

type statsService interface {
	Overview(ctx context.Context) (*dto.StatsResponse, error)
}

// StatsHandler exposes the dashboard overview endpoint.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Overview godoc
// @Summary Get register overview statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
