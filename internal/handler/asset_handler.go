package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/service"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
	"github.com/itops-hq/asset-custody-api/pkg/response"
)

type assetService interface {
	Create(ctx context.Context, req dto.CreateAssetRequest, actor *models.JWTClaims) (*models.Asset, error)
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateAssetRequest, actor *models.JWTClaims) (*models.Asset, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	History(ctx context.Context, assetID string, limit, offset int) ([]models.HistoryEntry, error)
}

type exportService interface {
	Export(ctx context.Context, format string, filter models.AssetFilter) (*service.ExportFile, error)
}

// AssetHandler exposes asset register endpoints.
type AssetHandler struct {
	service assetService
	export  exportService
}

// NewAssetHandler constructs the handler.
func NewAssetHandler(service assetService, export exportService) *AssetHandler {
	return &AssetHandler{service: service, export: export}
}

// Create godoc
// @Summary Register an asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssetRequest true "Asset payload"
// @Success 201 {object} response.Envelope
// @Router /assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	var req dto.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid asset payload"))
		return
	}
	asset, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// List godoc
// @Summary List assets
// @Tags Assets
// @Produce json
// @Param status query string false "Status filter (in_use or in_stock)"
// @Param custodian_id query string false "Custodian filter"
// @Param category query string false "Category filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	filter := assetFilterFromQuery(c)
	assets, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assets, pagination)
}

// Get godoc
// @Summary Get asset detail
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, asset, nil)
}

// Update godoc
// @Summary Update asset fields directly
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.UpdateAssetRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
	var req dto.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid asset payload"))
		return
	}
	asset, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, asset, nil)
}

// Delete godoc
// @Summary Remove an asset from the register
// @Tags Assets
// @Param id path string true "Asset ID"
// @Success 204
// @Router /assets/{id} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Get asset change history
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/history [get]
func (h *AssetHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(),
		c.Param("id"), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the asset register
// @Tags Assets
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} file
// @Router /assets/export [get]
func (h *AssetHandler) Export(c *gin.Context) {
	file, err := h.export.Export(c.Request.Context(), c.Query("format"), assetFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func assetFilterFromQuery(c *gin.Context) models.AssetFilter {
	filter := models.AssetFilter{
		CustodianID: strings.TrimSpace(c.Query("custodian_id")),
		Category:    strings.TrimSpace(c.Query("category")),
		Search:      strings.TrimSpace(c.Query("search")),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 50),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AssetStatus(raw)
		filter.Status = &status
	}
	return filter
}
