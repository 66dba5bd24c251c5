package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itops-hq/asset-custody-api/internal/middleware"
	"github.com/itops-hq/asset-custody-api/internal/models"
)

// claimsFromContext extracts authenticated JWT claims set by the middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestFilterFromQuery parses the listing filters shared by the three
// request endpoints.
func requestFilterFromQuery(c *gin.Context) models.RequestFilter {
	filter := models.RequestFilter{
		AssetID: strings.TrimSpace(c.Query("asset_id")),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		parts := strings.Split(raw, ",")
		statuses := make([]models.RequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			statuses = append(statuses, models.RequestStatus(part))
		}
		filter.Status = statuses
	}
	return filter
}
