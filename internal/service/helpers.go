package service

import (
	"encoding/json"
	"strings"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

func snapshotJSON(values map[string]interface{}) []byte {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

func requestTypeRef(t models.RequestType) *models.RequestType {
	return &t
}

func trimmedRef(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
