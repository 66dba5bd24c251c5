package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/pkg/config"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type assetListerStub struct {
	assets []models.Asset
	filter models.AssetFilter
}

func (s *assetListerStub) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error) {
	s.filter = filter
	return s.assets, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(s.assets)}, nil
}

func TestExportServiceDisabled(t *testing.T) {
	svc := NewExportService(&assetListerStub{}, config.ExportConfig{Enabled: false}, nil)

	_, err := svc.Export(context.Background(), "csv", models.AssetFilter{})
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceBadFormat(t *testing.T) {
	svc := NewExportService(&assetListerStub{}, config.ExportConfig{Enabled: true, MaxRows: 100}, nil)

	_, err := svc.Export(context.Background(), "xlsx", models.AssetFilter{})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceCSV(t *testing.T) {
	lister := &assetListerStub{assets: []models.Asset{
		{AssetNumber: "FA-0001", Category: "laptop", Name: "ThinkPad", Status: models.AssetStatusInUse},
	}}
	svc := NewExportService(lister, config.ExportConfig{Enabled: true, MaxRows: 100}, nil)

	file, err := svc.Export(context.Background(), "CSV", models.AssetFilter{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(file.Filename, "assets-"))
	require.True(t, strings.HasSuffix(file.Filename, ".csv"))
	require.Equal(t, "text/csv", file.ContentType)

	body := string(file.Data)
	require.Contains(t, body, "Asset Number")
	require.Contains(t, body, "FA-0001")
	require.Equal(t, 100, lister.filter.PageSize)
	require.Equal(t, 1, lister.filter.Page)
}

func TestExportServicePDF(t *testing.T) {
	lister := &assetListerStub{assets: []models.Asset{
		{AssetNumber: "FA-0001", Category: "laptop", Name: "ThinkPad", Status: models.AssetStatusInStock},
	}}
	svc := NewExportService(lister, config.ExportConfig{Enabled: true, MaxRows: 100}, nil)

	file, err := svc.Export(context.Background(), "pdf", models.AssetFilter{})
	require.NoError(t, err)
	require.Equal(t, "application/pdf", file.ContentType)
	require.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	require.NotEmpty(t, file.Data)
}
