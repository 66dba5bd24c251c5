package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/pkg/config"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
	"github.com/itops-hq/asset-custody-api/pkg/export"
)

type assetLister interface {
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error)
}

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the asset register as CSV or PDF downloads.
type ExportService struct {
	assets assetLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	cfg    config.ExportConfig
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(assets assetLister, cfg config.ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		assets: assets,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		cfg:    cfg,
		logger: logger,
	}
}

var exportHeaders = []string{
	"Asset Number", "Category", "Name", "Specification", "Status",
	"MAC Address", "IP Address", "Office Location", "Floor", "Seat", "Group",
}

// Export renders matching assets in the requested format.
func (s *ExportService) Export(ctx context.Context, format string, filter models.AssetFilter) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export is disabled")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	maxRows := s.cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 5000
	}
	filter.Page = 1
	filter.PageSize = maxRows

	assets, _, err := s.assets.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assets for export")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(assets))}
	for _, asset := range assets {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Asset Number":    asset.AssetNumber,
			"Category":        asset.Category,
			"Name":            asset.Name,
			"Specification":   derefString(asset.Specification),
			"Status":          string(asset.Status),
			"MAC Address":     derefString(asset.MACAddress),
			"IP Address":      derefString(asset.IPAddress),
			"Office Location": derefString(asset.OfficeLocation),
			"Floor":           derefString(asset.Floor),
			"Seat":            derefString(asset.SeatNumber),
			"Group":           derefString(asset.UserGroup),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("assets-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	default:
		data, err := s.pdf.Render(dataset, "Asset Register")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("assets-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
