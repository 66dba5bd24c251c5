package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type assetStore interface {
	Create(ctx context.Context, asset *models.Asset, operatorID string) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error)
	SoftDelete(ctx context.Context, id, actorID string) error
	ApplyFieldEdit(ctx context.Context, params repository.ApplyFieldEditParams) (*models.Asset, error)
}

type historyLister interface {
	ListByAsset(ctx context.Context, assetID string, limit, offset int) ([]models.HistoryEntry, error)
}

// AssetService manages the asset register, including the administrator
// bypass that mutates assets directly instead of going through a workflow.
type AssetService struct {
	repo    assetStore
	users   userReader
	history historyLister
	logger  *zap.Logger
}

// NewAssetService constructs the service.
func NewAssetService(repo assetStore, users userReader, history historyLister, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{repo: repo, users: users, history: history, logger: logger}
}

// Create registers a new asset. A named custodian puts the asset in use and
// stamps their group; otherwise the asset starts in the warehouse.
func (s *AssetService) Create(ctx context.Context, req dto.CreateAssetRequest, actor *models.JWTClaims) (*models.Asset, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators register assets")
	}

	asset := &models.Asset{
		AssetNumber:    strings.TrimSpace(req.AssetNumber),
		Category:       strings.TrimSpace(req.Category),
		Name:           strings.TrimSpace(req.Name),
		Specification:  req.Specification,
		Status:         models.AssetStatusInStock,
		MACAddress:     req.MACAddress,
		IPAddress:      req.IPAddress,
		OfficeLocation: req.OfficeLocation,
		Floor:          req.Floor,
		SeatNumber:     req.SeatNumber,
		Remark:         req.Remark,
	}
	if asset.AssetNumber == "" || asset.Category == "" || asset.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asset_number, category and name are required")
	}

	if req.CustodianID != nil && strings.TrimSpace(*req.CustodianID) != "" {
		custodianID := strings.TrimSpace(*req.CustodianID)
		user, err := s.users.FindByID(ctx, custodianID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "custodian not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load custodian")
		}
		if !user.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custodian account is inactive")
		}
		asset.CustodianID = &custodianID
		asset.UserGroup = &user.Group
		asset.Status = models.AssetStatusInUse
	}

	if err := s.repo.Create(ctx, asset, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssetNumber) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "asset number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create asset")
	}
	return asset, nil
}

// Get returns a live asset by identifier.
func (s *AssetService) Get(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	return asset, nil
}

// List returns assets matching the filter.
func (s *AssetService) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error) {
	assets, pagination, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assets")
	}
	return assets, pagination, nil
}

// Update applies direct field edits through the admin bypass. The submitted
// keys use the same present-key contract as edit requests; custodian_id and
// status are additionally allowed here.
func (s *AssetService) Update(ctx context.Context, id string, req dto.UpdateAssetRequest, actor *models.JWTClaims) (*models.Asset, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators edit assets directly")
	}
	if len(req.Fields) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields submitted")
	}

	for key, value := range req.Fields {
		switch key {
		case "custodian_id":
			if value == "" {
				continue
			}
			user, err := s.users.FindByID(ctx, value)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "custodian not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load custodian")
			}
			if !user.Active {
				return nil, appErrors.Clone(appErrors.ErrValidation, "custodian account is inactive")
			}
		case "status":
			status := models.AssetStatus(value)
			if status != models.AssetStatusInUse && status != models.AssetStatusInStock {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", value))
			}
		default:
			if _, ok := models.EditableAssetFields[key]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not editable", key))
			}
		}
	}

	asset, err := s.repo.ApplyFieldEdit(ctx, repository.ApplyFieldEditParams{
		AssetID:     id,
		Fields:      req.Fields,
		Description: "asset updated by administrator",
		OperatorID:  actor.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update asset")
	}
	return asset, nil
}

// Delete soft-deletes an asset; its history remains readable.
func (s *AssetService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators remove assets")
	}
	if err := s.repo.SoftDelete(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete asset")
	}
	return nil
}

// History returns the asset's audit trail, newest first.
func (s *AssetService) History(ctx context.Context, assetID string, limit, offset int) ([]models.HistoryEntry, error) {
	if _, err := s.Get(ctx, assetID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByAsset(ctx, assetID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list asset history")
	}
	return entries, nil
}
