package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type returnStore interface {
	Create(ctx context.Context, req *models.ReturnRequest, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.ReturnRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ReturnRequest, error)
	Decide(ctx context.Context, params repository.DecideReturnParams) (*models.ReturnRequest, error)
	Cancel(ctx context.Context, id string, entry *models.HistoryEntry) error
}

// ReturnService orchestrates the return workflow, including the optional
// field overrides applied when a return is approved.
type ReturnService struct {
	repo   returnStore
	assets assetReader
	users  userReader
	logger *zap.Logger
}

// NewReturnService constructs the service.
func NewReturnService(repo returnStore, assets assetReader, users userReader, logger *zap.Logger) *ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReturnService{repo: repo, assets: assets, users: users, logger: logger}
}

// Create files a return request for an in-use asset. The request is owned by
// the asset's custodian even when an admin files it on their behalf.
func (s *ReturnService) Create(ctx context.Context, req dto.CreateReturnRequest, actor *models.JWTClaims) (*models.ReturnRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if asset.Status != models.AssetStatusInUse || asset.CustodianID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only in-use assets can be returned")
	}
	custodianID := *asset.CustodianID
	if !actor.IsAdmin() && custodianID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only the current custodian can return this asset")
	}

	newCustodian := req.NewCustodianID
	if newCustodian != nil && strings.TrimSpace(*newCustodian) == "" {
		newCustodian = nil
	}
	if newCustodian != nil {
		if *newCustodian == custodianID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "new custodian already holds this asset")
		}
		user, err := s.users.FindByID(ctx, *newCustodian)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "new custodian not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load new custodian")
		}
		if !user.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "new custodian account is inactive")
		}
	}

	ret := &models.ReturnRequest{
		AssetID:        req.AssetID,
		UserID:         custodianID,
		Reason:         strings.TrimSpace(req.Reason),
		Status:         models.StatusPending,
		MACAddress:     req.MACAddress,
		IPAddress:      req.IPAddress,
		OfficeLocation: req.OfficeLocation,
		Floor:          req.Floor,
		SeatNumber:     req.SeatNumber,
		Remark:         req.Remark,
		NewCustodianID: newCustodian,
	}

	newSnapshot := map[string]interface{}{"custodian_id": nil}
	if newCustodian != nil {
		newSnapshot["custodian_id"] = *newCustodian
	}
	entry := &models.HistoryEntry{
		AssetID:     asset.ID,
		ActionType:  models.HistoryActionReturn,
		Description: "return requested",
		OldValue:    snapshotJSON(map[string]interface{}{"custodian_id": custodianID}),
		NewValue:    snapshotJSON(newSnapshot),
		OperatorID:  &actor.UserID,
		RequestType: requestTypeRef(models.RequestTypeReturn),
	}

	if err := s.repo.Create(ctx, ret, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "asset already has an active return request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create return request")
	}
	return ret, nil
}

// Decide settles a pending return on behalf of the approval coordinator.
func (s *ReturnService) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.ReturnRequest, error) {
	updated, err := s.repo.Decide(ctx, repository.DecideReturnParams{
		ID:         id,
		Approved:   approved,
		ApproverID: approverID,
		Comment:    trimmedRef(comment),
		DecidedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, s.mapWorkflowError(err, "failed to decide return")
	}
	return updated, nil
}

// Cancel withdraws a still-pending return request.
func (s *ReturnService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	ret, err := s.loadReturn(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.UserID != ret.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may cancel this return")
	}
	if ret.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "return request already settled")
	}

	entry := &models.HistoryEntry{
		AssetID:     ret.AssetID,
		ActionType:  models.HistoryActionReturn,
		Description: "return request cancelled",
		OperatorID:  &actor.UserID,
		RequestID:   &ret.ID,
		RequestType: requestTypeRef(models.RequestTypeReturn),
	}
	if err := s.repo.Cancel(ctx, id, entry); err != nil {
		return s.mapWorkflowError(err, "failed to cancel return")
	}
	return nil
}

// Get returns a return request visible to the actor.
func (s *ReturnService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ReturnRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ret, err := s.loadReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != ret.UserID {
		return nil, appErrors.ErrForbidden
	}
	return ret, nil
}

// List returns return requests, scoped to the actor for non-admins.
func (s *ReturnService) List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.ReturnRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	returns, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list returns")
	}
	return returns, nil
}

func (s *ReturnService) loadReturn(ctx context.Context, id string) (*models.ReturnRequest, error) {
	ret, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "return request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load return")
	}
	return ret, nil
}

func (s *ReturnService) mapWorkflowError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "return request not found")
	case errors.Is(err, repository.ErrStateConflict):
		return appErrors.Clone(appErrors.ErrInvalidState, "return request already processed")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
