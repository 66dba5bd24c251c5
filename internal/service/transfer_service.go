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

type transferStore interface {
	Create(ctx context.Context, req *models.TransferRequest, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.TransferRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.TransferRequest, error)
	Confirm(ctx context.Context, params repository.ConfirmTransferParams, entry *models.HistoryEntry) (*models.TransferRequest, error)
	Decide(ctx context.Context, params repository.DecideTransferParams) (*models.TransferRequest, error)
	Cancel(ctx context.Context, id string, entry *models.HistoryEntry) error
}

type assetReader interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// TransferService orchestrates the transfer workflow: request, recipient
// confirmation, cancellation, and the admin decision.
type TransferService struct {
	repo   transferStore
	assets assetReader
	users  userReader
	logger *zap.Logger
}

// NewTransferService constructs the service.
func NewTransferService(repo transferStore, assets assetReader, users userReader, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{repo: repo, assets: assets, users: users, logger: logger}
}

// Create files a transfer request for an in-use asset. Non-admin actors must
// be the current custodian; an admin may file on the custodian's behalf.
func (s *TransferService) Create(ctx context.Context, req dto.CreateTransferRequest, actor *models.JWTClaims) (*models.TransferRequest, error) {
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
	if asset.Status != models.AssetStatusInUse {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only in-use assets can be transferred")
	}
	if asset.CustodianID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asset is warehouse-held")
	}
	fromUserID := *asset.CustodianID
	if !actor.IsAdmin() && fromUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only the current custodian can transfer this asset")
	}
	if req.ToUserID == fromUserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient already holds this asset")
	}

	toUser, err := s.users.FindByID(ctx, req.ToUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	if !toUser.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient account is inactive")
	}

	transfer := &models.TransferRequest{
		AssetID:    req.AssetID,
		FromUserID: fromUserID,
		ToUserID:   req.ToUserID,
		CreatedBy:  actor.UserID,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     models.StatusWaitingConfirmation,
	}
	entry := &models.HistoryEntry{
		AssetID:     asset.ID,
		ActionType:  models.HistoryActionTransfer,
		Description: "transfer requested",
		OldValue:    snapshotJSON(map[string]interface{}{"custodian_id": fromUserID}),
		NewValue:    snapshotJSON(map[string]interface{}{"custodian_id": req.ToUserID}),
		OperatorID:  &actor.UserID,
		RequestType: requestTypeRef(models.RequestTypeTransfer),
	}

	if err := s.repo.Create(ctx, transfer, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "asset already has an active transfer request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transfer request")
	}
	return transfer, nil
}

// Confirm records the recipient's accept/decline on a waiting transfer.
func (s *TransferService) Confirm(ctx context.Context, id string, req dto.ConfirmTransferRequest, actor *models.JWTClaims) (*models.TransferRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	transfer, err := s.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer.ToUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the recipient can confirm this transfer")
	}
	if transfer.Status != models.StatusWaitingConfirmation {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "transfer is not awaiting confirmation")
	}

	confirmed := req.Confirmed != nil && *req.Confirmed
	description := "transfer declined by recipient"
	if confirmed {
		description = "transfer confirmed by recipient"
	}
	entry := &models.HistoryEntry{
		AssetID:     transfer.AssetID,
		ActionType:  models.HistoryActionTransfer,
		Description: description,
		OperatorID:  &actor.UserID,
		RequestID:   &transfer.ID,
		RequestType: requestTypeRef(models.RequestTypeTransfer),
	}
	params := repository.ConfirmTransferParams{
		ID:          id,
		Confirmed:   confirmed,
		Comment:     trimmedRef(req.Comment),
		ConfirmedAt: time.Now().UTC(),
	}

	updated, err := s.repo.Confirm(ctx, params, entry)
	if err != nil {
		return nil, s.mapWorkflowError(err, "failed to confirm transfer")
	}
	return updated, nil
}

// Decide settles a pending transfer on behalf of the approval coordinator.
func (s *TransferService) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.TransferRequest, error) {
	updated, err := s.repo.Decide(ctx, repository.DecideTransferParams{
		ID:         id,
		Approved:   approved,
		ApproverID: approverID,
		Comment:    trimmedRef(comment),
		DecidedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, s.mapWorkflowError(err, "failed to decide transfer")
	}
	return updated, nil
}

// Cancel withdraws a non-terminal transfer request. The request row is
// removed; only the history entry remains.
func (s *TransferService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	transfer, err := s.loadTransfer(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.UserID != transfer.CreatedBy && actor.UserID != transfer.FromUserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may cancel this transfer")
	}
	if transfer.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "transfer request already settled")
	}

	entry := &models.HistoryEntry{
		AssetID:     transfer.AssetID,
		ActionType:  models.HistoryActionTransfer,
		Description: "transfer request cancelled",
		OperatorID:  &actor.UserID,
		RequestID:   &transfer.ID,
		RequestType: requestTypeRef(models.RequestTypeTransfer),
	}
	if err := s.repo.Cancel(ctx, id, entry); err != nil {
		return s.mapWorkflowError(err, "failed to cancel transfer")
	}
	return nil
}

// Get returns a transfer visible to the actor.
func (s *TransferService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TransferRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	transfer, err := s.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() &&
		actor.UserID != transfer.FromUserID &&
		actor.UserID != transfer.ToUserID &&
		actor.UserID != transfer.CreatedBy {
		return nil, appErrors.ErrForbidden
	}
	return transfer, nil
}

// List returns transfers, scoped to the actor's own requests for non-admins.
func (s *TransferService) List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.TransferRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	transfers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}
	return transfers, nil
}

func (s *TransferService) loadTransfer(ctx context.Context, id string) (*models.TransferRequest, error) {
	transfer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transfer request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transfer")
	}
	return transfer, nil
}

func (s *TransferService) mapWorkflowError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "transfer request not found")
	case errors.Is(err, repository.ErrStateConflict):
		return appErrors.Clone(appErrors.ErrInvalidState, "transfer request already processed")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
