package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type editStore interface {
	Create(ctx context.Context, req *models.EditRequest, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.EditRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.EditRequest, error)
	Decide(ctx context.Context, params repository.DecideEditParams) (*models.EditRequest, error)
	Cancel(ctx context.Context, id string, entry *models.HistoryEntry) error
}

// EditService orchestrates field-level edit requests. Admins never file edit
// requests; their changes go through the direct asset update path.
type EditService struct {
	repo   editStore
	assets assetReader
	logger *zap.Logger
}

// NewEditService constructs the service.
func NewEditService(repo editStore, assets assetReader, logger *zap.Logger) *EditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditService{repo: repo, assets: assets, logger: logger}
}

// Create files an edit request. Keys already matching the asset's current
// values are dropped; an empty payload after normalisation is rejected.
func (s *EditService) Create(ctx context.Context, req dto.CreateEditRequest, actor *models.JWTClaims) (*models.EditRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "administrators apply edits directly")
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if asset.CustodianID == nil || *asset.CustodianID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only the current custodian can request edits")
	}

	changes := make(map[string]string, len(req.EditData))
	oldValues := make(map[string]interface{}, len(req.EditData))
	newValues := make(map[string]interface{}, len(req.EditData))
	for key, value := range req.EditData {
		if _, ok := models.EditableAssetFields[key]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is not editable", key))
		}
		current, _ := asset.FieldValue(key)
		if currentString(current) == value {
			continue
		}
		changes[key] = value
		oldValues[key] = current
		if value == "" {
			newValues[key] = nil
		} else {
			newValues[key] = value
		}
	}
	if len(changes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "edit request contains no field changes")
	}

	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode edit payload")
	}

	edit := &models.EditRequest{
		AssetID:  req.AssetID,
		UserID:   actor.UserID,
		EditData: payload,
		Status:   models.StatusPending,
	}
	entry := &models.HistoryEntry{
		AssetID:     asset.ID,
		ActionType:  models.HistoryActionEdit,
		Description: fmt.Sprintf("edit requested (%s)", joinKeys(changes)),
		OldValue:    snapshotJSON(oldValues),
		NewValue:    snapshotJSON(newValues),
		OperatorID:  &actor.UserID,
		RequestType: requestTypeRef(models.RequestTypeEdit),
	}

	if err := s.repo.Create(ctx, edit, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "asset already has an active edit request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create edit request")
	}
	return edit, nil
}

// Decide settles a pending edit on behalf of the approval coordinator.
func (s *EditService) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.EditRequest, error) {
	updated, err := s.repo.Decide(ctx, repository.DecideEditParams{
		ID:         id,
		Approved:   approved,
		ApproverID: approverID,
		Comment:    trimmedRef(comment),
		DecidedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, s.mapWorkflowError(err, "failed to decide edit")
	}
	return updated, nil
}

// Cancel withdraws a still-pending edit request.
func (s *EditService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	edit, err := s.loadEdit(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.UserID != edit.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may cancel this edit")
	}
	if edit.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrInvalidState, "edit request already settled")
	}

	entry := &models.HistoryEntry{
		AssetID:     edit.AssetID,
		ActionType:  models.HistoryActionEdit,
		Description: "edit request cancelled",
		OperatorID:  &actor.UserID,
		RequestID:   &edit.ID,
		RequestType: requestTypeRef(models.RequestTypeEdit),
	}
	if err := s.repo.Cancel(ctx, id, entry); err != nil {
		return s.mapWorkflowError(err, "failed to cancel edit")
	}
	return nil
}

// Get returns an edit request visible to the actor.
func (s *EditService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.EditRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	edit, err := s.loadEdit(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != edit.UserID {
		return nil, appErrors.ErrForbidden
	}
	return edit, nil
}

// List returns edit requests, scoped to the actor for non-admins.
func (s *EditService) List(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]models.EditRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	edits, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edits")
	}
	return edits, nil
}

func (s *EditService) loadEdit(ctx context.Context, id string) (*models.EditRequest, error) {
	edit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "edit request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit")
	}
	return edit, nil
}

func (s *EditService) mapWorkflowError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "edit request not found")
	case errors.Is(err, repository.ErrStateConflict):
		return appErrors.Clone(appErrors.ErrInvalidState, "edit request already processed")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func currentString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func joinKeys(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := ""
	for i, key := range keys {
		if i > 0 {
			out += ", "
		}
		out += key
	}
	return out
}
