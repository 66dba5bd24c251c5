package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type editStoreStub struct {
	edits     map[string]*models.EditRequest
	createErr error
	created   *models.EditRequest
	lastEntry *models.HistoryEntry
	decided   *repository.DecideEditParams
	cancelled string
}

func newEditStoreStub() *editStoreStub {
	return &editStoreStub{edits: make(map[string]*models.EditRequest)}
}

func (s *editStoreStub) Create(ctx context.Context, req *models.EditRequest, entry *models.HistoryEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	if req.ID == "" {
		req.ID = "edit-1"
	}
	s.created = req
	s.lastEntry = entry
	s.edits[req.ID] = req
	return nil
}

func (s *editStoreStub) GetByID(ctx context.Context, id string) (*models.EditRequest, error) {
	if req, ok := s.edits[id]; ok {
		copy := *req
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *editStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.EditRequest, error) {
	out := make([]models.EditRequest, 0, len(s.edits))
	for _, req := range s.edits {
		out = append(out, *req)
	}
	return out, nil
}

func (s *editStoreStub) Decide(ctx context.Context, params repository.DecideEditParams) (*models.EditRequest, error) {
	req, ok := s.edits[params.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if req.Status != models.StatusPending {
		return nil, repository.ErrStateConflict
	}
	s.decided = &params
	updated := *req
	if params.Approved {
		updated.Status = models.StatusApproved
	} else {
		updated.Status = models.StatusRejected
	}
	return &updated, nil
}

func (s *editStoreStub) Cancel(ctx context.Context, id string, entry *models.HistoryEntry) error {
	if _, ok := s.edits[id]; !ok {
		return sql.ErrNoRows
	}
	s.cancelled = id
	s.lastEntry = entry
	delete(s.edits, id)
	return nil
}

func TestEditServiceCreateDropsUnchangedKeys(t *testing.T) {
	store := newEditStoreStub()
	asset := inUseAsset("asset-1", "user-1")
	remark := "old remark"
	asset.Remark = &remark
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": asset}}
	svc := NewEditService(store, assets, nil)

	edit, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID: "asset-1",
		EditData: map[string]string{
			"remark":      "moved to lab",
			"name":        asset.Name,
			"mac_address": "AA:BB:CC:DD:EE:FF",
		},
	}, userClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, edit.Status)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(edit.EditData, &payload))
	require.Equal(t, map[string]string{
		"remark":      "moved to lab",
		"mac_address": "AA:BB:CC:DD:EE:FF",
	}, payload)
	require.Equal(t, "edit requested (mac_address, remark)", store.lastEntry.Description)
}

func TestEditServiceCreateRejectsAdmins(t *testing.T) {
	svc := NewEditService(newEditStoreStub(), &assetReaderStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID:  "asset-1",
		EditData: map[string]string{"remark": "x"},
	}, adminClaims("admin-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditServiceCreateNonCustodian(t *testing.T) {
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewEditService(newEditStoreStub(), assets, nil)

	_, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID:  "asset-1",
		EditData: map[string]string{"remark": "x"},
	}, userClaims("user-2"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditServiceCreateUnknownField(t *testing.T) {
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewEditService(newEditStoreStub(), assets, nil)

	_, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID:  "asset-1",
		EditData: map[string]string{"status": "scrapped"},
	}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditServiceCreateNoEffectiveChanges(t *testing.T) {
	asset := inUseAsset("asset-1", "user-1")
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": asset}}
	svc := NewEditService(newEditStoreStub(), assets, nil)

	_, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID:  "asset-1",
		EditData: map[string]string{"name": asset.Name},
	}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditServiceCreateDuplicateActive(t *testing.T) {
	store := newEditStoreStub()
	store.createErr = repository.ErrDuplicateActive
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewEditService(store, assets, nil)

	_, err := svc.Create(context.Background(), dto.CreateEditRequest{
		AssetID:  "asset-1",
		EditData: map[string]string{"remark": "x"},
	}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestEditServiceGetScope(t *testing.T) {
	store := newEditStoreStub()
	store.edits["edit-1"] = &models.EditRequest{ID: "edit-1", AssetID: "asset-1", UserID: "user-1", Status: models.StatusPending}
	svc := NewEditService(store, &assetReaderStub{}, nil)

	_, err := svc.Get(context.Background(), "edit-1", userClaims("user-2"))
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	edit, err := svc.Get(context.Background(), "edit-1", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "edit-1", edit.ID)
}

func TestEditServiceCancelSettled(t *testing.T) {
	store := newEditStoreStub()
	store.edits["edit-1"] = &models.EditRequest{ID: "edit-1", AssetID: "asset-1", UserID: "user-1", Status: models.StatusApproved}
	svc := NewEditService(store, &assetReaderStub{}, nil)

	err := svc.Cancel(context.Background(), "edit-1", userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}
