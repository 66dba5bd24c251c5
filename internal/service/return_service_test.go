package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type returnStoreStub struct {
	returns   map[string]*models.ReturnRequest
	createErr error
	created   *models.ReturnRequest
	lastEntry *models.HistoryEntry
	decided   *repository.DecideReturnParams
	cancelled string
}

func newReturnStoreStub() *returnStoreStub {
	return &returnStoreStub{returns: make(map[string]*models.ReturnRequest)}
}

func (s *returnStoreStub) Create(ctx context.Context, req *models.ReturnRequest, entry *models.HistoryEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	if req.ID == "" {
		req.ID = "ret-1"
	}
	s.created = req
	s.lastEntry = entry
	s.returns[req.ID] = req
	return nil
}

func (s *returnStoreStub) GetByID(ctx context.Context, id string) (*models.ReturnRequest, error) {
	if req, ok := s.returns[id]; ok {
		copy := *req
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *returnStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.ReturnRequest, error) {
	out := make([]models.ReturnRequest, 0, len(s.returns))
	for _, req := range s.returns {
		out = append(out, *req)
	}
	return out, nil
}

func (s *returnStoreStub) Decide(ctx context.Context, params repository.DecideReturnParams) (*models.ReturnRequest, error) {
	req, ok := s.returns[params.ID]
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

func (s *returnStoreStub) Cancel(ctx context.Context, id string, entry *models.HistoryEntry) error {
	if _, ok := s.returns[id]; !ok {
		return sql.ErrNoRows
	}
	s.cancelled = id
	s.lastEntry = entry
	delete(s.returns, id)
	return nil
}

func TestReturnServiceCreate(t *testing.T) {
	store := newReturnStoreStub()
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewReturnService(store, assets, &userReaderStub{}, nil)

	ret, err := svc.Create(context.Background(), dto.CreateReturnRequest{
		AssetID: "asset-1",
		Reason:  "leaving the team",
	}, userClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, ret.Status)
	require.Equal(t, "user-1", ret.UserID)
	require.Nil(t, ret.NewCustodianID)
	require.Equal(t, "return requested", store.lastEntry.Description)
}

func TestReturnServiceCreateOwnedByCustodianWhenAdminFiles(t *testing.T) {
	store := newReturnStoreStub()
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewReturnService(store, assets, &userReaderStub{}, nil)

	ret, err := svc.Create(context.Background(), dto.CreateReturnRequest{AssetID: "asset-1"}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "user-1", ret.UserID)
}

func TestReturnServiceCreateRequiresCustody(t *testing.T) {
	asset := inUseAsset("asset-1", "user-1")
	asset.Status = models.AssetStatusInStock
	asset.CustodianID = nil
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": asset}}
	svc := NewReturnService(newReturnStoreStub(), assets, &userReaderStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateReturnRequest{AssetID: "asset-1"}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReturnServiceCreateNewCustodianSameAsCurrent(t *testing.T) {
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewReturnService(newReturnStoreStub(), assets, &userReaderStub{}, nil)

	same := "user-1"
	_, err := svc.Create(context.Background(), dto.CreateReturnRequest{AssetID: "asset-1", NewCustodianID: &same}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReturnServiceCreateBlankNewCustodianIgnored(t *testing.T) {
	store := newReturnStoreStub()
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	svc := NewReturnService(store, assets, &userReaderStub{}, nil)

	blank := "   "
	ret, err := svc.Create(context.Background(), dto.CreateReturnRequest{AssetID: "asset-1", NewCustodianID: &blank}, userClaims("user-1"))
	require.NoError(t, err)
	require.Nil(t, ret.NewCustodianID)
}

func TestReturnServiceCreateNewCustodian(t *testing.T) {
	store := newReturnStoreStub()
	assets := &assetReaderStub{assets: map[string]*models.Asset{"asset-1": inUseAsset("asset-1", "user-1")}}
	users := &userReaderStub{users: map[string]*models.User{"user-3": activeUser("user-3")}}
	svc := NewReturnService(store, assets, users, nil)

	next := "user-3"
	ret, err := svc.Create(context.Background(), dto.CreateReturnRequest{AssetID: "asset-1", NewCustodianID: &next}, userClaims("user-1"))
	require.NoError(t, err)
	require.NotNil(t, ret.NewCustodianID)
	require.Equal(t, "user-3", *ret.NewCustodianID)
}

func TestReturnServiceCancelOnlyRequester(t *testing.T) {
	store := newReturnStoreStub()
	store.returns["ret-1"] = &models.ReturnRequest{ID: "ret-1", AssetID: "asset-1", UserID: "user-1", Status: models.StatusPending}
	svc := NewReturnService(store, &assetReaderStub{}, &userReaderStub{}, nil)

	err := svc.Cancel(context.Background(), "ret-1", userClaims("user-2"))
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Cancel(context.Background(), "ret-1", userClaims("user-1")))
	require.Equal(t, "ret-1", store.cancelled)
}

func TestReturnServiceDecideMapsStateConflict(t *testing.T) {
	store := newReturnStoreStub()
	store.returns["ret-1"] = &models.ReturnRequest{ID: "ret-1", AssetID: "asset-1", UserID: "user-1", Status: models.StatusRejected}
	svc := NewReturnService(store, &assetReaderStub{}, &userReaderStub{}, nil)

	_, err := svc.Decide(context.Background(), "ret-1", true, "", "admin-1")
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}
