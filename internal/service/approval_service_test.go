package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type cacheRepoStub struct {
	store    map[string][]byte
	patterns []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{store: make(map[string][]byte)}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.store = make(map[string][]byte)
	return nil
}

type transferDeciderStub struct {
	result *models.TransferRequest
	err    error
	called bool
}

func (s *transferDeciderStub) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.TransferRequest, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type returnDeciderStub struct {
	result *models.ReturnRequest
	err    error
	called bool
}

func (s *returnDeciderStub) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.ReturnRequest, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type editDeciderStub struct {
	result *models.EditRequest
	err    error
	called bool
}

func (s *editDeciderStub) Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.EditRequest, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func approvalFixture() (*ApprovalService, *transferDeciderStub, *returnDeciderStub, *editDeciderStub, *cacheRepoStub) {
	transfers := &transferDeciderStub{result: &models.TransferRequest{ID: "req-1", Status: models.StatusApproved}}
	returns := &returnDeciderStub{result: &models.ReturnRequest{ID: "ret-1", Status: models.StatusApproved}}
	edits := &editDeciderStub{result: &models.EditRequest{ID: "edit-1", Status: models.StatusRejected}}
	cacheRepo := newCacheRepoStub()
	cache := NewCacheService(cacheRepo, nil, time.Second, nil, true)
	svc := NewApprovalService(transfers, returns, edits, cache, nil)
	return svc, transfers, returns, edits, cacheRepo
}

func boolRef(v bool) *bool { return &v }

func TestApprovalServiceDecideDispatchesByType(t *testing.T) {
	svc, transfers, returns, edits, cacheRepo := approvalFixture()

	result, err := svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestTypeTransfer,
		RequestID:   "req-1",
		Approved:    boolRef(true),
	}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.True(t, transfers.called)
	settled, ok := result.(*models.TransferRequest)
	require.True(t, ok)
	require.Equal(t, models.StatusApproved, settled.Status)

	_, err = svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestTypeReturn,
		RequestID:   "ret-1",
		Approved:    boolRef(true),
	}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.True(t, returns.called)

	_, err = svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestTypeEdit,
		RequestID:   "edit-1",
		Approved:    boolRef(false),
	}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.True(t, edits.called)

	require.Equal(t, []string{"pending:*", "pending:*", "pending:*"}, cacheRepo.patterns)
}

func TestApprovalServiceDecideUnsupportedType(t *testing.T) {
	svc, _, _, _, _ := approvalFixture()

	_, err := svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestType("purchase"),
		RequestID:   "req-1",
		Approved:    boolRef(true),
	}, adminClaims("admin-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestApprovalServiceDecideRequiresAdmin(t *testing.T) {
	svc, transfers, _, _, cacheRepo := approvalFixture()

	_, err := svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestTypeTransfer,
		RequestID:   "req-1",
		Approved:    boolRef(true),
	}, userClaims("user-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	require.False(t, transfers.called)
	require.Empty(t, cacheRepo.patterns)
}

func TestApprovalServiceDecideSkipsInvalidationOnError(t *testing.T) {
	svc, transfers, _, _, cacheRepo := approvalFixture()
	transfers.err = appErrors.Clone(appErrors.ErrInvalidState, "transfer already processed")

	_, err := svc.Decide(context.Background(), dto.DecisionRequest{
		RequestType: models.RequestTypeTransfer,
		RequestID:   "req-1",
		Approved:    boolRef(true),
	}, adminClaims("admin-1"))
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
	require.Empty(t, cacheRepo.patterns)
}
