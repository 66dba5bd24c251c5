package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/repository"
)

type pendingCounterStub struct {
	counts        repository.PendingCounts
	awaiting      map[string]int
	pendingCalls  int
	awaitingCalls int
}

func (s *pendingCounterStub) CountPending(ctx context.Context) (*repository.PendingCounts, error) {
	s.pendingCalls++
	counts := s.counts
	return &counts, nil
}

func (s *pendingCounterStub) CountAwaitingConfirmation(ctx context.Context, userID string) (int, error) {
	s.awaitingCalls++
	return s.awaiting[userID], nil
}

func TestPendingServiceAdminSummary(t *testing.T) {
	counter := &pendingCounterStub{counts: repository.PendingCounts{Transfers: 2, Returns: 1, Edits: 3}}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	svc := NewPendingService(counter, cache, time.Minute, nil)

	summary, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.PendingTransfers)
	require.Equal(t, 1, summary.PendingReturns)
	require.Equal(t, 3, summary.PendingEdits)
	require.Equal(t, 6, summary.TotalPending)
	require.Equal(t, 1, counter.pendingCalls)

	again, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, summary.TotalPending, again.TotalPending)
	require.Equal(t, 1, counter.pendingCalls)
}

func TestPendingServiceUserSummaryPerUser(t *testing.T) {
	counter := &pendingCounterStub{awaiting: map[string]int{"user-1": 4, "user-2": 0}}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	svc := NewPendingService(counter, cache, time.Minute, nil)

	first, err := svc.UserSummary(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 4, first.AwaitingConfirmation)

	second, err := svc.UserSummary(context.Background(), "user-2")
	require.NoError(t, err)
	require.Equal(t, 0, second.AwaitingConfirmation)
	require.Equal(t, 2, counter.awaitingCalls)

	cachedFirst, err := svc.UserSummary(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 4, cachedFirst.AwaitingConfirmation)
	require.Equal(t, 2, counter.awaitingCalls)
}

func TestPendingServiceWorksWithoutCache(t *testing.T) {
	counter := &pendingCounterStub{counts: repository.PendingCounts{Transfers: 1}}
	svc := NewPendingService(counter, nil, time.Minute, nil)

	summary, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.TotalPending)

	_, err = svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, counter.pendingCalls)
}
