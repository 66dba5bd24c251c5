package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/repository"
)

type totalsProviderStub struct {
	totals repository.RegisterTotals
	calls  int
}

func (s *totalsProviderStub) Totals(ctx context.Context) (*repository.RegisterTotals, error) {
	s.calls++
	totals := s.totals
	return &totals, nil
}

func TestStatsServiceOverview(t *testing.T) {
	totals := &totalsProviderStub{totals: repository.RegisterTotals{TotalUsers: 5, TotalAssets: 10, InUseAssets: 7}}
	pending := &pendingCounterStub{counts: repository.PendingCounts{Transfers: 1, Returns: 1, Edits: 1}}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	svc := NewStatsService(totals, pending, cache, time.Minute, nil)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, overview.TotalUsers)
	require.Equal(t, 10, overview.TotalAssets)
	require.Equal(t, 7, overview.InUseAssets)
	require.Equal(t, 3, overview.PendingApprovals)

	again, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, overview.PendingApprovals, again.PendingApprovals)
	require.Equal(t, 1, totals.calls)
	require.Equal(t, 1, pending.pendingCalls)
}
