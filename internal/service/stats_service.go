package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type totalsProvider interface {
	Totals(ctx context.Context) (*repository.RegisterTotals, error)
}

const statsCacheKey = "stats:overview"

// StatsService assembles the dashboard overview.
type StatsService struct {
	stats   totalsProvider
	pending pendingCounter
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(stats totalsProvider, pending pendingCounter, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{stats: stats, pending: pending, cache: cache, ttl: ttl, logger: logger}
}

// Overview returns register totals plus the combined admin queue depth.
func (s *StatsService) Overview(ctx context.Context) (*dto.StatsResponse, error) {
	var cached dto.StatsResponse
	if hit, _ := s.cache.Get(ctx, statsCacheKey, &cached); hit {
		return &cached, nil
	}

	totals, err := s.stats.Totals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load register totals")
	}
	counts, err := s.pending.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}

	overview := &dto.StatsResponse{
		TotalUsers:       totals.TotalUsers,
		TotalAssets:      totals.TotalAssets,
		InUseAssets:      totals.InUseAssets,
		PendingApprovals: counts.Transfers + counts.Returns + counts.Edits,
	}
	if err := s.cache.Set(ctx, statsCacheKey, overview, s.ttl); err != nil {
		s.logger.Debug("stats cache write failed", zap.Error(err))
	}
	return overview, nil
}
