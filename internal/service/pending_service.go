package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/repository"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type pendingCounter interface {
	CountPending(ctx context.Context) (*repository.PendingCounts, error)
	CountAwaitingConfirmation(ctx context.Context, userID string) (int, error)
}

const (
	pendingAdminCacheKey   = "pending:admin"
	pendingUserCachePrefix = "pending:user:"
)

// PendingService serves the pull-only pending counters the clients poll for
// badge updates. Counts come from cheap aggregate queries and are cached for
// at most the polling interval, so staleness stays within one poll.
type PendingService struct {
	repo   pendingCounter
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewPendingService constructs the service.
func NewPendingService(repo pendingCounter, cache *CacheService, ttl time.Duration, logger *zap.Logger) *PendingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PendingService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// AdminSummary returns the per-type admin queue depths.
func (s *PendingService) AdminSummary(ctx context.Context) (*dto.AdminPendingSummary, error) {
	var cached dto.AdminPendingSummary
	if hit, _ := s.cache.Get(ctx, pendingAdminCacheKey, &cached); hit {
		return &cached, nil
	}

	counts, err := s.repo.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	summary := &dto.AdminPendingSummary{
		PendingTransfers: counts.Transfers,
		PendingReturns:   counts.Returns,
		PendingEdits:     counts.Edits,
		TotalPending:     counts.Transfers + counts.Returns + counts.Edits,
	}
	if err := s.cache.Set(ctx, pendingAdminCacheKey, summary, s.ttl); err != nil {
		s.logger.Debug("pending summary cache write failed", zap.Error(err))
	}
	return summary, nil
}

// UserSummary returns how many transfers await the user's confirmation.
func (s *PendingService) UserSummary(ctx context.Context, userID string) (*dto.UserPendingSummary, error) {
	key := pendingUserCachePrefix + userID

	var cached dto.UserPendingSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	count, err := s.repo.CountAwaitingConfirmation(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count awaiting confirmations")
	}
	summary := &dto.UserPendingSummary{AwaitingConfirmation: count}
	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Debug("pending summary cache write failed", zap.Error(err))
	}
	return summary, nil
}
