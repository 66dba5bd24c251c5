package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/itops-hq/asset-custody-api/internal/dto"
	"github.com/itops-hq/asset-custody-api/internal/models"
	appErrors "github.com/itops-hq/asset-custody-api/pkg/errors"
)

type transferDecider interface {
	Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.TransferRequest, error)
}

type returnDecider interface {
	Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.ReturnRequest, error)
}

type editDecider interface {
	Decide(ctx context.Context, id string, approved bool, comment, approverID string) (*models.EditRequest, error)
}

type decideFunc func(ctx context.Context, id string, approved bool, comment, approverID string) (interface{}, error)

// ApprovalService is the single entry point for admin decisions. Dispatch is
// a lookup table keyed by request type; each branch delegates to the owning
// workflow service, which settles the request in one transaction.
type ApprovalService struct {
	deciders map[models.RequestType]decideFunc
	cache    *CacheService
	logger   *zap.Logger
}

// NewApprovalService constructs the coordinator.
func NewApprovalService(transfers transferDecider, returns returnDecider, edits editDecider, cache *CacheService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	deciders := map[models.RequestType]decideFunc{
		models.RequestTypeTransfer: func(ctx context.Context, id string, approved bool, comment, approverID string) (interface{}, error) {
			return transfers.Decide(ctx, id, approved, comment, approverID)
		},
		models.RequestTypeReturn: func(ctx context.Context, id string, approved bool, comment, approverID string) (interface{}, error) {
			return returns.Decide(ctx, id, approved, comment, approverID)
		},
		models.RequestTypeEdit: func(ctx context.Context, id string, approved bool, comment, approverID string) (interface{}, error) {
			return edits.Decide(ctx, id, approved, comment, approverID)
		},
	}
	return &ApprovalService{deciders: deciders, cache: cache, logger: logger}
}

// Decide applies an admin decision to the named request and returns the
// settled request. Pending counters are invalidated on success so the badge
// endpoints converge before their TTL.
func (s *ApprovalService) Decide(ctx context.Context, req dto.DecisionRequest, actor *models.JWTClaims) (interface{}, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators decide requests")
	}

	decide, ok := s.deciders[req.RequestType]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request type")
	}
	approved := req.Approved != nil && *req.Approved

	result, err := decide(ctx, req.RequestID, approved, req.Comment, actor.UserID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "pending:*"); err != nil {
			s.logger.Warn("failed to invalidate pending counters", zap.Error(err))
		}
	}
	return result, nil
}
