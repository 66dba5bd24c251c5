package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

// PendingRepository computes pending-workload projections for the badge
// counters. Counts are read directly from the request tables; callers layer
// caching on top.
type PendingRepository struct {
	db *sqlx.DB
}

// NewPendingRepository constructs the repository.
func NewPendingRepository(db *sqlx.DB) *PendingRepository {
	return &PendingRepository{db: db}
}

// PendingCounts holds the per-type admin queue depths.
type PendingCounts struct {
	Transfers int `db:"transfers"`
	Returns   int `db:"returns"`
	Edits     int `db:"edits"`
}

// CountPending returns the number of requests awaiting admin decision, per
// request type.
func (r *PendingRepository) CountPending(ctx context.Context) (*PendingCounts, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM transfer_requests WHERE status = $1) AS transfers,
	(SELECT COUNT(*) FROM return_requests WHERE status = $1) AS returns,
	(SELECT COUNT(*) FROM edit_requests WHERE status = $1) AS edits`
	var counts PendingCounts
	if err := r.db.GetContext(ctx, &counts, query, models.StatusPending); err != nil {
		return nil, fmt.Errorf("count pending requests: %w", err)
	}
	return &counts, nil
}

// CountAwaitingConfirmation returns how many transfers wait on the given
// recipient's confirmation.
func (r *PendingRepository) CountAwaitingConfirmation(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM transfer_requests WHERE to_user_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.StatusWaitingConfirmation); err != nil {
		return 0, fmt.Errorf("count awaiting confirmation: %w", err)
	}
	return count, nil
}
