package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

// StatsRepository computes register-wide totals for the dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RegisterTotals holds the dashboard headline numbers.
type RegisterTotals struct {
	TotalUsers  int `db:"total_users"`
	TotalAssets int `db:"total_assets"`
	InUseAssets int `db:"in_use_assets"`
}

// Totals returns user and asset counts; deleted assets are excluded.
func (r *StatsRepository) Totals(ctx context.Context) (*RegisterTotals, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM users WHERE active = TRUE) AS total_users,
	(SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL) AS total_assets,
	(SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = $1) AS in_use_assets`
	var totals RegisterTotals
	if err := r.db.GetContext(ctx, &totals, query, models.AssetStatusInUse); err != nil {
		return nil, fmt.Errorf("count register totals: %w", err)
	}
	return &totals, nil
}
