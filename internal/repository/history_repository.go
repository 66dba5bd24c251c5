package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

const historyColumns = `id, asset_id, action_type, description, old_value, new_value, operator_id, approver_id, request_id, request_type, created_at`

// HistoryRepository reads and writes the append-only asset audit trail. The
// workflow repositories write history inside their own transactions; this
// repository serves standalone reads plus the rare out-of-band entry.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends a history entry outside a workflow transaction.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	return insertHistoryTx(ctx, r.db, entry)
}

// ListByAsset returns the asset's history, newest first.
func (r *HistoryRepository) ListByAsset(ctx context.Context, assetID string, limit, offset int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM asset_history WHERE asset_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		historyColumns, limit, offset)
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, assetID); err != nil {
		return nil, fmt.Errorf("list asset history: %w", err)
	}
	return entries, nil
}
