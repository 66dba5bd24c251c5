package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

var (
	// ErrDuplicateActive reports that the per-asset active-request
	// uniqueness constraint fired on insert.
	ErrDuplicateActive = errors.New("asset already has an active request of this type")
	// ErrStateConflict reports that the row was not in the state the
	// operation requires (decided, confirmed, or cancelled concurrently).
	ErrStateConflict = errors.New("request state does not permit this operation")
	// ErrDuplicateAssetNumber reports an asset_number collision on insert.
	ErrDuplicateAssetNumber = errors.New("asset number already registered")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

const historyInsertQuery = `INSERT INTO asset_history
	(id, asset_id, action_type, description, old_value, new_value, operator_id, approver_id, request_id, request_type, created_at)
	VALUES (:id, :asset_id, :action_type, :description, :old_value, :new_value, :operator_id, :approver_id, :request_id, :request_type, :created_at)`

// insertHistoryTx appends a history entry using the caller's transaction so
// the audit record commits or rolls back together with the change it records.
func insertHistoryTx(ctx context.Context, ext sqlx.ExtContext, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, ext, historyInsertQuery, entry); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// marshalSnapshot serialises a field-keyed snapshot for history storage.
// Empty snapshots stay NULL.
func marshalSnapshot(values map[string]interface{}) []byte {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

// userGroupTx resolves a user's group inside the caller's transaction.
func userGroupTx(ctx context.Context, tx *sqlx.Tx, userID string) (string, error) {
	var group string
	if err := tx.GetContext(ctx, &group, `SELECT user_group FROM users WHERE id = $1`, userID); err != nil {
		return "", fmt.Errorf("resolve user group: %w", err)
	}
	return group, nil
}
