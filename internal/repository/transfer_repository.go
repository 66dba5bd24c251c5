package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

const transferColumns = `id, asset_id, from_user_id, to_user_id, created_by, reason, status,
	to_user_confirmed, confirm_comment, confirmed_at, approver_id, approval_comment, approved_at, created_at, updated_at`

// TransferRepository persists transfer requests and their lifecycle.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository constructs the repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a transfer request and its history entry atomically. A
// second active request for the same asset trips the partial unique index and
// surfaces ErrDuplicateActive.
func (r *TransferRepository) Create(ctx context.Context, req *models.TransferRequest, entry *models.HistoryEntry) (err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.StatusWaitingConfirmation
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO transfer_requests
	(id, asset_id, from_user_id, to_user_id, created_by, reason, status, created_at, updated_at)
	VALUES (:id, :asset_id, :from_user_id, :to_user_id, :created_by, :reason, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, req); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("create transfer request: %w", err)
	}

	entry.RequestID = &req.ID
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer create: %w", err)
	}
	return nil
}

// GetByID fetches a transfer request by identifier.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.TransferRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfer_requests WHERE id = $1`, transferColumns)
	var req models.TransferRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns transfer requests matching the filter, newest first. A UserID
// filter matches any request the user participates in.
func (r *TransferRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.TransferRequest, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conditions = append(conditions, fmt.Sprintf("asset_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(from_user_id = $%d OR to_user_id = $%d OR created_by = $%d)", n, n, n))
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "SELECT %s FROM transfer_requests", transferColumns)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	fmt.Fprintf(&builder, " LIMIT %d OFFSET %d", limit, offset)

	var requests []models.TransferRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	return requests, nil
}

// ConfirmTransferParams groups inputs for the recipient's confirmation step.
type ConfirmTransferParams struct {
	ID          string
	Confirmed   bool
	Comment     *string
	ConfirmedAt time.Time
}

// Confirm records the recipient's accept/decline. Acceptance moves the
// request to the admin queue; decline terminates it. Only rows still in
// waiting_confirmation transition; anything else is a state conflict.
func (r *TransferRepository) Confirm(ctx context.Context, params ConfirmTransferParams, entry *models.HistoryEntry) (req *models.TransferRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer confirm: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockTransferTx(ctx, tx, params.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusWaitingConfirmation {
		return nil, ErrStateConflict
	}

	status := models.StatusPending
	if !params.Confirmed {
		status = models.StatusConfirmationRejected
	}
	const query = `UPDATE transfer_requests
	SET status = :status, to_user_confirmed = :confirmed, confirm_comment = :comment, confirmed_at = :confirmed_at, updated_at = :confirmed_at
	WHERE id = :id AND status = :guard`
	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":           params.ID,
		"status":       status,
		"confirmed":    params.Confirmed,
		"comment":      params.Comment,
		"confirmed_at": params.ConfirmedAt,
		"guard":        models.StatusWaitingConfirmation,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm transfer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check transfer confirm rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrStateConflict
	}

	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer confirm: %w", err)
	}

	current.Status = status
	current.ToUserConfirmed = &params.Confirmed
	current.ConfirmComment = params.Comment
	current.ConfirmedAt = &params.ConfirmedAt
	current.UpdatedAt = params.ConfirmedAt
	return current, nil
}

// DecideTransferParams groups inputs for the admin decision step.
type DecideTransferParams struct {
	ID         string
	Approved   bool
	ApproverID string
	Comment    *string
	DecidedAt  time.Time
}

// Decide settles a pending transfer. Approval reassigns custody to the
// recipient inside the same transaction; both outcomes append a history entry
// describing the decision.
func (r *TransferRepository) Decide(ctx context.Context, params DecideTransferParams) (req *models.TransferRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer decide: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockTransferTx(ctx, tx, params.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, ErrStateConflict
	}

	status := models.StatusApproved
	if !params.Approved {
		status = models.StatusRejected
	}
	if err = settleRequestTx(ctx, tx, "transfer_requests", params.ID, status, params.ApproverID, params.Comment, params.DecidedAt); err != nil {
		return nil, err
	}

	entry := &models.HistoryEntry{
		AssetID:     current.AssetID,
		ActionType:  models.HistoryActionTransfer,
		OperatorID:  &current.CreatedBy,
		ApproverID:  &params.ApproverID,
		RequestID:   &current.ID,
		RequestType: requestTypePtr(models.RequestTypeTransfer),
	}

	if params.Approved {
		var asset models.Asset
		lock := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, assetColumns)
		if err = tx.GetContext(ctx, &asset, lock, current.AssetID); err != nil {
			return nil, fmt.Errorf("lock asset for transfer: %w", err)
		}
		var group string
		group, err = userGroupTx(ctx, tx, current.ToUserID)
		if err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE assets SET custodian_id = $1, user_group = $2, updated_at = $3 WHERE id = $4`,
			current.ToUserID, group, params.DecidedAt, current.AssetID); err != nil {
			return nil, fmt.Errorf("reassign asset custody: %w", err)
		}
		entry.Description = "transfer approved"
		entry.OldValue = marshalSnapshot(map[string]interface{}{
			"custodian_id": nilIfEmpty(optionalString(asset.CustodianID)),
			"user_group":   nilIfEmpty(optionalString(asset.UserGroup)),
		})
		entry.NewValue = marshalSnapshot(map[string]interface{}{
			"custodian_id": current.ToUserID,
			"user_group":   group,
		})
	} else {
		entry.Description = "transfer rejected"
	}

	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer decide: %w", err)
	}

	current.Status = status
	current.ApproverID = &params.ApproverID
	current.ApprovalComment = params.Comment
	current.ApprovedAt = &params.DecidedAt
	current.UpdatedAt = params.DecidedAt
	return current, nil
}

// Cancel hard-deletes a non-terminal transfer request and records the
// cancellation in asset history.
func (r *TransferRepository) Cancel(ctx context.Context, id string, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer cancel: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockTransferTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrStateConflict
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM transfer_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete transfer request: %w", err)
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer cancel: %w", err)
	}
	return nil
}

func lockTransferTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.TransferRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfer_requests WHERE id = $1 FOR UPDATE`, transferColumns)
	var req models.TransferRequest
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock transfer request: %w", err)
	}
	return &req, nil
}

// settleRequestTx writes the decision columns shared by all request tables,
// guarded on the row still being pending.
func settleRequestTx(ctx context.Context, tx *sqlx.Tx, table, id string, status models.RequestStatus, approverID string, comment *string, decidedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s
	SET status = :status, approver_id = :approver_id, approval_comment = :comment, approved_at = :decided_at, updated_at = :decided_at
	WHERE id = :id AND status = :guard`, table)
	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          id,
		"status":      status,
		"approver_id": approverID,
		"comment":     comment,
		"decided_at":  decidedAt,
		"guard":       models.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("settle request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check settle rows: %w", err)
	}
	if rows == 0 {
		return ErrStateConflict
	}
	return nil
}

func requestTypePtr(t models.RequestType) *models.RequestType {
	return &t
}
