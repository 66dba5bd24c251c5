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

const returnColumns = `id, asset_id, user_id, reason, status, mac_address, ip_address, office_location,
	floor, seat_number, remark, new_custodian_id, approver_id, approval_comment, approved_at, created_at, updated_at`

// ReturnRepository persists return requests and their lifecycle.
type ReturnRepository struct {
	db *sqlx.DB
}

// NewReturnRepository constructs the repository.
func NewReturnRepository(db *sqlx.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// Create inserts a return request and its history entry atomically.
func (r *ReturnRepository) Create(ctx context.Context, req *models.ReturnRequest, entry *models.HistoryEntry) (err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO return_requests
	(id, asset_id, user_id, reason, status, mac_address, ip_address, office_location, floor, seat_number, remark, new_custodian_id, created_at, updated_at)
	VALUES (:id, :asset_id, :user_id, :reason, :status, :mac_address, :ip_address, :office_location, :floor, :seat_number, :remark, :new_custodian_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, req); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("create return request: %w", err)
	}

	entry.RequestID = &req.ID
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit return create: %w", err)
	}
	return nil
}

// GetByID fetches a return request by identifier.
func (r *ReturnRepository) GetByID(ctx context.Context, id string) (*models.ReturnRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM return_requests WHERE id = $1`, returnColumns)
	var req models.ReturnRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns return requests matching the filter, newest first.
func (r *ReturnRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.ReturnRequest, error) {
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
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "SELECT %s FROM return_requests", returnColumns)
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

	var requests []models.ReturnRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list return requests: %w", err)
	}
	return requests, nil
}

// DecideReturnParams groups inputs for the admin decision step.
type DecideReturnParams struct {
	ID         string
	Approved   bool
	ApproverID string
	Comment    *string
	DecidedAt  time.Time
}

// Decide settles a pending return. Approval applies the stored field
// overrides and moves custody: to the named new custodian with status left
// alone, or to the warehouse (NULL custodian, in_stock) when none was named.
func (r *ReturnRepository) Decide(ctx context.Context, params DecideReturnParams) (req *models.ReturnRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin return decide: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockReturnTx(ctx, tx, params.ID)
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
	if err = settleRequestTx(ctx, tx, "return_requests", params.ID, status, params.ApproverID, params.Comment, params.DecidedAt); err != nil {
		return nil, err
	}

	entry := &models.HistoryEntry{
		AssetID:     current.AssetID,
		ActionType:  models.HistoryActionReturn,
		OperatorID:  &current.UserID,
		ApproverID:  &params.ApproverID,
		RequestID:   &current.ID,
		RequestType: requestTypePtr(models.RequestTypeReturn),
	}

	if params.Approved {
		fields := make(map[string]string, 8)
		for key, value := range current.Overrides() {
			fields[key] = *value
		}
		if current.NewCustodianID != nil {
			fields["custodian_id"] = *current.NewCustodianID
		} else {
			fields["custodian_id"] = ""
			fields["status"] = string(models.AssetStatusInStock)
		}
		var outcome *editOutcome
		outcome, err = applyAssetEditTx(ctx, tx, current.AssetID, fields)
		if err != nil {
			return nil, err
		}
		entry.Description = "return approved"
		entry.OldValue = marshalSnapshot(outcome.OldValues)
		entry.NewValue = marshalSnapshot(outcome.NewValues)
	} else {
		entry.Description = "return rejected"
	}

	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return decide: %w", err)
	}

	current.Status = status
	current.ApproverID = &params.ApproverID
	current.ApprovalComment = params.Comment
	current.ApprovedAt = &params.DecidedAt
	current.UpdatedAt = params.DecidedAt
	return current, nil
}

// Cancel hard-deletes a still-pending return request and records the
// cancellation in asset history.
func (r *ReturnRepository) Cancel(ctx context.Context, id string, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return cancel: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockReturnTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrStateConflict
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM return_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete return request: %w", err)
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit return cancel: %w", err)
	}
	return nil
}

func lockReturnTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ReturnRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM return_requests WHERE id = $1 FOR UPDATE`, returnColumns)
	var req models.ReturnRequest
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock return request: %w", err)
	}
	return &req, nil
}
