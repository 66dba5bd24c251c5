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

const editColumns = `id, asset_id, user_id, edit_data, status, approver_id, approval_comment, approved_at, created_at, updated_at`

// EditRepository persists edit requests and their lifecycle.
type EditRepository struct {
	db *sqlx.DB
}

// NewEditRepository constructs the repository.
func NewEditRepository(db *sqlx.DB) *EditRepository {
	return &EditRepository{db: db}
}

// Create inserts an edit request and its history entry atomically.
func (r *EditRepository) Create(ctx context.Context, req *models.EditRequest, entry *models.HistoryEntry) (err error) {
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
		return fmt.Errorf("begin edit create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO edit_requests
	(id, asset_id, user_id, edit_data, status, created_at, updated_at)
	VALUES (:id, :asset_id, :user_id, :edit_data, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, req); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("create edit request: %w", err)
	}

	entry.RequestID = &req.ID
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit edit create: %w", err)
	}
	return nil
}

// GetByID fetches an edit request by identifier.
func (r *EditRepository) GetByID(ctx context.Context, id string) (*models.EditRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM edit_requests WHERE id = $1`, editColumns)
	var req models.EditRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns edit requests matching the filter, newest first.
func (r *EditRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.EditRequest, error) {
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
	fmt.Fprintf(&builder, "SELECT %s FROM edit_requests", editColumns)
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

	var requests []models.EditRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list edit requests: %w", err)
	}
	return requests, nil
}

// DecideEditParams groups inputs for the admin decision step.
type DecideEditParams struct {
	ID         string
	Approved   bool
	ApproverID string
	Comment    *string
	DecidedAt  time.Time
}

// Decide settles a pending edit. Approval applies exactly the stored edit
// payload to the asset inside the same transaction; the history diff covers
// only the keys whose values actually changed.
func (r *EditRepository) Decide(ctx context.Context, params DecideEditParams) (req *models.EditRequest, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin edit decide: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockEditTx(ctx, tx, params.ID)
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
	if err = settleRequestTx(ctx, tx, "edit_requests", params.ID, status, params.ApproverID, params.Comment, params.DecidedAt); err != nil {
		return nil, err
	}

	entry := &models.HistoryEntry{
		AssetID:     current.AssetID,
		ActionType:  models.HistoryActionEdit,
		OperatorID:  &current.UserID,
		ApproverID:  &params.ApproverID,
		RequestID:   &current.ID,
		RequestType: requestTypePtr(models.RequestTypeEdit),
	}

	if params.Approved {
		var fields map[string]string
		fields, err = current.DecodeEditData()
		if err != nil {
			return nil, err
		}
		var outcome *editOutcome
		outcome, err = applyAssetEditTx(ctx, tx, current.AssetID, fields)
		if err != nil {
			return nil, err
		}
		entry.Description = "edit approved"
		entry.OldValue = marshalSnapshot(outcome.OldValues)
		entry.NewValue = marshalSnapshot(outcome.NewValues)
	} else {
		entry.Description = "edit rejected"
	}

	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit edit decide: %w", err)
	}

	current.Status = status
	current.ApproverID = &params.ApproverID
	current.ApprovalComment = params.Comment
	current.ApprovedAt = &params.DecidedAt
	current.UpdatedAt = params.DecidedAt
	return current, nil
}

// Cancel hard-deletes a still-pending edit request and records the
// cancellation in asset history.
func (r *EditRepository) Cancel(ctx context.Context, id string, entry *models.HistoryEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edit cancel: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := lockEditTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrStateConflict
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM edit_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete edit request: %w", err)
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit edit cancel: %w", err)
	}
	return nil
}

func lockEditTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.EditRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM edit_requests WHERE id = $1 FOR UPDATE`, editColumns)
	var req models.EditRequest
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock edit request: %w", err)
	}
	return &req, nil
}
