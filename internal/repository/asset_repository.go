package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

const assetColumns = `id, asset_number, category, name, specification, status, mac_address, ip_address,
	office_location, floor, seat_number, remark, custodian_id, user_group, created_at, updated_at, deleted_at, deleted_by`

// AssetRepository persists the asset register and its change history.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a new asset and its creation history entry atomically.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset, operatorID string) (err error) {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin asset create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO assets
	(id, asset_number, category, name, specification, status, mac_address, ip_address, office_location, floor, seat_number, remark, custodian_id, user_group, created_at, updated_at)
	VALUES (:id, :asset_number, :category, :name, :specification, :status, :mac_address, :ip_address, :office_location, :floor, :seat_number, :remark, :custodian_id, :user_group, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, asset); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssetNumber
		}
		return fmt.Errorf("create asset: %w", err)
	}

	entry := &models.HistoryEntry{
		AssetID:     asset.ID,
		ActionType:  models.HistoryActionCreate,
		Description: fmt.Sprintf("asset %s registered", asset.AssetNumber),
		NewValue: marshalSnapshot(map[string]interface{}{
			"asset_number": asset.AssetNumber,
			"category":     asset.Category,
			"name":         asset.Name,
			"status":       asset.Status,
			"custodian_id": optionalString(asset.CustodianID),
		}),
		OperatorID: &operatorID,
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit asset create: %w", err)
	}
	return nil
}

// GetByID fetches a live (non-deleted) asset.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1 AND deleted_at IS NULL`, assetColumns)
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		return nil, err
	}
	return &asset, nil
}

// List returns assets matching the filter plus pagination metadata.
func (r *AssetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, *models.Pagination, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustodianID != "" {
		args = append(args, filter.CustodianID)
		conditions = append(conditions, fmt.Sprintf("custodian_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(asset_number ILIKE $%d OR name ILIKE $%d OR specification ILIKE $%d OR mac_address ILIKE $%d OR ip_address ILIKE $%d OR office_location ILIKE $%d)",
			n, n, n, n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assets"+where, args...); err != nil {
		return nil, nil, fmt.Errorf("count assets: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf("SELECT %s FROM assets%s ORDER BY asset_number ASC LIMIT %d OFFSET %d",
		assetColumns, where, pageSize, (page-1)*pageSize)
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// SoftDelete marks an asset deleted and records the removal. Already-deleted
// and unknown assets both surface sql.ErrNoRows.
func (r *AssetRepository) SoftDelete(ctx context.Context, id, actorID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin asset delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET deleted_at = $1, deleted_by = $2, updated_at = $1 WHERE id = $3 AND deleted_at IS NULL`,
		now, actorID, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check asset delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	entry := &models.HistoryEntry{
		AssetID:     id,
		ActionType:  models.HistoryActionDelete,
		Description: "asset removed from register",
		OperatorID:  &actorID,
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit asset delete: %w", err)
	}
	return nil
}

// ApplyFieldEditParams groups inputs for a direct field-level asset edit.
type ApplyFieldEditParams struct {
	AssetID     string
	Fields      map[string]string
	Description string
	OperatorID  string
	ApproverID  *string
}

// ApplyFieldEdit applies field changes and the matching history entry in one
// transaction. Used by the admin direct-edit path; approved edit requests run
// the same column logic inside their own decision transaction.
func (r *AssetRepository) ApplyFieldEdit(ctx context.Context, params ApplyFieldEditParams) (asset *models.Asset, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin asset edit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	outcome, err := applyAssetEditTx(ctx, tx, params.AssetID, params.Fields)
	if err != nil {
		return nil, err
	}

	entry := &models.HistoryEntry{
		AssetID:     params.AssetID,
		ActionType:  models.HistoryActionEdit,
		Description: params.Description,
		OldValue:    marshalSnapshot(outcome.OldValues),
		NewValue:    marshalSnapshot(outcome.NewValues),
		OperatorID:  &params.OperatorID,
		ApproverID:  params.ApproverID,
	}
	if err = insertHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit asset edit: %w", err)
	}
	return outcome.Asset, nil
}

// editOutcome reports the asset after an in-transaction field edit together
// with old/new snapshots restricted to the keys whose values actually changed.
type editOutcome struct {
	Asset     *models.Asset
	OldValues map[string]interface{}
	NewValues map[string]interface{}
}

// applyAssetEditTx locks the asset row and applies every submitted field. A
// present key with an empty value clears nullable columns; custodian_id also
// maintains the denormalized user_group, and clearing it parks the asset in
// the warehouse. Keys are applied verbatim; only changed keys enter the diff.
func applyAssetEditTx(ctx context.Context, tx *sqlx.Tx, assetID string, fields map[string]string) (*editOutcome, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, assetColumns)
	var asset models.Asset
	if err := tx.GetContext(ctx, &asset, query, assetID); err != nil {
		return nil, err
	}

	outcome := &editOutcome{
		Asset:     &asset,
		OldValues: make(map[string]interface{}),
		NewValues: make(map[string]interface{}),
	}
	if len(fields) == 0 {
		return outcome, nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	setParts := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys)+2)

	for _, key := range keys {
		value := fields[key]
		switch key {
		case "custodian_id":
			oldCustodian := optionalString(asset.CustodianID)
			oldGroup := optionalString(asset.UserGroup)
			if value == "" {
				setParts = append(setParts, "custodian_id = NULL", "user_group = NULL")
				asset.CustodianID = nil
				asset.UserGroup = nil
			} else {
				group, err := userGroupTx(ctx, tx, value)
				if err != nil {
					return nil, err
				}
				args = append(args, value)
				setParts = append(setParts, fmt.Sprintf("custodian_id = $%d", len(args)))
				args = append(args, group)
				setParts = append(setParts, fmt.Sprintf("user_group = $%d", len(args)))
				asset.CustodianID = &value
				asset.UserGroup = &group
			}
			if oldCustodian != optionalString(asset.CustodianID) {
				outcome.OldValues["custodian_id"] = nilIfEmpty(oldCustodian)
				outcome.NewValues["custodian_id"] = nilIfEmpty(optionalString(asset.CustodianID))
				outcome.OldValues["user_group"] = nilIfEmpty(oldGroup)
				outcome.NewValues["user_group"] = nilIfEmpty(optionalString(asset.UserGroup))
			}
		case "status":
			status := models.AssetStatus(value)
			if status != models.AssetStatusInUse && status != models.AssetStatusInStock {
				return nil, fmt.Errorf("invalid asset status %q", value)
			}
			if asset.Status != status {
				outcome.OldValues["status"] = asset.Status
				outcome.NewValues["status"] = status
			}
			args = append(args, status)
			setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)))
			asset.Status = status
		default:
			if _, ok := models.EditableAssetFields[key]; !ok {
				return nil, fmt.Errorf("unknown asset field %q", key)
			}
			old, _ := asset.FieldValue(key)
			if normalized(old) != value {
				outcome.OldValues[key] = old
				outcome.NewValues[key] = nilIfEmpty(value)
			}
			setAssetField(&asset, key, value)
			if value == "" && key != "category" && key != "name" {
				setParts = append(setParts, fmt.Sprintf("%s = NULL", key))
			} else {
				args = append(args, value)
				setParts = append(setParts, fmt.Sprintf("%s = $%d", key, len(args)))
			}
		}
	}

	now := time.Now().UTC()
	args = append(args, now)
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", len(args)))
	asset.UpdatedAt = now

	args = append(args, assetID)
	update := fmt.Sprintf("UPDATE assets SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, fmt.Errorf("apply asset edit: %w", err)
	}
	return outcome, nil
}

func setAssetField(asset *models.Asset, field, value string) {
	assign := func(dst **string) {
		if value == "" {
			*dst = nil
			return
		}
		v := value
		*dst = &v
	}
	switch field {
	case "category":
		asset.Category = value
	case "name":
		asset.Name = value
	case "specification":
		assign(&asset.Specification)
	case "mac_address":
		assign(&asset.MACAddress)
	case "ip_address":
		assign(&asset.IPAddress)
	case "office_location":
		assign(&asset.OfficeLocation)
	case "floor":
		assign(&asset.Floor)
	case "seat_number":
		assign(&asset.SeatNumber)
	case "remark":
		assign(&asset.Remark)
	}
}

func normalized(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
