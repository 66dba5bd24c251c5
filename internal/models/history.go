package models

import "time"

// HistoryAction enumerates asset history entry kinds.
type HistoryAction string

const (
	HistoryActionCreate   HistoryAction = "create"
	HistoryActionEdit     HistoryAction = "edit"
	HistoryActionTransfer HistoryAction = "transfer"
	HistoryActionReturn   HistoryAction = "return"
	HistoryActionApprove  HistoryAction = "approve"
	HistoryActionDelete   HistoryAction = "delete"
)

// HistoryEntry is an append-only audit record of what changed on an asset,
// when, and by whom. OldValue/NewValue hold field-keyed JSON snapshots.
type HistoryEntry struct {
	ID          string        `db:"id" json:"id"`
	AssetID     string        `db:"asset_id" json:"asset_id"`
	ActionType  HistoryAction `db:"action_type" json:"action_type"`
	Description string        `db:"description" json:"description"`
	OldValue    []byte        `db:"old_value" json:"old_value,omitempty"`
	NewValue    []byte        `db:"new_value" json:"new_value,omitempty"`
	OperatorID  *string       `db:"operator_id" json:"operator_id,omitempty"`
	ApproverID  *string       `db:"approver_id" json:"approver_id,omitempty"`
	RequestID   *string       `db:"request_id" json:"request_id,omitempty"`
	RequestType *RequestType  `db:"request_type" json:"request_type,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
