package dto

import "github.com/itops-hq/asset-custody-api/internal/models"

// DecisionRequest carries an administrator's approve/reject decision for any
// request type. Approved is a pointer so an explicit reject binds cleanly.
type DecisionRequest struct {
	RequestID   string             `json:"request_id" binding:"required"`
	RequestType models.RequestType `json:"request_type" binding:"required"`
	Approved    *bool              `json:"approved" binding:"required"`
	Comment     string             `json:"comment"`
}

// AdminPendingSummary aggregates requests awaiting administrator decision.
type AdminPendingSummary struct {
	PendingTransfers int `json:"pending_transfers"`
	PendingReturns   int `json:"pending_returns"`
	PendingEdits     int `json:"pending_edits"`
	TotalPending     int `json:"total_pending"`
}

// UserPendingSummary counts transfers awaiting the user's confirmation.
type UserPendingSummary struct {
	AwaitingConfirmation int `json:"awaiting_confirmation"`
}
