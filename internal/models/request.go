package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestType discriminates the three custody workflow request kinds.
type RequestType string

const (
	RequestTypeTransfer RequestType = "transfer"
	RequestTypeReturn   RequestType = "return"
	RequestTypeEdit     RequestType = "edit"
)

// RequestStatus captures workflow states for custody requests.
type RequestStatus string

const (
	// StatusWaitingConfirmation applies to transfers only: the recipient has
	// not yet accepted the handover.
	StatusWaitingConfirmation  RequestStatus = "waiting_confirmation"
	StatusPending              RequestStatus = "pending"
	StatusApproved             RequestStatus = "approved"
	StatusRejected             RequestStatus = "rejected"
	StatusConfirmationRejected RequestStatus = "confirmation_rejected"
)

// Terminal reports whether a status permits no further transition.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusConfirmationRejected:
		return true
	}
	return false
}

// TransferRequest hands custody of an asset from one user to another. The
// recipient must confirm before the request reaches the admin queue.
type TransferRequest struct {
	ID              string        `db:"id" json:"id"`
	AssetID         string        `db:"asset_id" json:"asset_id"`
	FromUserID      string        `db:"from_user_id" json:"from_user_id"`
	ToUserID        string        `db:"to_user_id" json:"to_user_id"`
	CreatedBy       string        `db:"created_by" json:"created_by"`
	Reason          string        `db:"reason" json:"reason"`
	Status          RequestStatus `db:"status" json:"status"`
	ToUserConfirmed *bool         `db:"to_user_confirmed" json:"to_user_confirmed,omitempty"`
	ConfirmComment  *string       `db:"confirm_comment" json:"confirm_comment,omitempty"`
	ConfirmedAt     *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ApproverID      *string       `db:"approver_id" json:"approver_id,omitempty"`
	ApprovalComment *string       `db:"approval_comment" json:"approval_comment,omitempty"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ReturnRequest sends an asset back to warehouse custody, optionally editing
// its recorded attributes on the way. Each override column uses SQL NULL for
// "no change" and an explicit empty string for "clear this field".
type ReturnRequest struct {
	ID              string        `db:"id" json:"id"`
	AssetID         string        `db:"asset_id" json:"asset_id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Reason          string        `db:"reason" json:"reason"`
	Status          RequestStatus `db:"status" json:"status"`
	MACAddress      *string       `db:"mac_address" json:"mac_address,omitempty"`
	IPAddress       *string       `db:"ip_address" json:"ip_address,omitempty"`
	OfficeLocation  *string       `db:"office_location" json:"office_location,omitempty"`
	Floor           *string       `db:"floor" json:"floor,omitempty"`
	SeatNumber      *string       `db:"seat_number" json:"seat_number,omitempty"`
	Remark          *string       `db:"remark" json:"remark,omitempty"`
	NewCustodianID  *string       `db:"new_custodian_id" json:"new_custodian_id,omitempty"`
	ApproverID      *string       `db:"approver_id" json:"approver_id,omitempty"`
	ApprovalComment *string       `db:"approval_comment" json:"approval_comment,omitempty"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Overrides collects the non-nil field overrides keyed by asset field name.
func (r *ReturnRequest) Overrides() map[string]*string {
	out := make(map[string]*string, 6)
	if r.MACAddress != nil {
		out["mac_address"] = r.MACAddress
	}
	if r.IPAddress != nil {
		out["ip_address"] = r.IPAddress
	}
	if r.OfficeLocation != nil {
		out["office_location"] = r.OfficeLocation
	}
	if r.Floor != nil {
		out["floor"] = r.Floor
	}
	if r.SeatNumber != nil {
		out["seat_number"] = r.SeatNumber
	}
	if r.Remark != nil {
		out["remark"] = r.Remark
	}
	return out
}

// EditRequest proposes a field-level change to an asset the requester holds.
// EditData is a JSON object whose present keys are the fields to change; a
// present key with an empty value clears the field.
type EditRequest struct {
	ID              string        `db:"id" json:"id"`
	AssetID         string        `db:"asset_id" json:"asset_id"`
	UserID          string        `db:"user_id" json:"user_id"`
	EditData        []byte        `db:"edit_data" json:"-"`
	Status          RequestStatus `db:"status" json:"status"`
	ApproverID      *string       `db:"approver_id" json:"approver_id,omitempty"`
	ApprovalComment *string       `db:"approval_comment" json:"approval_comment,omitempty"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// DecodeEditData parses the persisted edit payload.
func (r *EditRequest) DecodeEditData() (map[string]string, error) {
	if len(r.EditData) == 0 {
		return map[string]string{}, nil
	}
	var fields map[string]string
	if err := json.Unmarshal(r.EditData, &fields); err != nil {
		return nil, fmt.Errorf("decode edit data: %w", err)
	}
	return fields, nil
}

// MarshalJSON renders EditData as a JSON object rather than base64 bytes.
func (r EditRequest) MarshalJSON() ([]byte, error) {
	type alias EditRequest
	payload := struct {
		alias
		EditData json.RawMessage `json:"edit_data"`
	}{alias: alias(r)}
	if len(r.EditData) > 0 {
		payload.EditData = json.RawMessage(r.EditData)
	} else {
		payload.EditData = json.RawMessage("{}")
	}
	return json.Marshal(payload)
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	Status  []RequestStatus
	AssetID string
	// UserID scopes results to requests the user participates in.
	UserID string
	Limit  int
	Offset int
}
