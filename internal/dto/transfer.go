package dto

// CreateTransferRequest asks to hand an asset over to another user. The
// transferring side is derived from the asset's current custodian; an admin
// may file on a custodian's behalf.
type CreateTransferRequest struct {
	AssetID  string `json:"asset_id" binding:"required"`
	ToUserID string `json:"to_user_id" binding:"required"`
	Reason   string `json:"reason"`
}

// ConfirmTransferRequest carries the recipient's accept/decline decision.
// Confirmed is a pointer so an explicit false survives binding validation.
type ConfirmTransferRequest struct {
	Confirmed *bool  `json:"confirmed" binding:"required"`
	Comment   string `json:"comment"`
}
