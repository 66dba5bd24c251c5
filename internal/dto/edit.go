package dto

// CreateEditRequest proposes field-level changes to an asset the requester
// holds. Keys present in EditData are the fields to change; a present key
// with an empty value means "clear this field". Absent keys stay untouched.
type CreateEditRequest struct {
	AssetID  string            `json:"asset_id" binding:"required"`
	EditData map[string]string `json:"edit_data" binding:"required"`
}
