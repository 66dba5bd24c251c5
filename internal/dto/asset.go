package dto

// CreateAssetRequest registers a new asset in the catalog (admin only).
type CreateAssetRequest struct {
	AssetNumber    string  `json:"asset_number" binding:"required"`
	Category       string  `json:"category" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Specification  *string `json:"specification"`
	MACAddress     *string `json:"mac_address"`
	IPAddress      *string `json:"ip_address"`
	OfficeLocation *string `json:"office_location"`
	Floor          *string `json:"floor"`
	SeatNumber     *string `json:"seat_number"`
	Remark         *string `json:"remark"`
	CustodianID    *string `json:"custodian_id"`
}

// UpdateAssetRequest applies direct field edits through the admin bypass.
// Fields uses the same present-key contract as edit requests and may
// additionally carry custodian_id and status, which are reserved to admins.
type UpdateAssetRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// StatsResponse summarises the register for the dashboard.
type StatsResponse struct {
	TotalUsers       int `json:"total_users"`
	TotalAssets      int `json:"total_assets"`
	InUseAssets      int `json:"in_use_assets"`
	PendingApprovals int `json:"pending_approvals"`
}
