package dto

// CreateReturnRequest sends an asset back toward warehouse custody. Every
// override pointer distinguishes "absent" (nil, leave the field alone) from
// an explicit value; an explicit empty string clears the field on approval.
// NewCustodianID names a different keeper instead of the warehouse.
type CreateReturnRequest struct {
	AssetID        string  `json:"asset_id" binding:"required"`
	Reason         string  `json:"reason"`
	MACAddress     *string `json:"mac_address"`
	IPAddress      *string `json:"ip_address"`
	OfficeLocation *string `json:"office_location"`
	Floor          *string `json:"floor"`
	SeatNumber     *string `json:"seat_number"`
	Remark         *string `json:"remark"`
	NewCustodianID *string `json:"new_custodian_id"`
}
