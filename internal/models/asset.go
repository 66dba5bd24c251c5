package models

import "time"

// AssetStatus captures the custody state of an asset.
type AssetStatus string

const (
	AssetStatusInUse   AssetStatus = "in_use"
	AssetStatusInStock AssetStatus = "in_stock"
)

// Asset is the authoritative record for a fixed physical asset. CustodianID
// nil means the asset is warehouse-held; UserGroup is denormalized from the
// custodian's group and maintained by the workflow engine.
type Asset struct {
	ID             string      `db:"id" json:"id"`
	AssetNumber    string      `db:"asset_number" json:"asset_number"`
	Category       string      `db:"category" json:"category"`
	Name           string      `db:"name" json:"name"`
	Specification  *string     `db:"specification" json:"specification,omitempty"`
	Status         AssetStatus `db:"status" json:"status"`
	MACAddress     *string     `db:"mac_address" json:"mac_address,omitempty"`
	IPAddress      *string     `db:"ip_address" json:"ip_address,omitempty"`
	OfficeLocation *string     `db:"office_location" json:"office_location,omitempty"`
	Floor          *string     `db:"floor" json:"floor,omitempty"`
	SeatNumber     *string     `db:"seat_number" json:"seat_number,omitempty"`
	Remark         *string     `db:"remark" json:"remark,omitempty"`
	CustodianID    *string     `db:"custodian_id" json:"custodian_id,omitempty"`
	UserGroup      *string     `db:"user_group" json:"user_group,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy      *string     `db:"deleted_by" json:"deleted_by,omitempty"`
}

// EditableAssetFields enumerates the fields a field-level edit may touch.
/// Custodian and status are excluded: they only change through transfer and
// return workflows or by admin asset updates.
var EditableAssetFields = map[string]struct{}{
	"category":        {},
	"name":            {},
	"specification":   {},
	"mac_address":     {},
	"ip_address":      {},
	"office_location": {},
	"floor":           {},
	"seat_number":     {},
	"remark":          {},
}

// FieldValue returns the current value of an editable field. Nullable fields
// report nil when unset so history diffs can distinguish "cleared" from "".
func (a *Asset) FieldValue(field string) (interface{}, bool) {
	switch field {
	case "category":
		return a.Category, true
	case "name":
		return a.Name, true
	case "specification":
		return optionalValue(a.Specification), true
	case "mac_address":
		return optionalValue(a.MACAddress), true
	case "ip_address":
		return optionalValue(a.IPAddress), true
	case "office_location":
		return optionalValue(a.OfficeLocation), true
	case "floor":
		return optionalValue(a.Floor), true
	case "seat_number":
		return optionalValue(a.SeatNumber), true
	case "remark":
		return optionalValue(a.Remark), true
	default:
		return nil, false
	}
}

func optionalValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// AssetFilter constrains asset listing queries.
type AssetFilter struct {
	Status         *AssetStatus
	CustodianID    string
	Category       string
	Search         string
	IncludeDeleted bool
	Page           int
	PageSize       int
}
