package models

import (
	"time"

	"github.com/google/uuid"
)

// HardwareAsset is a physical device tracked in inventory. Assets are linked
// to clients through ClientHardwareAssignment rows rather than a direct
// foreign key, so a device's assignment history survives reassignment.
type HardwareAsset struct {
	BaseModel
	AssetTag     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_hardware_assets_tag" json:"assetTag"`
	SerialNumber *string    `gorm:"type:varchar(100)" json:"serialNumber,omitempty"`
	Manufacturer *string    `gorm:"type:varchar(100)" json:"manufacturer,omitempty"`
	Model        *string    `gorm:"type:varchar(100)" json:"model,omitempty"`
	Category     *string    `gorm:"type:varchar(100)" json:"category,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:in_stock" json:"status"`
	PurchaseDate *time.Time `json:"purchaseDate,omitempty"`
	WarrantyEnd  *time.Time `json:"warrantyEnd,omitempty"`
	Notes        *string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for HardwareAsset
func (HardwareAsset) TableName() string {
	return "hardware_assets"
}

// Hardware asset statuses, validated in the service layer
const (
	AssetStatusInStock  = "in_stock"
	AssetStatusAssigned = "assigned"
	AssetStatusRetired  = "retired"
)

// ClientHardwareAssignment is the join record between a client and a hardware
// asset. ReturnedAt nil means the assignment is still active.
type ClientHardwareAssignment struct {
	BaseModel
	ClientID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_client_hardware_client_id" json:"clientId"`
	HardwareAssetID uuid.UUID  `gorm:"type:uuid;not null;index:idx_client_hardware_asset_id" json:"hardwareAssetId"`
	AssignedAt      time.Time  `gorm:"not null" json:"assignedAt"`
	ReturnedAt      *time.Time `json:"returnedAt,omitempty"`
	Location        *string    `gorm:"type:varchar(255)" json:"location,omitempty"`
	Notes           *string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for ClientHardwareAssignment
func (ClientHardwareAssignment) TableName() string {
	return "client_hardware_assignments"
}

// LicensePool tracks a block of purchased software seats and how many of them
// are currently handed out
type LicensePool struct {
	BaseModel
	Name          string     `gorm:"type:varchar(255);not null;index:idx_license_pools_name" json:"name"`
	Vendor        *string    `gorm:"type:varchar(100)" json:"vendor,omitempty"`
	ProductName   *string    `gorm:"type:varchar(255)" json:"productName,omitempty"`
	TotalSeats    int        `gorm:"not null;default:0" json:"totalSeats"`
	AssignedSeats int        `gorm:"not null;default:0" json:"assignedSeats"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:active" json:"status"`
	Notes         *string    `gorm:"type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for LicensePool
func (LicensePool) TableName() string {
	return "license_pools"
}
