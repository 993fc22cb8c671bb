package models

// Client statuses (core system constants, validated in the service layer)
const (
	ClientStatusProspect = "prospect"
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

// Client represents a managed-services customer account
type Client struct {
	BaseModel
	Name         string   `gorm:"type:varchar(255);not null;index:idx_clients_name" json:"name"`
	Industry     *string  `gorm:"type:varchar(100)" json:"industry,omitempty"`
	ContactName  *string  `gorm:"type:varchar(255)" json:"contactName,omitempty"`
	ContactEmail *string  `gorm:"type:varchar(255);index:idx_clients_contact_email" json:"contactEmail,omitempty"`
	Phone        *string  `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Address      *string  `gorm:"type:text" json:"address,omitempty"`
	Status       string   `gorm:"type:varchar(20);not null;default:prospect;index:idx_clients_status" json:"status"`
	Source       *string  `gorm:"type:varchar(100)" json:"source,omitempty"`
	Notes        *string  `gorm:"type:text" json:"notes,omitempty"`
	Metadata     *JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// CreateClientRequest represents the request payload for creating a client
type CreateClientRequest struct {
	Name         string   `json:"name"`
	Industry     *string  `json:"industry,omitempty"`
	ContactName  *string  `json:"contactName,omitempty"`
	ContactEmail *string  `json:"contactEmail,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Address      *string  `json:"address,omitempty"`
	Status       string   `json:"status,omitempty"`
	Source       *string  `json:"source,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Metadata     *JSONMap `json:"metadata,omitempty"`
}

// UpdateClientRequest represents the request payload for updating a client
// Nil fields are left unchanged
type UpdateClientRequest struct {
	Name         *string  `json:"name,omitempty"`
	Industry     *string  `json:"industry,omitempty"`
	ContactName  *string  `json:"contactName,omitempty"`
	ContactEmail *string  `json:"contactEmail,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Address      *string  `json:"address,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Source       *string  `json:"source,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Metadata     *JSONMap `json:"metadata,omitempty"`
}

// ClientFilter represents filter parameters for querying clients
type ClientFilter struct {
	Status   *string `json:"status,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Search   *string `json:"search,omitempty"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
}

// ClientListResponse represents the API response for listing clients
type ClientListResponse struct {
	Clients []Client `json:"clients"`
	Total   int64    `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
