package models

import (
	"time"
)

// Service is a catalog entry describing a deliverable the organization sells.
// Service scopes under a contract point back at the catalog entry they price.
type Service struct {
	BaseModel
	Name        string  `gorm:"type:varchar(255);not null;index:idx_services_name" json:"name"`
	Category    *string `gorm:"type:varchar(100)" json:"category,omitempty"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	BasePrice   float64 `gorm:"not null;default:0" json:"basePrice"`
	// No schema default so deactivated entries survive GORM's zero-value
	// handling on insert
	Active bool `gorm:"not null" json:"active"`
}

// TableName specifies the table name for Service
func (Service) TableName() string {
	return "services"
}

// User is an operator account. Authentication happens upstream; this record
// exists so audit trails and approvals can name a real person.
type User struct {
	BaseModel
	Email       string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email" json:"email"`
	FirstName   string     `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName    string     `gorm:"type:varchar(100);not null" json:"lastName"`
	Role        string     `gorm:"type:varchar(50);not null;default:analyst" json:"role"`
	Active      bool       `gorm:"not null" json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
