package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceAuthorizationForm (SAF) is an approval record authorizing a scope of
// work for a client. Service scopes and compliance certificates reference the
// SAF that authorized them.
type ServiceAuthorizationForm struct {
	BaseModel
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_safs_client_id" json:"clientId"`
	SAFNumber     string     `gorm:"column:saf_number;type:varchar(100);not null;uniqueIndex:idx_safs_number" json:"safNumber"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Description   *string    `gorm:"type:text" json:"description,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:draft" json:"status"`
	ApprovedBy    *uuid.UUID `gorm:"type:uuid" json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
}

// TableName specifies the table name for ServiceAuthorizationForm
func (ServiceAuthorizationForm) TableName() string {
	return "service_authorization_forms"
}

// SAF statuses, validated in the service layer
const (
	SAFStatusDraft    = "draft"
	SAFStatusPending  = "pending"
	SAFStatusApproved = "approved"
	SAFStatusExpired  = "expired"
)

// CertificateOfCompliance (COC) is a compliance attestation for work delivered
// to a client, optionally traceable to the SAF that authorized the work
type CertificateOfCompliance struct {
	BaseModel
	ClientID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_cocs_client_id" json:"clientId"`
	SAFID             *uuid.UUID `gorm:"column:saf_id;type:uuid;index:idx_cocs_saf_id" json:"safId,omitempty"`
	CertificateNumber string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_cocs_number" json:"certificateNumber"`
	Title             string     `gorm:"type:varchar(255);not null" json:"title"`
	Standard          *string    `gorm:"type:varchar(100)" json:"standard,omitempty"`
	Status            string     `gorm:"type:varchar(20);not null;default:valid" json:"status"`
	IssuedDate        *time.Time `json:"issuedDate,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	AuditorName       *string    `gorm:"type:varchar(255)" json:"auditorName,omitempty"`
}

// TableName specifies the table name for CertificateOfCompliance
func (CertificateOfCompliance) TableName() string {
	return "certificates_of_compliance"
}

// COC statuses, validated in the service layer
const (
	COCStatusValid   = "valid"
	COCStatusExpired = "expired"
	COCStatusRevoked = "revoked"
)

// Document represents a stored file's metadata. The file content itself lives
// in external storage; only the descriptive record is kept here.
type Document struct {
	BaseModel
	Name        string     `gorm:"type:varchar(255);not null;index:idx_documents_name" json:"name"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"fileName"`
	ContentType *string    `gorm:"type:varchar(100)" json:"contentType,omitempty"`
	SizeBytes   int64      `gorm:"not null;default:0" json:"sizeBytes"`
	Category    *string    `gorm:"type:varchar(100)" json:"category,omitempty"`
	UploadedBy  *uuid.UUID `gorm:"type:uuid" json:"uploadedBy,omitempty"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}
