package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mssp-stack/portal-backend/config"
	"gorm.io/gorm"
)

// Audit categories emitted by the logging helpers. The accepted set is
// configurable via YAML; these constants cover the values the engine itself writes.
const (
	CategoryAuthentication   = "authentication"
	CategoryAuthorization    = "authorization"
	CategoryDataAccess       = "data_access"
	CategoryDataModification = "data_modification"
	CategorySecurity         = "security"
	CategorySystem           = "system"
	CategoryCompliance       = "compliance"
)

// Severity levels emitted by the logging helpers
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Audit actions emitted by the logging helpers
const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionView             = "view"
	ActionExport           = "export"
	ActionBulkUpdate       = "bulk_update"
	ActionBulkDelete       = "bulk_delete"
	ActionPermissionChange = "permission_change"
	ActionLogin            = "login"
	ActionLogout           = "logout"
)

// Data access type constants (not configurable via YAML as they are core to the system)
const (
	AccessTypeView   = "view"
	AccessTypeList   = "list"
	AccessTypeSearch = "search"
	AccessTypeExport = "export"
)

// Security event types emitted by the logging helpers
const (
	SecurityEventLogin            = "login"
	SecurityEventLoginFailed      = "login_failed"
	SecurityEventLogout           = "logout"
	SecurityEventPermissionChange = "permission_change"
	SecurityEventAccessDenied     = "access_denied"
	SecurityEventPasswordReset    = "password_reset"
)

// Enum configuration (loaded from YAML config file)
// Uses config.AuditEnums to leverage O(1) validation lookups
var (
	enumConfig     *config.AuditEnums
	enumConfigOnce sync.Once
)

// SetEnumConfig sets the enum configuration (called at service startup)
// Accepts config.AuditEnums to use its efficient O(1) validation methods
func SetEnumConfig(enums *config.AuditEnums) {
	enumConfigOnce.Do(func() {
		enumConfig = enums
	})
}

// GetEnumConfig returns the current enum configuration
func GetEnumConfig() *config.AuditEnums {
	return enumConfig
}

// AuditLog is the summary record written for every tracked operation.
// Rows are append-only; the application never updates or deletes them.
type AuditLog struct {
	ImmutableModel

	// Temporal
	Timestamp time.Time `gorm:"not null;index:idx_audit_logs_timestamp" json:"timestamp"`

	// Actor Information
	// Nullable because system-initiated operations have no user behind them
	UserID    *uuid.UUID `gorm:"type:uuid;index:idx_audit_logs_user_id" json:"userId,omitempty"`
	IPAddress *string    `gorm:"type:varchar(45)" json:"ipAddress,omitempty"`
	UserAgent *string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`
	SessionID *string    `gorm:"type:varchar(255)" json:"sessionId,omitempty"`

	// Event Classification
	Action   string `gorm:"type:varchar(50);not null;index:idx_audit_logs_action" json:"action"`
	Category string `gorm:"type:varchar(50);not null;index:idx_audit_logs_category" json:"category"`
	Severity string `gorm:"type:varchar(20);not null" json:"severity"`

	// Target Information
	EntityType *string `gorm:"type:varchar(50);index:idx_audit_logs_entity_type" json:"entityType,omitempty"`
	EntityID   *string `gorm:"type:varchar(255);index:idx_audit_logs_entity_id" json:"entityId,omitempty"`
	EntityName *string `gorm:"type:varchar(255)" json:"entityName,omitempty"`

	// Human-readable description of what happened
	Description string `gorm:"type:text;not null" json:"description"`

	// Metadata (context-specific data without PII/sensitive values)
	Metadata *JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName sets the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook to set default values
func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	// Timestamp should already be set by the service layer (required field)
	// This check ensures data integrity but should not be the primary source
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	return l.ImmutableModel.BeforeCreate(tx)
}

// Validate performs validation checks matching the database constraints
// Uses enum configuration if available, otherwise falls back to default constants
// Uses O(1) lookup methods from config.AuditEnums for efficient validation
func (l *AuditLog) Validate() error {
	if l.Action == "" {
		return fmt.Errorf("action is required")
	}
	if l.Description == "" {
		return fmt.Errorf("description is required")
	}

	// Validate category using config's O(1) validation method if available
	if enumConfig != nil {
		if !enumConfig.IsValidCategory(l.Category) {
			return fmt.Errorf("invalid category: %s", l.Category)
		}
	} else {
		// Fallback to default validation when config is not loaded
		// Use config.DefaultEnums to avoid duplication (access fields directly to avoid copying sync.Once)
		if !contains(config.DefaultEnums.Categories, l.Category) {
			return fmt.Errorf("invalid category: %s (must be one of: %v)", l.Category, config.DefaultEnums.Categories)
		}
	}

	// Validate severity using config's O(1) validation method if available
	if enumConfig != nil {
		if !enumConfig.IsValidSeverity(l.Severity) {
			return fmt.Errorf("invalid severity: %s", l.Severity)
		}
	} else {
		if !contains(config.DefaultEnums.Severities, l.Severity) {
			return fmt.Errorf("invalid severity: %s (must be one of: %v)", l.Severity, config.DefaultEnums.Severities)
		}
	}

	// Validate action against the configured vocabulary
	if enumConfig != nil {
		if !enumConfig.IsValidAction(l.Action) {
			return fmt.Errorf("invalid action: %s", l.Action)
		}
	} else {
		if !contains(config.DefaultEnums.Actions, l.Action) {
			return fmt.Errorf("invalid action: %s (must be one of: %v)", l.Action, config.DefaultEnums.Actions)
		}
	}

	return nil
}

// ChangeHistory records a single field-level change. One logical update
// produces one row per changed field, all sharing the same BatchID so the
// rows can be reassembled into the original operation.
type ChangeHistory struct {
	ImmutableModel

	Timestamp time.Time `gorm:"not null;index:idx_change_history_timestamp" json:"timestamp"`

	// Target Information
	EntityType string `gorm:"type:varchar(50);not null;index:idx_change_history_entity_type" json:"entityType"`
	EntityID   string `gorm:"type:varchar(255);not null;index:idx_change_history_entity_id" json:"entityId"`

	// Field-level change detail. FieldName is "*" for create and delete
	// entries, which capture the whole record rather than one field.
	FieldName string  `gorm:"type:varchar(100);not null" json:"fieldName"`
	OldValue  *string `gorm:"type:text" json:"oldValue,omitempty"`
	NewValue  *string `gorm:"type:text" json:"newValue,omitempty"`

	// Actor and correlation
	ChangedBy *uuid.UUID `gorm:"type:uuid;index:idx_change_history_changed_by" json:"changedBy,omitempty"`
	BatchID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_change_history_batch_id" json:"batchId"`

	// RollbackData holds self-contained instructions for undoing this change,
	// e.g. {"action": "update", "entityType": "client", "entityId": "...",
	// "field": "status", "value": "active"}. It never references other rows.
	RollbackData *JSONMap `gorm:"type:jsonb" json:"rollbackData,omitempty"`
}

// TableName sets the table name for ChangeHistory model
func (ChangeHistory) TableName() string {
	return "change_history"
}

// BeforeCreate hook to set default values
func (c *ChangeHistory) BeforeCreate(tx *gorm.DB) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return c.ImmutableModel.BeforeCreate(tx)
}

// Validate performs validation checks matching the database constraints
func (c *ChangeHistory) Validate() error {
	if c.EntityType == "" {
		return fmt.Errorf("entityType is required")
	}
	if c.EntityID == "" {
		return fmt.Errorf("entityId is required")
	}
	if c.FieldName == "" {
		return fmt.Errorf("fieldName is required")
	}
	if c.BatchID == uuid.Nil {
		return fmt.Errorf("batchId is required")
	}
	return nil
}

// SecurityEvent records an authentication or authorization outcome such as a
// login attempt, logout, or permission change
type SecurityEvent struct {
	ImmutableModel

	Timestamp time.Time `gorm:"not null;index:idx_security_events_timestamp" json:"timestamp"`

	EventType string     `gorm:"type:varchar(50);not null;index:idx_security_events_event_type" json:"eventType"`
	UserID    *uuid.UUID `gorm:"type:uuid;index:idx_security_events_user_id" json:"userId,omitempty"`
	Email     *string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	IPAddress *string    `gorm:"type:varchar(45)" json:"ipAddress,omitempty"`
	UserAgent *string    `gorm:"type:varchar(512)" json:"userAgent,omitempty"`

	// Success is false for denied or failed attempts; Reason carries the detail.
	// No column default: GORM omits zero-value bools from inserts.
	Success bool     `gorm:"not null" json:"success"`
	Reason  *string  `gorm:"type:varchar(255)" json:"reason,omitempty"`
	Details *JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
}

// TableName sets the table name for SecurityEvent model
func (SecurityEvent) TableName() string {
	return "security_events"
}

// BeforeCreate hook to set default values
func (s *SecurityEvent) BeforeCreate(tx *gorm.DB) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	return s.ImmutableModel.BeforeCreate(tx)
}

// Validate performs validation checks matching the database constraints
func (s *SecurityEvent) Validate() error {
	if s.EventType == "" {
		return fmt.Errorf("eventType is required")
	}

	// Validate event_type using config's O(1) validation method if available
	if enumConfig != nil {
		if !enumConfig.IsValidSecurityEventType(s.EventType) {
			return fmt.Errorf("invalid eventType: %s", s.EventType)
		}
	} else {
		if !contains(config.DefaultEnums.SecurityEventTypes, s.EventType) {
			return fmt.Errorf("invalid eventType: %s (must be one of: %v)", s.EventType, config.DefaultEnums.SecurityEventTypes)
		}
	}

	return nil
}

// DataAccessLog records read activity: views, searches, list queries and
// exports. Kept separate from audit_logs so high-volume read traffic does not
// drown the modification trail.
type DataAccessLog struct {
	ImmutableModel

	Timestamp time.Time `gorm:"not null;index:idx_data_access_logs_timestamp" json:"timestamp"`

	UserID     *uuid.UUID `gorm:"type:uuid;index:idx_data_access_logs_user_id" json:"userId,omitempty"`
	EntityType string     `gorm:"type:varchar(50);not null;index:idx_data_access_logs_entity_type" json:"entityType"`
	EntityID   *string    `gorm:"type:varchar(255)" json:"entityId,omitempty"`
	AccessType string     `gorm:"type:varchar(20);not null" json:"accessType"`

	// RecordCount is the number of rows returned (1 for single-entity views)
	RecordCount int      `gorm:"not null;default:0" json:"recordCount"`
	IPAddress   *string  `gorm:"type:varchar(45)" json:"ipAddress,omitempty"`
	Details     *JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
}

// TableName sets the table name for DataAccessLog model
func (DataAccessLog) TableName() string {
	return "data_access_logs"
}

// BeforeCreate hook to set default values
func (d *DataAccessLog) BeforeCreate(tx *gorm.DB) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	return d.ImmutableModel.BeforeCreate(tx)
}

// Validate performs validation checks matching the database constraints
func (d *DataAccessLog) Validate() error {
	if d.EntityType == "" {
		return fmt.Errorf("entityType is required")
	}
	switch d.AccessType {
	case AccessTypeView, AccessTypeList, AccessTypeSearch, AccessTypeExport:
	default:
		return fmt.Errorf("invalid accessType: %s (must be one of: %s, %s, %s, %s)",
			d.AccessType, AccessTypeView, AccessTypeList, AccessTypeSearch, AccessTypeExport)
	}
	return nil
}

// SystemEvent records service-level occurrences (startup, shutdown, scheduled
// job outcomes, consumer failures) that have no acting user
type SystemEvent struct {
	ImmutableModel

	Timestamp time.Time `gorm:"not null;index:idx_system_events_timestamp" json:"timestamp"`

	EventType string   `gorm:"type:varchar(50);not null;index:idx_system_events_event_type" json:"eventType"`
	Component string   `gorm:"type:varchar(100);not null" json:"component"`
	Severity  string   `gorm:"type:varchar(20);not null" json:"severity"`
	Message   string   `gorm:"type:text;not null" json:"message"`
	Details   *JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
}

// TableName sets the table name for SystemEvent model
func (SystemEvent) TableName() string {
	return "system_events"
}

// BeforeCreate hook to set default values
func (s *SystemEvent) BeforeCreate(tx *gorm.DB) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	return s.ImmutableModel.BeforeCreate(tx)
}

// Validate performs validation checks matching the database constraints
func (s *SystemEvent) Validate() error {
	if s.EventType == "" {
		return fmt.Errorf("eventType is required")
	}
	if s.Component == "" {
		return fmt.Errorf("component is required")
	}
	if s.Message == "" {
		return fmt.Errorf("message is required")
	}
	if enumConfig != nil {
		if !enumConfig.IsValidSeverity(s.Severity) {
			return fmt.Errorf("invalid severity: %s", s.Severity)
		}
	} else {
		if !contains(config.DefaultEnums.Severities, s.Severity) {
			return fmt.Errorf("invalid severity: %s (must be one of: %v)", s.Severity, config.DefaultEnums.Severities)
		}
	}
	return nil
}

// contains checks if a string slice contains a value
// Used only for fallback validation when config is not available
func contains(slice []string, value string) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}
