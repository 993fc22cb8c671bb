package models

import (
	"time"
)

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	UserID     *string    `json:"userId,omitempty"`
	Action     *string    `json:"action,omitempty"`
	Category   *string    `json:"category,omitempty"`
	Severity   *string    `json:"severity,omitempty"`
	EntityType *string    `json:"entityType,omitempty"`
	EntityID   *string    `json:"entityId,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// AuditLogListResponse represents the API response for audit log queries
type AuditLogListResponse struct {
	Logs   []AuditLog `json:"logs"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ChangeHistoryFilter represents filters for querying change history
type ChangeHistoryFilter struct {
	EntityType *string    `json:"entityType,omitempty"`
	EntityID   *string    `json:"entityId,omitempty"`
	FieldName  *string    `json:"fieldName,omitempty"`
	ChangedBy  *string    `json:"changedBy,omitempty"`
	BatchID    *string    `json:"batchId,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// ChangeHistoryListResponse represents the API response for change history queries
type ChangeHistoryListResponse struct {
	Changes []ChangeHistory `json:"changes"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// SecurityEventFilter represents filters for querying security events
type SecurityEventFilter struct {
	EventType *string    `json:"eventType,omitempty"`
	UserID    *string    `json:"userId,omitempty"`
	Success   *bool      `json:"success,omitempty"`
	IPAddress *string    `json:"ipAddress,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// SecurityEventListResponse represents the API response for security event queries
type SecurityEventListResponse struct {
	Events []SecurityEvent `json:"events"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// DataAccessLogFilter represents filters for querying data access logs
type DataAccessLogFilter struct {
	UserID     *string    `json:"userId,omitempty"`
	EntityType *string    `json:"entityType,omitempty"`
	AccessType *string    `json:"accessType,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// DataAccessLogListResponse represents the API response for data access queries
type DataAccessLogListResponse struct {
	Logs   []DataAccessLog `json:"logs"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
