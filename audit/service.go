package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/monitoring"
)

// Service records and queries the audit trail. All Log* methods are
// fire-and-forget: defaults are merged over the caller's fields and the write
// goes through the never-failing sink. The Get* methods are ordinary fallible
// queries used by the audit API.
type Service struct {
	db   *gorm.DB
	sink *sink
}

// NewService creates an audit service over the given database handle
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, sink: &sink{db: db}}
}

// LogAudit records one audit log entry. Severity defaults to info and
// category to system when unset.
func (s *Service) LogAudit(ctx context.Context, entry *models.AuditLog) {
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if entry.Category == "" {
		entry.Category = models.CategorySystem
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.sink.write(ctx, entry)
}

// LogChange records one field-level change history entry. A missing batch ID
// gets a fresh one so standalone changes are still correlatable.
func (s *Service) LogChange(ctx context.Context, entry *models.ChangeHistory) {
	if entry.BatchID == uuid.Nil {
		entry.BatchID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.sink.write(ctx, entry)
}

// LogSecurityEvent records an authentication/authorization outcome,
// swallowing failures like every other Log* method
func (s *Service) LogSecurityEvent(ctx context.Context, event *models.SecurityEvent) {
	if err := s.SaveSecurityEvent(ctx, event); err != nil {
		slog.Error("Failed to record security event", "eventType", event.EventType, "error", err)
	}
}

// SaveSecurityEvent is the fallible variant of LogSecurityEvent. The stream
// consumer uses it so validation and storage failures surface for retry and
// dead-lettering instead of being silently dropped.
func (s *Service) SaveSecurityEvent(ctx context.Context, event *models.SecurityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid security event: %w", err)
	}
	start := time.Now()
	err := s.db.WithContext(ctx).Create(event).Error
	monitoring.RecordDBLatency(ctx, "postgres", "audit_insert", time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to save security event: %w", err)
	}
	return nil
}

// LogDataAccess records one read-activity entry
func (s *Service) LogDataAccess(ctx context.Context, entry *models.DataAccessLog) {
	if entry.AccessType == "" {
		entry.AccessType = models.AccessTypeView
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.sink.write(ctx, entry)
}

// LogSystemEvent records a service-level occurrence. Severity defaults to info.
func (s *Service) LogSystemEvent(ctx context.Context, event *models.SystemEvent) {
	if event.Severity == "" {
		event.Severity = models.SeverityInfo
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.sink.write(ctx, event)
}

// GetAuditLogs retrieves audit logs with optional filtering
func (s *Service) GetAuditLogs(ctx context.Context, filter *models.AuditLogFilter) (*models.AuditLogListResponse, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", *filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count audit logs", "error", err)
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = query.Order("timestamp DESC")

	limit := filter.Limit
	if limit == 0 {
		limit = 50 // Default limit
	}
	query = query.Limit(limit)

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		slog.Error("Failed to query audit logs", "error", err)
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return &models.AuditLogListResponse{
		Logs:   logs,
		Total:  total,
		Limit:  limit,
		Offset: filter.Offset,
	}, nil
}

// GetChangeHistory retrieves change history entries with optional filtering
func (s *Service) GetChangeHistory(ctx context.Context, filter *models.ChangeHistoryFilter) (*models.ChangeHistoryListResponse, error) {
	var changes []models.ChangeHistory
	var total int64

	query := s.db.WithContext(ctx).Model(&models.ChangeHistory{})

	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.FieldName != nil {
		query = query.Where("field_name = ?", *filter.FieldName)
	}
	if filter.ChangedBy != nil {
		query = query.Where("changed_by = ?", *filter.ChangedBy)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", *filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count change history", "error", err)
		return nil, fmt.Errorf("failed to count change history: %w", err)
	}

	query = query.Order("timestamp DESC")

	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	query = query.Limit(limit)

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&changes).Error; err != nil {
		slog.Error("Failed to query change history", "error", err)
		return nil, fmt.Errorf("failed to query change history: %w", err)
	}

	return &models.ChangeHistoryListResponse{
		Changes: changes,
		Total:   total,
		Limit:   limit,
		Offset:  filter.Offset,
	}, nil
}

// GetSecurityEvents retrieves security events with optional filtering
func (s *Service) GetSecurityEvents(ctx context.Context, filter *models.SecurityEventFilter) (*models.SecurityEventListResponse, error) {
	var events []models.SecurityEvent
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SecurityEvent{})

	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", *filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count security events", "error", err)
		return nil, fmt.Errorf("failed to count security events: %w", err)
	}

	query = query.Order("timestamp DESC")

	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	query = query.Limit(limit)

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&events).Error; err != nil {
		slog.Error("Failed to query security events", "error", err)
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return &models.SecurityEventListResponse{
		Events: events,
		Total:  total,
		Limit:  limit,
		Offset: filter.Offset,
	}, nil
}

// GetDataAccessLogs retrieves data access logs with optional filtering
func (s *Service) GetDataAccessLogs(ctx context.Context, filter *models.DataAccessLogFilter) (*models.DataAccessLogListResponse, error) {
	var logs []models.DataAccessLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.DataAccessLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.AccessType != nil {
		query = query.Where("access_type = ?", *filter.AccessType)
	}
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", *filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		slog.Error("Failed to count data access logs", "error", err)
		return nil, fmt.Errorf("failed to count data access logs: %w", err)
	}

	query = query.Order("timestamp DESC")

	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	query = query.Limit(limit)

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		slog.Error("Failed to query data access logs", "error", err)
		return nil, fmt.Errorf("failed to query data access logs: %w", err)
	}

	return &models.DataAccessLogListResponse{
		Logs:   logs,
		Total:  total,
		Limit:  limit,
		Offset: filter.Offset,
	}, nil
}
