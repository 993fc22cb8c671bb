package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mssp-stack/portal-backend/models"
)

// Actor identifies who is performing the operation a Logger records.
// Populated by the request-context middleware; every field is optional
// because unauthenticated and system-initiated operations exist.
type Actor struct {
	UserID    *uuid.UUID
	IPAddress *string
	UserAgent *string
	SessionID *string
}

// Logger binds one logical operation's actor context and batch ID. Create
// one per request and discard it afterwards. Every change history row the
// logger emits shares its batch ID, so the per-field fan-out of one update
// can be reassembled later.
type Logger struct {
	svc     *Service
	actor   Actor
	batchID uuid.UUID
}

// NewLogger creates a request-scoped logger bound to the given actor
func (s *Service) NewLogger(actor Actor) *Logger {
	return &Logger{svc: s, actor: actor, batchID: uuid.New()}
}

// BatchID returns the correlation ID shared by this logger's change rows
func (l *Logger) BatchID() uuid.UUID {
	return l.batchID
}

// LogCreate records an entity creation: one audit entry plus one change
// history entry whose rollback instruction is "delete this entity"
func (l *Logger) LogCreate(ctx context.Context, entityType, entityID, entityName string, data map[string]interface{}) {
	l.svc.LogAudit(ctx, l.auditEntry(
		models.ActionCreate,
		models.CategoryDataModification,
		models.SeverityInfo,
		entityType, entityID, entityName,
		fmt.Sprintf("Created %s %s", entityType, entityName),
		nil,
	))

	rollback := models.JSONMap{
		"action":     "delete",
		"entityType": entityType,
		"entityId":   entityID,
	}
	l.svc.LogChange(ctx, &models.ChangeHistory{
		EntityType:   entityType,
		EntityID:     entityID,
		FieldName:    "*",
		NewValue:     Stringify(data),
		ChangedBy:    l.actor.UserID,
		BatchID:      l.batchID,
		RollbackData: &rollback,
	})
}

// LogUpdate records an entity update: one summary audit entry plus one change
// history entry per changed field, all sharing the logger's batch ID. Each
// rollback instruction restores that single field from oldData. Calling with
// no changes writes nothing at all.
func (l *Logger) LogUpdate(ctx context.Context, entityType, entityID, entityName string, changes []FieldChange, oldData map[string]interface{}) {
	if len(changes) == 0 {
		return
	}

	changed := make([]interface{}, 0, len(changes))
	for _, c := range changes {
		changed = append(changed, c.Field)
	}
	metadata := models.JSONMap{"changedFields": changed}

	l.svc.LogAudit(ctx, l.auditEntry(
		models.ActionUpdate,
		models.CategoryDataModification,
		models.SeverityInfo,
		entityType, entityID, entityName,
		fmt.Sprintf("Updated %s %s (%d fields)", entityType, entityName, len(changes)),
		&metadata,
	))

	for _, change := range changes {
		rollback := models.JSONMap{
			"action":     "update",
			"entityType": entityType,
			"entityId":   entityID,
			"field":      change.Field,
			"value":      oldData[change.Field],
		}
		l.svc.LogChange(ctx, &models.ChangeHistory{
			EntityType:   entityType,
			EntityID:     entityID,
			FieldName:    change.Field,
			OldValue:     Stringify(change.OldValue),
			NewValue:     Stringify(change.NewValue),
			ChangedBy:    l.actor.UserID,
			BatchID:      l.batchID,
			RollbackData: &rollback,
		})
	}
}

// LogDelete records an entity deletion at medium severity. The rollback
// instruction carries the full deleted row, so a delete is always reversible
// by re-insertion provided the caller captured the row first.
func (l *Logger) LogDelete(ctx context.Context, entityType, entityID, entityName string, deletedData map[string]interface{}) {
	l.svc.LogAudit(ctx, l.auditEntry(
		models.ActionDelete,
		models.CategoryDataModification,
		models.SeverityMedium,
		entityType, entityID, entityName,
		fmt.Sprintf("Deleted %s %s", entityType, entityName),
		nil,
	))

	rollback := models.JSONMap{
		"action":     "create",
		"entityType": entityType,
		"data":       deletedData,
	}
	l.svc.LogChange(ctx, &models.ChangeHistory{
		EntityType:   entityType,
		EntityID:     entityID,
		FieldName:    "*",
		OldValue:     Stringify(deletedData),
		ChangedBy:    l.actor.UserID,
		BatchID:      l.batchID,
		RollbackData: &rollback,
	})
}

// LogView records a single-entity read in the data access log
func (l *Logger) LogView(ctx context.Context, entityType, entityID string) {
	l.svc.LogDataAccess(ctx, &models.DataAccessLog{
		UserID:      l.actor.UserID,
		EntityType:  entityType,
		EntityID:    &entityID,
		AccessType:  models.AccessTypeView,
		RecordCount: 1,
		IPAddress:   l.actor.IPAddress,
	})
}

// LogList records a list query in the data access log
func (l *Logger) LogList(ctx context.Context, entityType string, recordCount int) {
	l.svc.LogDataAccess(ctx, &models.DataAccessLog{
		UserID:      l.actor.UserID,
		EntityType:  entityType,
		AccessType:  models.AccessTypeList,
		RecordCount: recordCount,
		IPAddress:   l.actor.IPAddress,
	})
}

// LogSearch records a cross-entity search in the data access log
func (l *Logger) LogSearch(ctx context.Context, entityType, query string, recordCount int) {
	details := models.JSONMap{"query": query}
	l.svc.LogDataAccess(ctx, &models.DataAccessLog{
		UserID:      l.actor.UserID,
		EntityType:  entityType,
		AccessType:  models.AccessTypeSearch,
		RecordCount: recordCount,
		IPAddress:   l.actor.IPAddress,
		Details:     &details,
	})
}

// LogBulkOperation records a bulk mutation. Operations touching more than 10
// records are escalated from info to medium severity.
func (l *Logger) LogBulkOperation(ctx context.Context, action, entityType string, recordCount int, details map[string]interface{}) {
	severity := models.SeverityInfo
	if recordCount > 10 {
		severity = models.SeverityMedium
	}

	metadata := models.JSONMap{"recordCount": recordCount}
	for k, v := range details {
		metadata[k] = v
	}

	l.svc.LogAudit(ctx, l.auditEntry(
		action,
		models.CategoryDataModification,
		severity,
		entityType, "", "",
		fmt.Sprintf("Bulk %s on %d %s records", action, recordCount, entityType),
		&metadata,
	))
}

// LogExport records a data export: a data access entry with the row count
// plus a medium-severity audit entry, since exports move data out of the
// system
func (l *Logger) LogExport(ctx context.Context, entityType string, recordCount int, filters map[string]interface{}) {
	var details *models.JSONMap
	if len(filters) > 0 {
		d := models.JSONMap(filters)
		details = &d
	}
	l.svc.LogDataAccess(ctx, &models.DataAccessLog{
		UserID:      l.actor.UserID,
		EntityType:  entityType,
		AccessType:  models.AccessTypeExport,
		RecordCount: recordCount,
		IPAddress:   l.actor.IPAddress,
		Details:     details,
	})

	l.svc.LogAudit(ctx, l.auditEntry(
		models.ActionExport,
		models.CategoryDataAccess,
		models.SeverityMedium,
		entityType, "", "",
		fmt.Sprintf("Exported %d %s records", recordCount, entityType),
		nil,
	))
}

// LogPermissionChange records a permission grant or revocation, always at
// high severity: a security event plus an audit entry
func (l *Logger) LogPermissionChange(ctx context.Context, targetUserID uuid.UUID, description string, details map[string]interface{}) {
	var eventDetails *models.JSONMap
	if len(details) > 0 {
		d := models.JSONMap(details)
		eventDetails = &d
	}
	l.svc.LogSecurityEvent(ctx, &models.SecurityEvent{
		EventType: models.SecurityEventPermissionChange,
		UserID:    l.actor.UserID,
		IPAddress: l.actor.IPAddress,
		UserAgent: l.actor.UserAgent,
		Success:   true,
		Details:   eventDetails,
	})

	targetID := targetUserID.String()
	entityType := "user"
	l.svc.LogAudit(ctx, l.auditEntry(
		models.ActionPermissionChange,
		models.CategorySecurity,
		models.SeverityHigh,
		entityType, targetID, "",
		description,
		nil,
	))
}

// LogLogin records an authentication attempt. Failed attempts use the
// login_failed event type with the denial reason.
func (l *Logger) LogLogin(ctx context.Context, userID *uuid.UUID, email *string, success bool, reason *string) {
	eventType := models.SecurityEventLogin
	if !success {
		eventType = models.SecurityEventLoginFailed
	}
	l.svc.LogSecurityEvent(ctx, &models.SecurityEvent{
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IPAddress: l.actor.IPAddress,
		UserAgent: l.actor.UserAgent,
		Success:   success,
		Reason:    reason,
	})
}

// LogLogout records a session end
func (l *Logger) LogLogout(ctx context.Context) {
	l.svc.LogSecurityEvent(ctx, &models.SecurityEvent{
		EventType: models.SecurityEventLogout,
		UserID:    l.actor.UserID,
		IPAddress: l.actor.IPAddress,
		UserAgent: l.actor.UserAgent,
		Success:   true,
	})
}

// auditEntry assembles an AuditLog row carrying the logger's actor context.
// Empty entityID/entityName stay null rather than empty strings.
func (l *Logger) auditEntry(action, category, severity, entityType, entityID, entityName, description string, metadata *models.JSONMap) *models.AuditLog {
	entry := &models.AuditLog{
		UserID:      l.actor.UserID,
		IPAddress:   l.actor.IPAddress,
		UserAgent:   l.actor.UserAgent,
		SessionID:   l.actor.SessionID,
		Action:      action,
		Category:    category,
		Severity:    severity,
		Description: description,
		Metadata:    metadata,
	}
	if entityType != "" {
		entry.EntityType = &entityType
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if entityName != "" {
		entry.EntityName = &entityName
	}
	return entry
}
