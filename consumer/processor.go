package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/models"
)

// SecurityEventProcessor turns a stream message into a security_events row.
// Parse and validation errors are returned to the consumer so the message is
// retried and eventually dead-lettered instead of silently dropped.
type SecurityEventProcessor struct {
	auditService *audit.Service
}

// NewSecurityEventProcessor creates a new processor.
func NewSecurityEventProcessor(auditService *audit.Service) *SecurityEventProcessor {
	return &SecurityEventProcessor{auditService: auditService}
}

// ProcessSecurityEvent parses the stream message and saves it to the database.
// Expected fields: event_type and success are required; user_id, email,
// ip_address, user_agent, reason, details, and occurred_at are optional.
func (p *SecurityEventProcessor) ProcessSecurityEvent(ctx context.Context, values map[string]interface{}) error {
	eventType := stringField(values, "event_type")
	if eventType == "" {
		return fmt.Errorf("missing required field: event_type")
	}

	rawSuccess := stringField(values, "success")
	if rawSuccess == "" {
		return fmt.Errorf("missing required field: success")
	}
	success, err := strconv.ParseBool(rawSuccess)
	if err != nil {
		return fmt.Errorf("invalid success value %q: %w", rawSuccess, err)
	}

	event := &models.SecurityEvent{
		EventType: eventType,
		Success:   success,
	}

	if raw := stringField(values, "user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid user_id %q: %w", raw, err)
		}
		event.UserID = &userID
	}
	if v := stringField(values, "email"); v != "" {
		event.Email = &v
	}
	if v := stringField(values, "ip_address"); v != "" {
		event.IPAddress = &v
	}
	if v := stringField(values, "user_agent"); v != "" {
		event.UserAgent = &v
	}
	if v := stringField(values, "reason"); v != "" {
		event.Reason = &v
	}
	if raw := stringField(values, "details"); raw != "" {
		var details models.JSONMap
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			return fmt.Errorf("invalid details payload: %w", err)
		}
		event.Details = &details
	}
	if raw := stringField(values, "occurred_at"); raw != "" {
		occurredAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid occurred_at %q, expected RFC3339: %w", raw, err)
		}
		event.Timestamp = occurredAt.UTC()
	}

	if err := p.auditService.SaveSecurityEvent(ctx, event); err != nil {
		return err
	}

	slog.Info("Saved security event from stream", "eventType", eventType, "success", success)
	return nil
}

// stringField reads one stream value as a string. XADD values arrive back as
// strings, but the client API types them as interface{}.
func stringField(values map[string]interface{}, key string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
