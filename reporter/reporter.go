package reporter

import (
	"context"
	"log/slog"

	"github.com/mssp-stack/portal-backend/redis"
)

// SecurityEventReporter publishes security events to the portal's audit
// pipeline. Other services in the stack embed it to report logins, permission
// changes, and access denials; the portal's stream consumer persists them.
type SecurityEventReporter interface {
	// ReportSecurityEvent validates the event and publishes it best-effort.
	// Only validation failures are returned; transport failures are logged.
	ReportSecurityEvent(ctx context.Context, event Event) error
}

// NewSecurityEventReporter creates a reporter over the given Redis client.
// A nil client returns a no-op reporter, so callers work unchanged when the
// stream is not configured.
func NewSecurityEventReporter(client *redis.Client) SecurityEventReporter {
	if client == nil {
		slog.Info("Redis client not provided, security event reporting disabled")
		return &noOpReporter{}
	}
	return &streamReporter{client: client}
}

// noOpReporter drops every event.
type noOpReporter struct{}

func (r *noOpReporter) ReportSecurityEvent(ctx context.Context, event Event) error {
	return nil
}
