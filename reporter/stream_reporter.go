package reporter

import (
	"context"
	"log/slog"
	"time"

	"github.com/mssp-stack/portal-backend/consumer"
	"github.com/mssp-stack/portal-backend/redis"
)

// streamReporter publishes events onto the security event stream.
type streamReporter struct {
	client *redis.Client
}

// ReportSecurityEvent publishes the event asynchronously (fire-and-forget) so
// a slow or unavailable stream never blocks the caller's business operation.
func (r *streamReporter) ReportSecurityEvent(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	values, err := event.ToStreamValues()
	if err != nil {
		return err
	}

	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		msgID, err := r.client.PublishEvent(publishCtx, consumer.StreamName, values)
		if err != nil {
			slog.Error("Failed to publish security event", "eventType", event.EventType, "error", err)
			return
		}
		slog.Debug("Security event published", "eventType", event.EventType, "messageId", msgID)
	}()

	return nil
}
