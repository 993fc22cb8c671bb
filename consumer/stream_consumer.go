package consumer

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mssp-stack/portal-backend/monitoring"
	"github.com/mssp-stack/portal-backend/redis"
)

const (
	// StreamName is the Redis stream other MSSP services publish security
	// events to.
	StreamName = "security-events"
	// GroupName is the consumer group all portal-backend instances share.
	GroupName = "audit-writers"

	dlqStreamName  = StreamName + "_dlq"
	maxDeliveries  = 5
	blockTimeout   = 5 * time.Second
	pendingTimeout = 1 * time.Minute // idle time before a message counts as stuck
)

// Processor handles one stream message. A returned error leaves the message
// pending for retry.
type Processor interface {
	ProcessSecurityEvent(ctx context.Context, values map[string]interface{}) error
}

// StreamConsumer reads security events from the Redis stream and hands them
// to the processor. Messages that keep failing move to a dead letter stream
// after maxDeliveries attempts.
type StreamConsumer struct {
	client       *redis.Client
	processor    Processor
	consumerName string
}

// NewStreamConsumer creates a new consumer and ensures the stream group exists.
func NewStreamConsumer(client *redis.Client, processor Processor) (*StreamConsumer, error) {
	if err := client.EnsureStreamGroupExists(context.Background(), StreamName, GroupName); err != nil {
		return nil, err
	}

	name := consumerInstanceName()
	slog.Info("Consumer group ensured", "stream", StreamName, "group", GroupName, "consumer", name)

	return &StreamConsumer{
		client:       client,
		processor:    processor,
		consumerName: name,
	}, nil
}

// consumerInstanceName keeps per-instance pending lists distinct when several
// replicas share the group.
func consumerInstanceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "audit-writer-" + uuid.NewString()[:8]
}

// Start consumes events in a blocking loop until the context is cancelled.
// Run it in a goroutine from main.
func (c *StreamConsumer) Start(ctx context.Context) {
	slog.Info("Starting security event stream consumer", "stream", StreamName)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stream consumer shutting down")
			return
		default:
			// Reclaim stuck messages before reading new ones.
			c.claimPendingMessages(ctx)
			c.readNewMessages(ctx)
		}
	}
}

func (c *StreamConsumer) readNewMessages(ctx context.Context) {
	messages, err := c.client.ReadFromStreamGroup(ctx, StreamName, GroupName, c.consumerName, blockTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Failed to read from stream", "stream", StreamName, "error", err)
		time.Sleep(1 * time.Second) // avoid spamming on repeated errors
		return
	}

	for _, msg := range messages {
		c.processMessage(ctx, msg, 1)
	}
}

// claimPendingMessages takes over messages delivered to this consumer that
// were never acknowledged, carrying their delivery count forward.
func (c *StreamConsumer) claimPendingMessages(ctx context.Context) {
	pending, err := c.client.GetPendingMessages(ctx, StreamName, GroupName, c.consumerName)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Failed to check pending messages", "stream", StreamName, "error", err)
		return
	}

	for _, p := range pending {
		if p.Idle < pendingTimeout {
			continue
		}

		slog.Info("Re-claiming idle message", "messageId", p.ID, "deliveries", p.RetryCount)
		claimed, err := c.client.ClaimMessages(ctx, StreamName, GroupName, c.consumerName, pendingTimeout, []string{p.ID})
		if err != nil {
			slog.Error("Failed to claim idle message", "messageId", p.ID, "error", err)
			continue
		}

		for _, msg := range claimed {
			c.processMessage(ctx, msg, p.RetryCount)
		}
	}
}

// processMessage runs the processor and acknowledges on success. On failure
// the message stays pending for the claim path until it exhausts its
// deliveries, then moves to the dead letter stream.
func (c *StreamConsumer) processMessage(ctx context.Context, msg goredis.XMessage, deliveries int64) {
	err := c.processor.ProcessSecurityEvent(ctx, msg.Values)
	if err == nil {
		if ackErr := c.client.AckMessage(ctx, StreamName, GroupName, msg.ID); ackErr != nil {
			slog.Error("Failed to ack message", "messageId", msg.ID, "error", ackErr)
		}
		monitoring.RecordStreamEvent(ctx, StreamName, "processed")
		return
	}

	slog.Warn("Failed to process stream message", "messageId", msg.ID, "deliveries", deliveries, "error", err)

	if deliveries >= maxDeliveries {
		c.deadLetter(ctx, msg, err)
		return
	}

	monitoring.RecordStreamEvent(ctx, StreamName, "retried")
}

func (c *StreamConsumer) deadLetter(ctx context.Context, msg goredis.XMessage, procErr error) {
	slog.Error("Moving message to dead letter stream", "messageId", msg.ID, "dlq", dlqStreamName, "error", procErr)

	dlqData := make(map[string]interface{}, len(msg.Values)+3)
	for k, v := range msg.Values {
		dlqData[k] = v
	}
	dlqData["_error"] = procErr.Error()
	dlqData["_original_id"] = msg.ID
	dlqData["_failed_at"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := c.client.PublishEvent(ctx, dlqStreamName, dlqData); err != nil {
		// Without the DLQ copy the original must stay pending for another try.
		slog.Error("Failed to publish to dead letter stream", "messageId", msg.ID, "error", err)
		return
	}

	if err := c.client.AckMessage(ctx, StreamName, GroupName, msg.ID); err != nil {
		slog.Error("Failed to ack dead lettered message", "messageId", msg.ID, "error", err)
	}
	monitoring.RecordStreamEvent(ctx, StreamName, "dead_lettered")
}
