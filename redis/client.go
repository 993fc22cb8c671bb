package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds all configuration for the Redis client
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	TLS      bool
}

// LoadConfigFromEnv builds a Config from REDIS_* environment variables.
// Returns nil when REDIS_ADDR is unset, meaning streaming is disabled.
func LoadConfigFromEnv() *Config {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}

	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			db = parsed
		}
	}

	return &Config{
		Addr:     addr,
		Username: os.Getenv("REDIS_USERNAME"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TLS:      os.Getenv("REDIS_TLS") == "true",
	}
}

// Client wraps the go-redis client with the stream operations the security
// event pipeline uses.
type Client struct {
	client *redis.Client
	config *Config
}

// NewClient creates and connects a new Client.
func NewClient(cfg *Config) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{}
	}

	rdb := redis.NewClient(opts)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		client: rdb,
		config: cfg,
	}, nil
}

// Close gracefully closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// PublishEvent adds an event to a stream using XADD. Passing '*' as the ID
// tells Redis to auto-generate a timestamp-based one.
func (c *Client) PublishEvent(ctx context.Context, streamName string, data map[string]interface{}) (string, error) {
	msgID, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: data,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to XADD to stream %s: %w", streamName, err)
	}
	return msgID, nil
}

// EnsureStreamGroupExists creates the consumer group (idempotent).
// Call this on consumer startup.
func (c *Client) EnsureStreamGroupExists(ctx context.Context, streamName, groupName string) error {
	// XGROUP CREATE streamName groupName $ MKSTREAM
	// '$' reads only new messages; MKSTREAM creates the stream if missing.
	err := c.client.XGroupCreateMkStream(ctx, streamName, groupName, "$").Err()
	if err != nil {
		// "BUSYGROUP" means the group already exists.
		if !isBusyGroupError(err) {
			return fmt.Errorf("failed to create consumer group: %w", err)
		}
	}
	return nil
}

// ReadFromStreamGroup blocks and reads new messages from the stream.
func (c *Client) ReadFromStreamGroup(ctx context.Context, streamName, groupName, consumerName string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{streamName, ">"},
		Count:    1, // Read one at a time for safer processing
		Block:    block,
	}).Result()

	if err != nil {
		// redis.Nil indicates a timeout, which is normal
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XReadGroup: %w", err)
	}

	// Only one stream is requested, so the first element is ours
	if len(streams) > 0 {
		return streams[0].Messages, nil
	}

	return nil, nil
}

// GetPendingMessages checks for messages delivered to a consumer but not yet
// acknowledged.
func (c *Client) GetPendingMessages(ctx context.Context, streamName, groupName, consumerName string) ([]redis.XPendingExt, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   streamName,
		Group:    groupName,
		Start:    "-",
		End:      "+",
		Count:    10,
		Consumer: consumerName,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to check XPending: %w", err)
	}
	return pending, nil
}

// ClaimMessages lets a consumer take over pending messages that have been
// idle for too long.
func (c *Client) ClaimMessages(ctx context.Context, streamName, groupName, consumerName string, minIdle time.Duration, msgIDs []string) ([]redis.XMessage, error) {
	claimedMsgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   streamName,
		Group:    groupName,
		Consumer: consumerName,
		MinIdle:  minIdle,
		Messages: msgIDs,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to XClaim messages: %w", err)
	}
	return claimedMsgs, nil
}

// AckMessage acknowledges a message as successfully processed.
func (c *Client) AckMessage(ctx context.Context, streamName, groupName, msgID string) error {
	if err := c.client.XAck(ctx, streamName, groupName, msgID).Err(); err != nil {
		return fmt.Errorf("failed to XAck message %s: %w", msgID, err)
	}
	return nil
}

// isBusyGroupError checks whether the error is Redis' BUSYGROUP response
func isBusyGroupError(err error) bool {
	if err == nil {
		return false
	}

	if redisErr, ok := err.(redis.Error); ok {
		return strings.Contains(strings.ToUpper(redisErr.Error()), "BUSYGROUP")
	}

	return strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}
