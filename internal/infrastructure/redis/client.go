package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// syncQueueKey holds failed user-sync payloads awaiting retry
const syncQueueKey = "flowhub:sync:deadletter"

// Client wraps the Redis client with our custom methods
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client from a redis:// URL
func NewClient(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// EnqueueSyncPayload pushes a failed sync payload onto the dead-letter queue
func (c *Client) EnqueueSyncPayload(ctx context.Context, payload []byte) error {
	return c.rdb.LPush(ctx, syncQueueKey, payload).Err()
}

// DequeueSyncPayload pops the oldest payload from the dead-letter queue.
// Returns redis.Nil-wrapped error when the queue is empty.
func (c *Client) DequeueSyncPayload(ctx context.Context) ([]byte, error) {
	res, err := c.rdb.RPop(ctx, syncQueueKey).Bytes()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SyncQueueDepth returns the number of payloads waiting for retry
func (c *Client) SyncQueueDepth(ctx context.Context) (int64, error) {
	return c.rdb.LLen(ctx, syncQueueKey).Result()
}

// QueueEmpty reports whether err means the queue had no payload
func QueueEmpty(err error) bool {
	return err == redis.Nil
}

// Set stores a value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
