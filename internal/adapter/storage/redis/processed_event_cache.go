package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ProcessedEventCache implements ports.ProcessedEventCache using Redis.
// A key present in Redis means the transaction already left PENDING.
type ProcessedEventCache struct {
	client *goredis.Client
	prefix string
}

// NewProcessedEventCache creates a new Redis-backed processed-event cache.
func NewProcessedEventCache(client *goredis.Client) *ProcessedEventCache {
	return &ProcessedEventCache{
		client: client,
		prefix: "gateway:processed:",
	}
}

// IsProcessed reports whether key was marked and has not expired.
func (c *ProcessedEventCache) IsProcessed(ctx context.Context, key string) (bool, error) {
	err := c.client.Get(ctx, c.prefix+key).Err()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis processed get: %w", err)
	}
	return true, nil
}

// MarkProcessed remembers key for ttl.
func (c *ProcessedEventCache) MarkProcessed(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis processed set: %w", err)
	}
	return nil
}
