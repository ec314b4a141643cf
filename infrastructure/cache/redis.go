package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"prism-connector/infrastructure/configuration"
)

// NewRedisClient connects to the configured Redis. Callers treat a nil
// client as "continue without Redis" (rate limiting falls back to local
// counters).
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	cfg := configuration.C.RedisClient
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisCounter counts events in fixed windows, shared across instances.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr bumps the counter for key's current window and returns the new count.
// The key expires with the window so stale windows clean themselves up.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
