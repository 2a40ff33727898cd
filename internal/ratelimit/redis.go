package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter whose counters live in Redis, so every
// instance of the service shares the same window for a key.
type Redis struct {
	client *redis.Client
	prefix string
	policy Policy
}

// NewRedisClient connects to redisURL and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}
	return client, nil
}

// NewRedis creates a limiter storing its counters under prefix.
func NewRedis(client *redis.Client, prefix string, policy Policy) *Redis {
	return &Redis{client: client, prefix: prefix, policy: policy}
}

// Allow increments the counter for key and reports whether it is within the limit.
// The expiry is set only when the counter is created, which keeps the window fixed.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if r.policy.Max <= 0 {
		return true, nil
	}

	redisKey := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit counter for %s: %w", key, err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.policy.Window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry for %s: %w", key, err)
		}
		return true, nil
	}

	if count > int64(r.policy.Max) {
		// A counter left without expiry would block the key forever.
		ttl, err := r.client.TTL(ctx, redisKey).Result()
		if err == nil && ttl < 0 {
			r.client.Expire(ctx, redisKey, r.policy.Window)
		}
		return false, nil
	}

	return true, nil
}
