package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"calsync/internal/config"
	"calsync/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the rate limiter and the per-user event-list cache.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RateLimitKey is the shared counter key for a user's calendar quota.
func RateLimitKey(userID string) string {
	return "ratelimit:calendar:" + userID
}

// EventsCacheKey holds the user's cached event list.
func EventsCacheKey(userID string) string {
	return "calendar:events:" + userID
}

// Allow implements a fixed-window counter: INCR, set expiry on the first hit,
// allowed while the post-increment count stays within maxRequests. Bursts at
// window boundaries are accepted as a known trade-off.
func (r *RedisStore) Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(maxRequests), nil
}

func (r *RedisStore) CachedEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.Get(ctx, EventsCacheKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached events: %w", err)
	}

	var events []models.CalendarEvent
	if err := json.Unmarshal([]byte(val), &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached events: %w", err)
	}

	return events, nil
}

func (r *RedisStore) SetCachedEvents(ctx context.Context, userID string, events []models.CalendarEvent, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	if err := r.client.Set(ctx, EventsCacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached events: %w", err)
	}

	return nil
}

// InvalidateEvents removes the user's cached event list. Deleting an absent
// key is a no-op, so invalidation is idempotent.
func (r *RedisStore) InvalidateEvents(ctx context.Context, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.Del(ctx, EventsCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate events cache: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
