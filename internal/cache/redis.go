// Package cache provides a Redis-backed cache for presigned attachment URLs
// and per-room suggestion sets. All operations degrade to cache misses when
// Redis is unavailable; callers never depend on a hit.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"doubtabase/internal/domain/models"
)

const (
	signedURLPrefix   = "signed:"
	suggestionsPrefix = "suggest:"
)

// Cache wraps a Redis client. A nil *Cache is valid and behaves as an always-
// miss cache, which is how deployments without REDIS_URL run.
type Cache struct {
	client *redis.Client
}

// New connects to the given Redis URL.
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GetSignedURL returns a cached presigned URL for a storage path, or "".
func (c *Cache) GetSignedURL(ctx context.Context, storagePath string) string {
	if c == nil || c.client == nil {
		return ""
	}
	url, err := c.client.Get(ctx, signedURLPrefix+storagePath).Result()
	if err != nil {
		return ""
	}
	return url
}

// SetSignedURL caches a presigned URL. The TTL must be shorter than the URL's
// own expiry so a cached URL is always still usable.
func (c *Cache) SetSignedURL(ctx context.Context, storagePath, url string, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	c.client.Set(ctx, signedURLPrefix+storagePath, url, ttl)
}

// GetSuggestions returns the cached suggestion set for a room, or nil.
func (c *Cache) GetSuggestions(ctx context.Context, roomID string) *models.Suggestions {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, suggestionsPrefix+roomID).Bytes()
	if err != nil {
		return nil
	}

	var s models.Suggestions
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// SetSuggestions caches the suggestion set for a room.
func (c *Cache) SetSuggestions(ctx context.Context, roomID string, s *models.Suggestions, ttl time.Duration) {
	if c == nil || c.client == nil || s == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.client.Set(ctx, suggestionsPrefix+roomID, raw, ttl)
}

// InvalidateSuggestions drops the cached suggestion set for a room. Called
// after any write that changes the room's subjects or tags.
func (c *Cache) InvalidateSuggestions(ctx context.Context, roomID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, suggestionsPrefix+roomID)
}
