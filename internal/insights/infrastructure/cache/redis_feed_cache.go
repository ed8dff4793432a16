package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a feed survives without an invalidation.
const DefaultTTL = 15 * time.Minute

// keyPrefix namespaces feeds: insights:feed:{user_id}:{yyyy-mm-dd}
const keyPrefix = "insights:feed:"

func feedKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, userID, day)
}

func userPattern(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s:*", keyPrefix, userID)
}

// RedisFeedCache stores feeds as JSON strings in Redis.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFeedCache creates a Redis-backed feed cache. A non-positive ttl uses DefaultTTL.
func NewRedisFeedCache(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

// Get returns the cached feed or domain.ErrFeedNotCached.
func (c *RedisFeedCache) Get(ctx context.Context, userID uuid.UUID, day string) (*domain.Feed, error) {
	data, err := c.client.Get(ctx, feedKey(userID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrFeedNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("read insight feed: %w", err)
	}

	feed := &domain.Feed{}
	if err := json.Unmarshal(data, feed); err != nil {
		return nil, fmt.Errorf("decode insight feed: %w", err)
	}
	return feed, nil
}

// Set stores the feed under its user and day.
func (c *RedisFeedCache) Set(ctx context.Context, feed *domain.Feed) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("encode insight feed: %w", err)
	}
	if err := c.client.Set(ctx, feedKey(feed.UserID, feed.Day), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write insight feed: %w", err)
	}
	return nil
}

// Invalidate removes every cached feed for the user.
func (c *RedisFeedCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, userPattern(userID), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan insight feeds: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete insight feeds: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisFeedCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
