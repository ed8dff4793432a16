package cache

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/google/uuid"
)

type memoryEntry struct {
	feed    domain.Feed
	expires time.Time
}

// MemoryFeedCache keeps feeds in process memory. It backs local mode when no
// Redis is configured.
type MemoryFeedCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryFeedCache creates an in-memory feed cache. A non-positive ttl uses DefaultTTL.
func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryFeedCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached feed or domain.ErrFeedNotCached.
func (c *MemoryFeedCache) Get(_ context.Context, userID uuid.UUID, day string) (*domain.Feed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := feedKey(userID, day)
	entry, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrFeedNotCached
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, domain.ErrFeedNotCached
	}
	feed := entry.feed
	feed.Insights = append([]domain.Insight(nil), entry.feed.Insights...)
	return &feed, nil
}

// Set stores a copy of the feed.
func (c *MemoryFeedCache) Set(_ context.Context, feed *domain.Feed) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *feed
	stored.Insights = append([]domain.Insight(nil), feed.Insights...)
	c.entries[feedKey(feed.UserID, feed.Day)] = memoryEntry{feed: stored, expires: c.now().Add(c.ttl)}
	return nil
}

// Invalidate removes every cached feed for the user.
func (c *MemoryFeedCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.feed.UserID == userID {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len returns the number of stored feeds, expired ones included.
func (c *MemoryFeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
