package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrFeedNotCached is returned by a FeedCache when no feed is stored for the key.
var ErrFeedNotCached = errors.New("insight feed not cached")

// Feed is the ordered list of insights generated for a user on one day.
type Feed struct {
	UserID      uuid.UUID `json:"user_id"`
	Day         string    `json:"day"`
	GeneratedAt time.Time `json:"generated_at"`
	Insights    []Insight `json:"insights"`
}

// FeedCache stores generated feeds until a user's habits change.
type FeedCache interface {
	Get(ctx context.Context, userID uuid.UUID, day string) (*Feed, error)
	Set(ctx context.Context, feed *Feed) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
