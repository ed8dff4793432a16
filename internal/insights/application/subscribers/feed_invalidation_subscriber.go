package subscribers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	habitDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// FeedInvalidationSubscriber drops cached insight feeds when a user's habits change.
type FeedInvalidationSubscriber struct {
	cache  domain.FeedCache
	logger *slog.Logger
}

// NewFeedInvalidationSubscriber creates a new subscriber.
func NewFeedInvalidationSubscriber(cache domain.FeedCache, logger *slog.Logger) *FeedInvalidationSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedInvalidationSubscriber{cache: cache, logger: logger}
}

// EventTypes returns the event types this subscriber handles.
func (s *FeedInvalidationSubscriber) EventTypes() []string {
	return []string{
		habitDomain.RoutingKeyHabitCreated,
		habitDomain.RoutingKeyHabitCompleted,
		habitDomain.RoutingKeyHabitGoalAdjusted,
		habitDomain.RoutingKeyHabitArchived,
	}
}

type habitEventPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// Handle processes an event.
func (s *FeedInvalidationSubscriber) Handle(ctx context.Context, event *eventbus.Envelope) error {
	var payload habitEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Debug("failed to unmarshal habit payload, using event metadata",
			"routing_key", event.RoutingKey,
			"error", err,
		)
	}
	userID := payload.UserID
	if userID == uuid.Nil {
		userID = event.Metadata.UserID
	}
	if userID == uuid.Nil {
		return fmt.Errorf("event %s has no user id", event.EventID)
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate insight feed: %w", err)
	}
	s.logger.Debug("insight feed invalidated",
		"routing_key", event.RoutingKey,
		"user_id", userID,
	)
	return nil
}
