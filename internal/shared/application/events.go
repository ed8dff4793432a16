package application

import (
	"context"

	"github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// EventPublisher delivers domain events once their aggregate has been persisted.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []domain.DomainEvent) error
}

// NewEventMetadata builds event metadata for userID, carrying the correlation id from ctx.
func NewEventMetadata(ctx context.Context, userID uuid.UUID) domain.EventMetadata {
	return domain.EventMetadata{
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		UserID:        userID,
	}
}
