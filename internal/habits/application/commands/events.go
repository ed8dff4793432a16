package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// Deps are the collaborators shared by every habit command handler.
type Deps struct {
	Habits    domain.Repository
	UoW       sharedApplication.UnitOfWork
	Publisher sharedApplication.EventPublisher
	Logger    *slog.Logger
	Metrics   observability.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NoopMetrics{}
	}
	return d
}

// takeEvents stamps and detaches the habit's pending events.
func takeEvents(ctx context.Context, habit *domain.Habit, userID uuid.UUID) []sharedDomain.DomainEvent {
	events := habit.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedDomain.ApplyMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))
	habit.ClearDomainEvents()
	return events
}

// publish runs after commit. The change is already durable, so failures are only logged.
func (d Deps) publish(ctx context.Context, events []sharedDomain.DomainEvent) {
	if d.Publisher == nil || len(events) == 0 {
		return
	}
	if err := d.Publisher.PublishEvents(ctx, events); err != nil {
		d.Logger.WarnContext(ctx, "domain events not published", "count", len(events), "error", err)
		return
	}
	d.Metrics.Counter(observability.MetricEventsPublished, int64(len(events)))
}

// loadOwned finds a habit and checks that userID owns it.
func loadOwned(ctx context.Context, repo domain.Repository, habitID, userID uuid.UUID) (*domain.Habit, error) {
	habit, err := repo.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, domain.ErrHabitNotFound
	}
	if habit.UserID() != userID {
		return nil, domain.ErrNotOwner
	}
	return habit, nil
}
