package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// ArchiveHabitCommand contains the data needed to archive a habit.
type ArchiveHabitCommand struct {
	HabitID uuid.UUID
	UserID  uuid.UUID
}

// ArchiveHabitHandler handles the ArchiveHabitCommand.
type ArchiveHabitHandler struct {
	deps Deps
}

// NewArchiveHabitHandler creates a new ArchiveHabitHandler.
func NewArchiveHabitHandler(deps Deps) *ArchiveHabitHandler {
	return &ArchiveHabitHandler{deps: deps.withDefaults()}
}

// Handle executes the ArchiveHabitCommand. Archiving twice is a no-op.
func (h *ArchiveHabitHandler) Handle(ctx context.Context, cmd ArchiveHabitCommand) error {
	var events []sharedDomain.DomainEvent
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		habit, err := loadOwned(txCtx, h.deps.Habits, cmd.HabitID, cmd.UserID)
		if err != nil {
			return err
		}
		if habit.IsArchived() {
			return nil
		}

		habit.Archive()
		if err := h.deps.Habits.Save(txCtx, habit); err != nil {
			return err
		}
		events = takeEvents(txCtx, habit, cmd.UserID)
		return nil
	})
	if err != nil {
		return err
	}

	if len(events) > 0 {
		h.deps.publish(ctx, events)
		h.deps.Metrics.Counter(observability.MetricHabitsArchived, 1)
		h.deps.Logger.InfoContext(ctx, "habit archived", "habit_id", cmd.HabitID)
	}
	return nil
}
