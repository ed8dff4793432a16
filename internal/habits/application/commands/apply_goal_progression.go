package commands

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// ApplyGoalProgressionCommand moves goals forward for one habit, or for all of
// the user's active habits when HabitID is nil.
type ApplyGoalProgressionCommand struct {
	UserID  uuid.UUID
	HabitID *uuid.UUID
	// AsOf defaults to now.
	AsOf time.Time
}

// ApplyGoalProgressionResult lists the outcome per habit. Failed holds
// habits whose settings are invalid; the others are still processed.
type ApplyGoalProgressionResult struct {
	Adjustments []services.Adjustment
	Failed      map[uuid.UUID]error
}

// Changed returns the adjustments that moved a goal.
func (r *ApplyGoalProgressionResult) Changed() []services.Adjustment {
	var changed []services.Adjustment
	for _, adj := range r.Adjustments {
		if adj.Changed {
			changed = append(changed, adj)
		}
	}
	return changed
}

// ApplyGoalProgressionHandler handles the ApplyGoalProgressionCommand.
type ApplyGoalProgressionHandler struct {
	deps  Deps
	goals *services.GoalEngine
}

// NewApplyGoalProgressionHandler creates a new ApplyGoalProgressionHandler.
func NewApplyGoalProgressionHandler(deps Deps, goals *services.GoalEngine) *ApplyGoalProgressionHandler {
	if goals == nil {
		goals = services.NewGoalEngine(services.DefaultAdaptivePolicy())
	}
	return &ApplyGoalProgressionHandler{deps: deps.withDefaults(), goals: goals}
}

// Handle executes the ApplyGoalProgressionCommand. Each habit is saved in its
// own unit of work.
func (h *ApplyGoalProgressionHandler) Handle(ctx context.Context, cmd ApplyGoalProgressionCommand) (*ApplyGoalProgressionResult, error) {
	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	ids, err := h.targets(ctx, cmd)
	if err != nil {
		return nil, err
	}

	result := &ApplyGoalProgressionResult{Failed: make(map[uuid.UUID]error)}
	for _, id := range ids {
		adj, err := h.applyOne(ctx, id, cmd.UserID, asOf)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidConfiguration) {
				h.deps.Logger.WarnContext(ctx, "skipping habit with invalid goal settings", "habit_id", id, "error", err)
				result.Failed[id] = err
				continue
			}
			return nil, err
		}
		result.Adjustments = append(result.Adjustments, adj)
	}
	return result, nil
}

func (h *ApplyGoalProgressionHandler) targets(ctx context.Context, cmd ApplyGoalProgressionCommand) ([]uuid.UUID, error) {
	if cmd.HabitID != nil {
		return []uuid.UUID{*cmd.HabitID}, nil
	}
	habits, err := h.deps.Habits.FindActiveByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(habits))
	for _, habit := range habits {
		if habit.IsGoalBased() && habit.Progression() != domain.ProgressionFixed {
			ids = append(ids, habit.ID())
		}
	}
	return ids, nil
}

func (h *ApplyGoalProgressionHandler) applyOne(ctx context.Context, habitID, userID uuid.UUID, asOf time.Time) (services.Adjustment, error) {
	var (
		adj    services.Adjustment
		events []sharedDomain.DomainEvent
	)
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		habit, err := loadOwned(txCtx, h.deps.Habits, habitID, userID)
		if err != nil {
			return err
		}

		adj, err = h.goals.Apply(habit, asOf)
		if err != nil {
			return err
		}
		if !adj.Changed {
			return nil
		}

		if err := h.deps.Habits.Save(txCtx, habit); err != nil {
			return err
		}
		events = takeEvents(txCtx, habit, userID)
		return nil
	})
	if err != nil {
		return services.Adjustment{}, err
	}

	if adj.Changed {
		h.deps.publish(ctx, events)
		h.deps.Metrics.Counter(observability.MetricGoalsAdjusted, 1, observability.T("progression", string(adj.Progression)))
		h.deps.Logger.InfoContext(ctx, "goal adjusted",
			"habit_id", habitID,
			"previous_goal", adj.PreviousGoal,
			"new_goal", adj.NewGoal,
			"reason", adj.Reason,
		)
	}
	return adj, nil
}
