package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// LogCompletionCommand records activity for one calendar day.
// Logging the same day again replaces the earlier entry.
type LogCompletionCommand struct {
	HabitID uuid.UUID
	UserID  uuid.UUID
	// Date defaults to now; only its calendar day matters.
	Date       time.Time
	Value      *float64
	AutoSynced bool
}

// LogCompletionResult contains the result of logging a completion.
type LogCompletionResult struct {
	CompletionID  uuid.UUID
	Day           string
	Completed     bool
	CurrentStreak int
	Progress      float64
}

// LogCompletionHandler handles the LogCompletionCommand.
type LogCompletionHandler struct {
	deps       Deps
	calculator *services.ProgressCalculator
}

// NewLogCompletionHandler creates a new LogCompletionHandler.
func NewLogCompletionHandler(deps Deps, calculator *services.ProgressCalculator) *LogCompletionHandler {
	if calculator == nil {
		calculator = services.NewProgressCalculator(nil)
	}
	return &LogCompletionHandler{deps: deps.withDefaults(), calculator: calculator}
}

// Handle executes the LogCompletionCommand.
func (h *LogCompletionHandler) Handle(ctx context.Context, cmd LogCompletionCommand) (*LogCompletionResult, error) {
	date := cmd.Date
	if date.IsZero() {
		date = time.Now()
	}

	var (
		result *LogCompletionResult
		habit  *domain.Habit
		events []sharedDomain.DomainEvent
	)
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		var err error
		habit, err = loadOwned(txCtx, h.deps.Habits, cmd.HabitID, cmd.UserID)
		if err != nil {
			return err
		}

		completion, err := habit.LogCompletion(date, cmd.Value, cmd.AutoSynced)
		if err != nil {
			return err
		}

		summary, err := h.calculator.Summary(habit, date)
		if err != nil {
			return err
		}

		if err := h.deps.Habits.Save(txCtx, habit); err != nil {
			return err
		}
		events = takeEvents(txCtx, habit, cmd.UserID)

		result = &LogCompletionResult{
			CompletionID:  completion.ID(),
			Day:           completion.Day().String(),
			Completed:     summary.CompletedToday,
			CurrentStreak: summary.CurrentStreak,
			Progress:      summary.TodayProgress,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.deps.publish(ctx, events)
	h.deps.Metrics.Counter(observability.MetricHabitsCompleted, 1, observability.T("kind", string(habit.Kind())))
	h.deps.Logger.InfoContext(ctx, "completion logged",
		"habit_id", cmd.HabitID,
		"day", result.Day,
		"completed", result.Completed,
		"streak", result.CurrentStreak,
	)

	return result, nil
}
