package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// CreateHabitCommand contains the data needed to create a habit.
// A nil DailyGoal creates a binary habit.
type CreateHabitCommand struct {
	UserID       uuid.UUID
	Name         string
	Icon         string
	Color        string
	Kind         string
	DailyGoal    *float64
	Unit         string
	Progression  string
	InitialGoal  *float64
	Increment    *float64
	IntervalDays *int
	RestDays     []time.Weekday
	// CreatedAt defaults to now. Its location fixes the habit's calendar.
	CreatedAt time.Time
}

// CreateHabitResult contains the result of creating a habit.
type CreateHabitResult struct {
	HabitID uuid.UUID
}

// CreateHabitHandler handles the CreateHabitCommand.
type CreateHabitHandler struct {
	deps Deps
}

// NewCreateHabitHandler creates a new CreateHabitHandler.
func NewCreateHabitHandler(deps Deps) *CreateHabitHandler {
	return &CreateHabitHandler{deps: deps.withDefaults()}
}

// Handle executes the CreateHabitCommand.
func (h *CreateHabitHandler) Handle(ctx context.Context, cmd CreateHabitCommand) (*CreateHabitResult, error) {
	habit, err := buildHabit(cmd)
	if err != nil {
		return nil, err
	}

	var events []sharedDomain.DomainEvent
	err = sharedApplication.WithUnitOfWork(ctx, h.deps.UoW, func(txCtx context.Context) error {
		if err := h.deps.Habits.Save(txCtx, habit); err != nil {
			return err
		}
		events = takeEvents(txCtx, habit, cmd.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.deps.publish(ctx, events)
	h.deps.Metrics.Counter(observability.MetricHabitsCreated, 1, observability.T("kind", string(habit.Kind())))
	h.deps.Logger.InfoContext(ctx, "habit created",
		"habit_id", habit.ID(),
		"kind", habit.Kind(),
		"progression", habit.Progression(),
	)

	return &CreateHabitResult{HabitID: habit.ID()}, nil
}

func buildHabit(cmd CreateHabitCommand) (*domain.Habit, error) {
	kind := domain.Kind(cmd.Kind)
	if cmd.Kind == "" {
		kind = domain.KindManual
	}
	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	habit, err := domain.NewHabitAt(cmd.UserID, cmd.Name, kind, createdAt)
	if err != nil {
		return nil, err
	}
	habit.SetAppearance(cmd.Icon, cmd.Color)
	habit.SetRestDays(domain.NewWeekdaySet(cmd.RestDays...))

	progression := domain.GoalProgression(cmd.Progression)
	if cmd.Progression == "" {
		progression = domain.ProgressionFixed
	}
	settings := domain.GoalSettings{
		DailyGoal:    cmd.DailyGoal,
		Unit:         cmd.Unit,
		Progression:  progression,
		InitialGoal:  cmd.InitialGoal,
		Increment:    cmd.Increment,
		IntervalDays: cmd.IntervalDays,
	}
	// Ramp-up and adaptive goals start from the daily goal unless told otherwise.
	if settings.InitialGoal == nil && settings.DailyGoal != nil && progression != domain.ProgressionFixed {
		initial := *settings.DailyGoal
		settings.InitialGoal = &initial
	}
	if err := habit.SetGoal(settings); err != nil {
		return nil, err
	}

	// The created event should describe the fully configured habit.
	habit.ClearDomainEvents()
	habit.AddDomainEvent(domain.NewHabitCreated(habit))
	return habit, nil
}
