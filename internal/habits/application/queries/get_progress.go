package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
)

// DefaultRecentDays is the length of the day-by-day history in a progress report.
const DefaultRecentDays = 7

// GetProgressQuery asks for one habit's progress report.
type GetProgressQuery struct {
	HabitID uuid.UUID
	UserID  uuid.UUID
	// AsOf defaults to now.
	AsOf time.Time
	// RecentDays defaults to DefaultRecentDays.
	RecentDays int
}

// DayDTO is one day of a habit's recent history.
type DayDTO struct {
	Date      string   `json:"date"`
	Value     *float64 `json:"value,omitempty"`
	Goal      *float64 `json:"goal,omitempty"`
	Progress  float64  `json:"progress"`
	Completed bool     `json:"completed"`
	RestDay   bool     `json:"rest_day"`
}

// GoalDTO is the display view of the goal progression.
type GoalDTO struct {
	Progression     string   `json:"progression"`
	CurrentGoal     *float64 `json:"current_goal,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	DaysUntilChange *int     `json:"days_until_change,omitempty"`
	Message         string   `json:"message"`
}

// ProgressDTO is a habit's progress report.
type ProgressDTO struct {
	Habit  HabitDTO `json:"habit"`
	Goal   GoalDTO  `json:"goal"`
	Recent []DayDTO `json:"recent"`
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	habitRepo  domain.Repository
	calculator *services.ProgressCalculator
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(habitRepo domain.Repository, calculator *services.ProgressCalculator) *GetProgressHandler {
	if calculator == nil {
		calculator = services.NewProgressCalculator(nil)
	}
	return &GetProgressHandler{habitRepo: habitRepo, calculator: calculator}
}

// Handle executes the GetProgressQuery.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*ProgressDTO, error) {
	asOf := query.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	days := query.RecentDays
	if days <= 0 {
		days = DefaultRecentDays
	}

	habit, err := h.habitRepo.FindByID(ctx, query.HabitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, domain.ErrHabitNotFound
	}
	if habit.UserID() != query.UserID {
		return nil, domain.ErrNotOwner
	}

	progress, err := h.calculator.Summary(habit, asOf)
	if err != nil {
		return nil, err
	}
	info, err := h.calculator.Goals().ProgressionInfo(habit, asOf)
	if err != nil {
		return nil, err
	}
	history, err := h.calculator.History(habit)
	if err != nil {
		return nil, err
	}

	dto := &ProgressDTO{
		Habit: toHabitDTO(habit, progress),
		Goal: GoalDTO{
			Progression:     string(info.Progression),
			CurrentGoal:     info.CurrentGoal,
			Unit:            info.Unit,
			DaysUntilChange: info.DaysUntilChange,
			Message:         info.Message,
		},
	}

	today := domain.DayOf(asOf)
	first := today.AddDays(1 - days)
	if created := habit.CreatedDay(); first < created {
		first = created
	}
	for day := first; day <= today; day++ {
		entry := DayDTO{
			Date:      day.String(),
			Progress:  history.ProgressAt(day),
			Completed: history.IsCompleted(day),
			RestDay:   habit.IsRestDay(day),
		}
		if c := habit.CompletionOn(day); c != nil {
			entry.Value = c.ValuePtr()
		}
		if habit.IsGoalBased() {
			goal, err := h.calculator.Goals().EffectiveGoal(habit, day.In(asOf.Location()))
			if err != nil {
				return nil, err
			}
			entry.Goal = &goal
		}
		dto.Recent = append(dto.Recent, entry)
	}

	return dto, nil
}
