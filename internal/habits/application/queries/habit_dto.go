package queries

import (
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
)

// HabitDTO is a habit with its metrics as of one day.
type HabitDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Icon           string    `json:"icon,omitempty"`
	Color          string    `json:"color,omitempty"`
	Kind           string    `json:"kind"`
	Unit           string    `json:"unit,omitempty"`
	Progression    string    `json:"progression"`
	DailyGoal      *float64  `json:"daily_goal,omitempty"`
	EffectiveGoal  *float64  `json:"effective_goal,omitempty"`
	RestDays       []string  `json:"rest_days,omitempty"`
	IsArchived     bool      `json:"archived"`
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	CompletionRate float64   `json:"completion_rate"`
	TodayProgress  float64   `json:"today_progress"`
	CompletedToday bool      `json:"completed_today"`
	CompletedDays  int       `json:"completed_days"`
	CreatedAt      time.Time `json:"created_at"`
}

func toHabitDTO(h *domain.Habit, p services.Progress) HabitDTO {
	dto := HabitDTO{
		ID:             h.ID(),
		Name:           h.Name(),
		Icon:           h.Icon(),
		Color:          h.Color(),
		Kind:           string(h.Kind()),
		Unit:           h.Unit(),
		Progression:    string(h.Progression()),
		DailyGoal:      h.GoalSettings().DailyGoal,
		EffectiveGoal:  p.EffectiveGoal,
		IsArchived:     h.IsArchived(),
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		CompletionRate: p.CompletionRate,
		TodayProgress:  p.TodayProgress,
		CompletedToday: p.CompletedToday,
		CompletedDays:  p.CompletedDays,
		CreatedAt:      h.CreatedAt(),
	}
	for _, d := range h.RestDays().Days() {
		dto.RestDays = append(dto.RestDays, d.String())
	}
	return dto
}
