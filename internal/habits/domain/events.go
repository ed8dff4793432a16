package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Habit"

// Routing keys for habit events.
const (
	RoutingKeyHabitCreated      = "habits.habit.created"
	RoutingKeyHabitCompleted    = "habits.habit.completed"
	RoutingKeyHabitGoalAdjusted = "habits.habit.goal_adjusted"
	RoutingKeyHabitArchived     = "habits.habit.archived"
)

// HabitCreated is emitted when a habit is created.
type HabitCreated struct {
	sharedDomain.BaseEvent
	HabitID     uuid.UUID `json:"habit_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Progression string    `json:"progression"`
}

// NewHabitCreated creates a HabitCreated event.
func NewHabitCreated(h *Habit) *HabitCreated {
	return &HabitCreated{
		BaseEvent:   sharedDomain.NewBaseEvent(h.ID(), aggregateType, RoutingKeyHabitCreated),
		HabitID:     h.ID(),
		UserID:      h.UserID(),
		Name:        h.Name(),
		Kind:        string(h.Kind()),
		Progression: string(h.Progression()),
	}
}

// HabitCompleted is emitted when activity is logged for a day.
type HabitCompleted struct {
	sharedDomain.BaseEvent
	HabitID      uuid.UUID `json:"habit_id"`
	UserID       uuid.UUID `json:"user_id"`
	CompletionID uuid.UUID `json:"completion_id"`
	Date         string    `json:"date"`
	Value        *float64  `json:"value,omitempty"`
	AutoSynced   bool      `json:"auto_synced"`
}

// NewHabitCompleted creates a HabitCompleted event.
func NewHabitCompleted(h *Habit, c *Completion) *HabitCompleted {
	return &HabitCompleted{
		BaseEvent:    sharedDomain.NewBaseEvent(h.ID(), aggregateType, RoutingKeyHabitCompleted),
		HabitID:      h.ID(),
		UserID:       h.UserID(),
		CompletionID: c.ID(),
		Date:         c.Day().String(),
		Value:        c.ValuePtr(),
		AutoSynced:   c.IsAutoSynced(),
	}
}

// HabitGoalAdjusted is emitted when the progression engine moves the daily goal.
type HabitGoalAdjusted struct {
	sharedDomain.BaseEvent
	HabitID       uuid.UUID `json:"habit_id"`
	UserID        uuid.UUID `json:"user_id"`
	Progression   string    `json:"progression"`
	PreviousGoal  float64   `json:"previous_goal"`
	NewGoal       float64   `json:"new_goal"`
	Reason        string    `json:"reason"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// NewHabitGoalAdjusted creates a HabitGoalAdjusted event.
func NewHabitGoalAdjusted(h *Habit, previous, next float64, reason string) *HabitGoalAdjusted {
	effective, _ := h.LastGoalAdjustment()
	return &HabitGoalAdjusted{
		BaseEvent:     sharedDomain.NewBaseEvent(h.ID(), aggregateType, RoutingKeyHabitGoalAdjusted),
		HabitID:       h.ID(),
		UserID:        h.UserID(),
		Progression:   string(h.Progression()),
		PreviousGoal:  previous,
		NewGoal:       next,
		Reason:        reason,
		EffectiveFrom: effective,
	}
}

// HabitArchived is emitted when a habit is archived.
type HabitArchived struct {
	sharedDomain.BaseEvent
	HabitID uuid.UUID `json:"habit_id"`
	UserID  uuid.UUID `json:"user_id"`
}

// NewHabitArchived creates a HabitArchived event.
func NewHabitArchived(h *Habit) *HabitArchived {
	return &HabitArchived{
		BaseEvent: sharedDomain.NewBaseEvent(h.ID(), aggregateType, RoutingKeyHabitArchived),
		HabitID:   h.ID(),
		UserID:    h.UserID(),
	}
}
