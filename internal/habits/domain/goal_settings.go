package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidConfiguration matches every *ConfigurationError via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid goal configuration")

// ConfigurationError reports goal settings that violate the habit invariants.
type ConfigurationError struct {
	HabitID uuid.UUID
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.HabitID == uuid.Nil {
		return fmt.Sprintf("invalid goal configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid goal configuration for habit %s: %s: %s", e.HabitID, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Kind says where a habit's completions come from.
type Kind string

const (
	KindManual      Kind = "manual"
	KindSteps       Kind = "steps"       // health provider step count
	KindWater       Kind = "water"       // health provider water intake
	KindMindfulness Kind = "mindfulness" // health provider mindful minutes
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindManual, KindSteps, KindWater, KindMindfulness:
		return true
	default:
		return false
	}
}

// IsExternal reports whether completions are supplied by an external data provider.
func (k Kind) IsExternal() bool {
	return k.IsValid() && k != KindManual
}

// GoalProgression is the policy that moves the daily goal over time.
type GoalProgression string

const (
	ProgressionFixed    GoalProgression = "fixed"
	ProgressionRampUp   GoalProgression = "ramp_up"
	ProgressionAdaptive GoalProgression = "adaptive"
)

// IsValid checks if the progression is known.
func (p GoalProgression) IsValid() bool {
	switch p {
	case ProgressionFixed, ProgressionRampUp, ProgressionAdaptive:
		return true
	default:
		return false
	}
}

// GoalSettings groups a habit's numeric goal and its progression parameters.
type GoalSettings struct {
	DailyGoal    *float64
	Unit         string
	Progression  GoalProgression
	InitialGoal  *float64
	Increment    *float64
	IntervalDays *int
}

// BinaryGoal returns settings for a done/not-done habit.
func BinaryGoal() GoalSettings {
	return GoalSettings{Progression: ProgressionFixed}
}

// FixedGoal returns settings for a constant numeric goal.
func FixedGoal(goal float64, unit string) GoalSettings {
	return GoalSettings{DailyGoal: &goal, Unit: unit, Progression: ProgressionFixed}
}

// RampUpGoal returns settings that start at initial and grow by increment every intervalDays.
func RampUpGoal(initial, increment float64, intervalDays int, unit string) GoalSettings {
	daily := initial
	return GoalSettings{
		DailyGoal:    &daily,
		Unit:         unit,
		Progression:  ProgressionRampUp,
		InitialGoal:  &initial,
		Increment:    &increment,
		IntervalDays: &intervalDays,
	}
}

// AdaptiveGoal returns settings whose goal follows recent performance.
// A nil step lets the engine derive one from the goal.
func AdaptiveGoal(goal float64, step *float64, unit string) GoalSettings {
	initial := goal
	return GoalSettings{
		DailyGoal:   &goal,
		Unit:        unit,
		Progression: ProgressionAdaptive,
		InitialGoal: &initial,
		Increment:   step,
	}
}

// Validate enforces the goal invariants.
func (s GoalSettings) Validate() error {
	if !s.Progression.IsValid() {
		return &ConfigurationError{Field: "progression", Reason: fmt.Sprintf("unknown progression %q", s.Progression)}
	}
	if s.DailyGoal == nil {
		if s.Progression != ProgressionFixed {
			return &ConfigurationError{Field: "daily_goal", Reason: "required when progression is not fixed"}
		}
		return nil
	}
	if *s.DailyGoal <= 0 {
		return &ConfigurationError{Field: "daily_goal", Reason: "must be positive"}
	}
	if s.InitialGoal != nil && *s.InitialGoal <= 0 {
		return &ConfigurationError{Field: "initial_goal", Reason: "must be positive"}
	}
	if s.Increment != nil && *s.Increment <= 0 {
		return &ConfigurationError{Field: "goal_increment", Reason: "must be positive"}
	}
	if s.IntervalDays != nil && *s.IntervalDays <= 0 {
		return &ConfigurationError{Field: "goal_increment_interval_days", Reason: "must be positive"}
	}
	if s.Progression == ProgressionRampUp {
		switch {
		case s.InitialGoal == nil:
			return &ConfigurationError{Field: "initial_goal", Reason: "required for ramp-up"}
		case s.Increment == nil:
			return &ConfigurationError{Field: "goal_increment", Reason: "required for ramp-up"}
		case s.IntervalDays == nil:
			return &ConfigurationError{Field: "goal_increment_interval_days", Reason: "required for ramp-up"}
		}
	}
	return nil
}

func (s GoalSettings) clone() GoalSettings {
	c := s
	c.DailyGoal = cloneFloat(s.DailyGoal)
	c.InitialGoal = cloneFloat(s.InitialGoal)
	c.Increment = cloneFloat(s.Increment)
	if s.IntervalDays != nil {
		v := *s.IntervalDays
		c.IntervalDays = &v
	}
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
