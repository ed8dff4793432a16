package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
)

// AdaptivePolicy tunes how adaptive goals follow recent performance.
type AdaptivePolicy struct {
	// WindowDays is the number of days reviewed, ending the day before the evaluation.
	WindowDays int
	// IncreaseThreshold is the minimum number of met days that raises the goal.
	IncreaseThreshold int
	// DecreaseThreshold is the maximum number of met days that lowers the goal.
	DecreaseThreshold int
	// StepRatio derives the step from the goal when the habit has no explicit increment.
	StepRatio float64
}

// DefaultAdaptivePolicy returns the 5-of-7 up, 2-of-7 down policy.
func DefaultAdaptivePolicy() AdaptivePolicy {
	return AdaptivePolicy{
		WindowDays:        7,
		IncreaseThreshold: 5,
		DecreaseThreshold: 2,
		StepRatio:         0.1,
	}
}

// Validate checks the policy is usable.
func (p AdaptivePolicy) Validate() error {
	switch {
	case p.WindowDays <= 0:
		return errors.New("adaptive window must be positive")
	case p.IncreaseThreshold <= 0 || p.IncreaseThreshold > p.WindowDays:
		return errors.New("adaptive increase threshold must be within the window")
	case p.DecreaseThreshold < 0 || p.DecreaseThreshold >= p.IncreaseThreshold:
		return errors.New("adaptive decrease threshold must be below the increase threshold")
	case p.StepRatio <= 0:
		return errors.New("adaptive step ratio must be positive")
	}
	return nil
}

// Adjustment describes the outcome of applying goal progression to a habit.
type Adjustment struct {
	HabitID       uuid.UUID
	Progression   domain.GoalProgression
	Changed       bool
	PreviousGoal  float64
	NewGoal       float64
	EffectiveFrom time.Time
	Reason        string
}

// GoalProgressionInfo is the display view of a habit's goal progression.
type GoalProgressionInfo struct {
	Progression     domain.GoalProgression
	CurrentGoal     *float64
	Unit            string
	DaysUntilChange *int
	Message         string
}

// GoalEngine computes the goal in force on a date and moves goals forward.
// It is stateless apart from its policy and safe for concurrent use.
type GoalEngine struct {
	policy AdaptivePolicy
}

// NewGoalEngine creates a goal engine. An invalid policy falls back to the
// default; callers taking the policy from configuration validate it first.
func NewGoalEngine(policy AdaptivePolicy) *GoalEngine {
	if policy.Validate() != nil {
		policy = DefaultAdaptivePolicy()
	}
	return &GoalEngine{policy: policy}
}

// Policy returns the adaptive policy in use.
func (e *GoalEngine) Policy() AdaptivePolicy {
	return e.policy
}

// EffectiveGoal returns the goal in force on date's calendar day.
// Binary habits have no goal and yield 0.
func (e *GoalEngine) EffectiveGoal(habit *domain.Habit, date time.Time) (float64, error) {
	if err := validateGoal(habit); err != nil {
		return 0, err
	}
	goal, _ := e.goalOn(habit, domain.DayOf(date))
	return goal, nil
}

// DaysUntilChange returns the days left before a ramp-up goal next increases.
// The boolean is false for habits that are not on a ramp-up.
func (e *GoalEngine) DaysUntilChange(habit *domain.Habit, asOf time.Time) (int, bool, error) {
	if err := validateGoal(habit); err != nil {
		return 0, false, err
	}
	if habit.Progression() != domain.ProgressionRampUp {
		return 0, false, nil
	}
	r := newRamp(habit, domain.DayOf(asOf))
	return r.interval - r.elapsed%r.interval, true, nil
}

// Apply moves the habit's goal when a ramp-up boundary was crossed or the
// adaptive review calls for a change. Running it again on the same day is a no-op.
func (e *GoalEngine) Apply(habit *domain.Habit, asOf time.Time) (Adjustment, error) {
	if err := validateGoal(habit); err != nil {
		return Adjustment{}, err
	}

	current, goalBased := habit.DailyGoal()
	adj := Adjustment{
		HabitID:      habit.ID(),
		Progression:  habit.Progression(),
		PreviousGoal: current,
		NewGoal:      current,
	}
	if !goalBased || habit.IsArchived() {
		adj.Reason = "no automatic progression"
		return adj, nil
	}

	day := domain.DayOf(asOf)
	if last, ok := habit.LastGoalAdjustment(); ok && day < domain.DayOf(last) {
		adj.Reason = "goal was already adjusted after this date"
		return adj, nil
	}

	var (
		next      float64
		effective time.Time
	)
	switch habit.Progression() {
	case domain.ProgressionRampUp:
		r := newRamp(habit, day)
		steps := r.elapsed / r.interval
		if steps == 0 {
			adj.Reason = fmt.Sprintf("next increase in %d days", r.interval-r.elapsed)
			return adj, nil
		}
		next = roundGoal(r.base + r.increment*float64(steps))
		effective = r.anchor.AddDays(steps * r.interval).In(asOf.Location())
		adj.Reason = fmt.Sprintf("ramp-up interval of %d days reached", r.interval)
	case domain.ProgressionAdaptive:
		review := e.review(habit, day)
		if review.direction == 0 {
			adj.Reason = review.message(habit)
			return adj, nil
		}
		next = review.newGoal
		effective = asOf
		adj.Reason = review.message(habit)
	default:
		adj.Reason = "fixed goal"
		return adj, nil
	}

	if next == current {
		return adj, nil
	}
	if err := habit.AdjustGoal(next, effective, adj.Reason); err != nil {
		return Adjustment{}, err
	}

	adj.Changed = true
	adj.NewGoal = next
	adj.EffectiveFrom = domain.StartOfDay(effective)
	return adj, nil
}

// ProgressionInfo summarizes the goal in force and what happens next.
func (e *GoalEngine) ProgressionInfo(habit *domain.Habit, asOf time.Time) (GoalProgressionInfo, error) {
	if err := validateGoal(habit); err != nil {
		return GoalProgressionInfo{}, err
	}

	info := GoalProgressionInfo{
		Progression: habit.Progression(),
		Unit:        habit.Unit(),
	}
	day := domain.DayOf(asOf)
	goal, ok := e.goalOn(habit, day)
	if !ok {
		info.Message = "Complete once a day."
		return info, nil
	}
	info.CurrentGoal = &goal

	switch habit.Progression() {
	case domain.ProgressionRampUp:
		r := newRamp(habit, day)
		left := r.interval - r.elapsed%r.interval
		info.DaysUntilChange = &left
		info.Message = fmt.Sprintf("Goal rises to %s in %s.",
			formatGoal(goal+r.increment, habit.Unit()), pluralDays(left))
	case domain.ProgressionAdaptive:
		info.Message = e.review(habit, day).message(habit)
	default:
		info.Message = fmt.Sprintf("Fixed goal of %s a day.", formatGoal(goal, habit.Unit()))
	}
	return info, nil
}

// goalOn returns the goal in force on day and whether the habit has one.
// Ramp-up goals follow their schedule; other goals replay the recorded
// adjustments. Settings are assumed valid.
func (e *GoalEngine) goalOn(habit *domain.Habit, day domain.CalendarDay) (float64, bool) {
	if !habit.IsGoalBased() {
		return 0, false
	}
	if habit.Progression() != domain.ProgressionRampUp {
		return habit.GoalOn(day)
	}
	r := newRamp(habit, day)
	return r.base + r.increment*float64(r.elapsed/r.interval), true
}

// meetsGoal reports whether the recorded value on day reaches the goal in force.
func (e *GoalEngine) meetsGoal(habit *domain.Habit, entries map[domain.CalendarDay]*domain.Completion, day domain.CalendarDay) bool {
	completion, ok := entries[day]
	if !ok {
		return false
	}
	goal, goalBased := e.goalOn(habit, day)
	if !goalBased {
		return true
	}
	value, _ := completion.Value()
	return value >= goal
}

// ramp holds the anchored ramp-up parameters for one evaluation day.
type ramp struct {
	anchor    domain.CalendarDay
	base      float64
	increment float64
	interval  int
	elapsed   int
}

// newRamp anchors on the last adjustment when day is on or after it, otherwise on creation.
func newRamp(habit *domain.Habit, day domain.CalendarDay) ramp {
	settings := habit.GoalSettings()
	r := ramp{
		anchor:    habit.CreatedDay(),
		base:      *settings.InitialGoal,
		increment: *settings.Increment,
		interval:  *settings.IntervalDays,
	}
	if last, ok := habit.LastGoalAdjustment(); ok && day >= domain.DayOf(last) {
		r.anchor = domain.DayOf(last)
		r.base = *settings.DailyGoal
	}
	if day > r.anchor {
		r.elapsed = int(day - r.anchor)
	}
	return r
}

// adaptiveReview is the result of looking at the trailing window.
type adaptiveReview struct {
	window    int
	met       int
	missing   int // days of history still needed
	cooldown  int // days until the next review
	direction int
	goal      float64
	newGoal   float64
}

func (e *GoalEngine) review(habit *domain.Habit, day domain.CalendarDay) adaptiveReview {
	goal, _ := habit.DailyGoal()
	rv := adaptiveReview{window: e.policy.WindowDays, goal: goal, newGoal: goal}

	start := day.AddDays(-e.policy.WindowDays)
	if created := habit.CreatedDay(); start < created {
		rv.missing = int(created - start)
		return rv
	}
	if last, ok := habit.LastGoalAdjustment(); ok {
		if since := int(day - domain.DayOf(last)); since < e.policy.WindowDays {
			rv.cooldown = e.policy.WindowDays - since
			return rv
		}
	}

	entries := habit.CompletionsByDay()
	for d := start; d < day; d++ {
		if e.meetsGoal(habit, entries, d) {
			rv.met++
		}
	}

	settings := habit.GoalSettings()
	step := goal * e.policy.StepRatio
	if settings.Increment != nil {
		step = *settings.Increment
	}
	floor := step
	if settings.InitialGoal != nil {
		floor = *settings.InitialGoal
	}

	switch {
	case rv.met >= e.policy.IncreaseThreshold:
		rv.direction = 1
		rv.newGoal = roundGoal(goal + step)
	case rv.met <= e.policy.DecreaseThreshold:
		lowered := roundGoal(math.Max(floor, goal-step))
		if lowered < goal {
			rv.direction = -1
			rv.newGoal = lowered
		}
	}
	return rv
}

func (rv adaptiveReview) message(habit *domain.Habit) string {
	unit := habit.Unit()
	switch {
	case rv.missing > 0:
		return fmt.Sprintf("Goal adapts once there are %s of history (%s to go).",
			pluralDays(rv.window), pluralDays(rv.missing))
	case rv.cooldown > 0:
		return fmt.Sprintf("Goal was just adjusted to %s; next review in %s.",
			formatGoal(rv.goal, unit), pluralDays(rv.cooldown))
	case rv.direction > 0:
		return fmt.Sprintf("Met the goal on %d of the last %d days, raising it to %s.",
			rv.met, rv.window, formatGoal(rv.newGoal, unit))
	case rv.direction < 0:
		return fmt.Sprintf("Met the goal on %d of the last %d days, easing it to %s.",
			rv.met, rv.window, formatGoal(rv.newGoal, unit))
	default:
		return fmt.Sprintf("Met the goal on %d of the last %d days, holding at %s.",
			rv.met, rv.window, formatGoal(rv.goal, unit))
	}
}

// validateGoal fails fast on settings that break the habit invariants.
func validateGoal(habit *domain.Habit) error {
	if err := habit.GoalSettings().Validate(); err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.HabitID = habit.ID()
		}
		return err
	}
	return nil
}

func roundGoal(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatGoal(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
