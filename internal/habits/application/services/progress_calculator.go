package services

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
)

// Progress bundles a habit's metrics as of one day.
type Progress struct {
	CurrentStreak  int
	LongestStreak  int
	CompletionRate float64
	TodayProgress  float64
	CompletedToday bool
	CompletedDays  int
	EffectiveGoal  *float64
}

// ProgressCalculator derives streak, rate and progress metrics from a habit's completions.
type ProgressCalculator struct {
	goals *GoalEngine
}

// NewProgressCalculator creates a calculator that judges goal-based days with goals.
func NewProgressCalculator(goals *GoalEngine) *ProgressCalculator {
	if goals == nil {
		goals = NewGoalEngine(DefaultAdaptivePolicy())
	}
	return &ProgressCalculator{goals: goals}
}

// Goals returns the goal engine used to judge goal-based habits.
func (c *ProgressCalculator) Goals() *GoalEngine {
	return c.goals
}

// IsCompletedOn reports whether the habit qualifies on date's calendar day,
// using the goal in force on that day.
func (c *ProgressCalculator) IsCompletedOn(habit *domain.Habit, date time.Time) (bool, error) {
	h, err := c.History(habit)
	if err != nil {
		return false, err
	}
	return h.IsCompleted(domain.DayOf(date)), nil
}

// CurrentStreak returns the run of qualifying days ending on asOf, or on the
// day before when asOf itself is not completed yet.
func (c *ProgressCalculator) CurrentStreak(habit *domain.Habit, asOf time.Time) (int, error) {
	h, err := c.History(habit)
	if err != nil {
		return 0, err
	}
	return h.StreakAt(domain.DayOf(asOf)), nil
}

// LongestStreak returns the longest run of completed days ever recorded.
func (c *ProgressCalculator) LongestStreak(habit *domain.Habit) (int, error) {
	h, err := c.History(habit)
	if err != nil {
		return 0, err
	}
	return h.LongestStreak(), nil
}

// CompletionRate returns the share of days since creation that were completed.
func (c *ProgressCalculator) CompletionRate(habit *domain.Habit, asOf time.Time) (float64, error) {
	h, err := c.History(habit)
	if err != nil {
		return 0, err
	}
	return h.RateAt(domain.DayOf(asOf)), nil
}

// TodayProgress returns the fraction of the day's goal reached. It is not clamped.
func (c *ProgressCalculator) TodayProgress(habit *domain.Habit, asOf time.Time) (float64, error) {
	h, err := c.History(habit)
	if err != nil {
		return 0, err
	}
	return h.ProgressAt(domain.DayOf(asOf)), nil
}

// Summary computes every metric in one pass over the history.
func (c *ProgressCalculator) Summary(habit *domain.Habit, asOf time.Time) (Progress, error) {
	h, err := c.History(habit)
	if err != nil {
		return Progress{}, err
	}
	day := domain.DayOf(asOf)

	p := Progress{
		CurrentStreak:  h.StreakAt(day),
		LongestStreak:  h.LongestStreak(),
		CompletionRate: h.RateAt(day),
		TodayProgress:  h.ProgressAt(day),
		CompletedToday: h.IsCompleted(day),
		CompletedDays:  h.CompletedBetween(habit.CreatedDay(), day),
	}
	if goal, ok := c.goals.goalOn(habit, day); ok {
		p.EffectiveGoal = &goal
	}
	return p, nil
}

// History is a habit's completion record resolved against the goals in force.
// Build one with ProgressCalculator.History and reuse it for several queries.
type History struct {
	habit     *domain.Habit
	goals     *GoalEngine
	created   domain.CalendarDay
	entries   map[domain.CalendarDay]*domain.Completion
	completed map[domain.CalendarDay]bool
	days      []domain.CalendarDay // completed days, ascending
}

// History resolves the habit's completions. It fails with a configuration
// error when the goal settings are invalid.
func (c *ProgressCalculator) History(habit *domain.Habit) (*History, error) {
	if err := validateGoal(habit); err != nil {
		return nil, err
	}

	h := &History{
		habit:     habit,
		goals:     c.goals,
		created:   habit.CreatedDay(),
		entries:   habit.CompletionsByDay(),
		completed: make(map[domain.CalendarDay]bool),
	}
	for day := range h.entries {
		if day < h.created {
			continue
		}
		if c.goals.meetsGoal(habit, h.entries, day) {
			h.completed[day] = true
			h.days = append(h.days, day)
		}
	}
	sort.Slice(h.days, func(i, j int) bool { return h.days[i] < h.days[j] })
	return h, nil
}

// Habit returns the habit this history belongs to.
func (h *History) Habit() *domain.Habit {
	return h.habit
}

// IsCompleted reports whether day qualifies.
func (h *History) IsCompleted(day domain.CalendarDay) bool {
	return h.completed[day]
}

// HasEntry reports whether anything was recorded on day, qualifying or not.
func (h *History) HasEntry(day domain.CalendarDay) bool {
	_, ok := h.entries[day]
	return ok
}

// StreakAt walks back from asOf (or the day before when asOf is open).
// Rest days without a completion are skipped; any other miss ends the walk.
func (h *History) StreakAt(asOf domain.CalendarDay) int {
	start := asOf
	if !h.completed[asOf] {
		start = asOf.AddDays(-1)
	}

	streak := 0
	for day := start; day >= h.created; day-- {
		if h.completed[day] {
			streak++
			continue
		}
		if h.habit.IsRestDay(day) {
			continue
		}
		break
	}
	return streak
}

// LongestStreak scans completed days for the longest run, bridging gaps made only of rest days.
func (h *History) LongestStreak() int {
	longest, run := 0, 0
	for i, day := range h.days {
		if i > 0 && h.bridged(h.days[i-1], day) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// bridged reports whether every day strictly between from and to is a rest day.
func (h *History) bridged(from, to domain.CalendarDay) bool {
	for day := from + 1; day < to; day++ {
		if !h.habit.IsRestDay(day) {
			return false
		}
	}
	return true
}

// RateAt returns completed days over days since creation, both counted through asOf.
func (h *History) RateAt(asOf domain.CalendarDay) float64 {
	elapsed := int(asOf - h.created)
	if elapsed <= 0 {
		if h.completed[asOf] {
			return 1
		}
		return 0
	}
	return float64(h.CompletedBetween(h.created, asOf)) / float64(elapsed+1)
}

// CompletedBetween counts completed days in the inclusive range.
func (h *History) CompletedBetween(from, to domain.CalendarDay) int {
	lo := sort.Search(len(h.days), func(i int) bool { return h.days[i] >= from })
	hi := sort.Search(len(h.days), func(i int) bool { return h.days[i] > to })
	if hi < lo {
		return 0
	}
	return hi - lo
}

// ProgressAt returns the fraction of the goal reached on day; binary habits give 0 or 1.
func (h *History) ProgressAt(day domain.CalendarDay) float64 {
	goal, goalBased := h.goals.goalOn(h.habit, day)
	if !goalBased {
		if h.completed[day] {
			return 1
		}
		return 0
	}
	completion, ok := h.entries[day]
	if !ok || goal <= 0 {
		return 0
	}
	value, _ := completion.Value()
	return value / goal
}
