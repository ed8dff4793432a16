package services

import (
	"fmt"
	"math"
	"time"

	habitServices "github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	habitDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/google/uuid"
)

// ratios are compared with this tolerance.
const epsilon = 1e-9

// Thresholds tunes the insight rules.
type Thresholds struct {
	// MinStreak is the shortest streak worth a streak insight.
	MinStreak int
	// HighStreak raises streak insights to high priority.
	HighStreak int
	// Milestones are streak lengths celebrated on the day they are reached.
	Milestones []int
	// UrgentMilestone is the first milestone shown as urgent. Longer streaks are urgent too.
	UrgentMilestone int

	// PatternMinDays is the minimum history, in days, before weekday patterns are reported.
	PatternMinDays int
	// PatternWindowDays is the trailing window used for weekday rates.
	PatternWindowDays int
	// PatternMargin is the gap between a weekday's rate and the overall rate that counts as material.
	PatternMargin float64

	// ImprovementWindowDays is the length of each compared period.
	ImprovementWindowDays int
	// MaterialChange is the relative change that raises an improvement or reports a decline.
	MaterialChange float64
	// MinDecline is the smallest absolute drop in completions reported as a decline.
	MinDecline int
	// OvershootRatio is the average goal ratio that suggests raising a fixed goal.
	OvershootRatio float64
	// OvershootMinDays is the number of logged days needed for the overshoot check.
	OvershootMinDays int

	// CorrelationWindowDays is the trailing window for habit pairs.
	CorrelationWindowDays int
	// CorrelationMinRatio is the share of either-days on which both habits were done.
	CorrelationMinRatio float64
	// CorrelationMinDays is the minimum number of shared opportunity days.
	CorrelationMinDays int
	// CorrelationMinShared is the minimum number of days both habits were done.
	CorrelationMinShared int

	// LapseDays is the gap without a completion that ends a streak worth mentioning.
	LapseDays int
}

// DefaultThresholds returns the standard rule settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinStreak:       3,
		HighStreak:      7,
		Milestones:      []int{7, 14, 30, 60, 100, 180, 365},
		UrgentMilestone: 30,

		PatternMinDays:    14,
		PatternWindowDays: 84,
		PatternMargin:     0.15,

		ImprovementWindowDays: 7,
		MaterialChange:        0.25,
		MinDecline:            2,
		OvershootRatio:        1.25,
		OvershootMinDays:      5,

		CorrelationWindowDays: 30,
		CorrelationMinRatio:   0.7,
		CorrelationMinDays:    10,
		CorrelationMinShared:  5,

		LapseDays: 3,
	}
}

// withDefaults fills unset fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&t.MinStreak, d.MinStreak)
	setInt(&t.HighStreak, d.HighStreak)
	setInt(&t.UrgentMilestone, d.UrgentMilestone)
	setInt(&t.PatternMinDays, d.PatternMinDays)
	setInt(&t.PatternWindowDays, d.PatternWindowDays)
	setFloat(&t.PatternMargin, d.PatternMargin)
	setInt(&t.ImprovementWindowDays, d.ImprovementWindowDays)
	setFloat(&t.MaterialChange, d.MaterialChange)
	setInt(&t.MinDecline, d.MinDecline)
	setFloat(&t.OvershootRatio, d.OvershootRatio)
	setInt(&t.OvershootMinDays, d.OvershootMinDays)
	setInt(&t.CorrelationWindowDays, d.CorrelationWindowDays)
	setFloat(&t.CorrelationMinRatio, d.CorrelationMinRatio)
	setInt(&t.CorrelationMinDays, d.CorrelationMinDays)
	setInt(&t.CorrelationMinShared, d.CorrelationMinShared)
	setInt(&t.LapseDays, d.LapseDays)
	if len(t.Milestones) == 0 {
		t.Milestones = d.Milestones
	}
	return t
}

// Engine turns a user's habits into a ranked insight feed. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	calculator *habitServices.ProgressCalculator
	thresholds Thresholds
}

// NewEngine creates an insight engine. Zero threshold fields take their defaults.
func NewEngine(calculator *habitServices.ProgressCalculator, thresholds Thresholds) *Engine {
	if calculator == nil {
		calculator = habitServices.NewProgressCalculator(nil)
	}
	return &Engine{calculator: calculator, thresholds: thresholds.withDefaults()}
}

// Thresholds returns the rule settings in use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// tracked is an active habit with its resolved history.
type tracked struct {
	habit   *habitDomain.Habit
	history *habitServices.History
}

// generation collects insights for one call.
type generation struct {
	insights []domain.Insight
	covered  map[uuid.UUID]bool
}

func (g *generation) add(in domain.Insight, habits ...*habitDomain.Habit) {
	g.insights = append(g.insights, in)
	for _, h := range habits {
		g.covered[h.ID()] = true
	}
}

// Generate builds the insight feed for habits as of asOf. Archived habits are
// ignored. A habit with invalid goal settings fails the whole generation.
func (e *Engine) Generate(habits []*habitDomain.Habit, asOf time.Time) ([]domain.Insight, error) {
	active := make([]tracked, 0, len(habits))
	for _, habit := range habits {
		if habit.IsArchived() {
			continue
		}
		history, err := e.calculator.History(habit)
		if err != nil {
			return nil, err
		}
		active = append(active, tracked{habit: habit, history: history})
	}

	today := habitDomain.DayOf(asOf)
	g := &generation{covered: make(map[uuid.UUID]bool)}

	for _, t := range active {
		e.streakRule(g, t, today)
		e.patternRule(g, t, today)
		e.overshootRule(g, t, today)
	}
	e.correlationRule(g, active, today)
	e.weeklyRule(g, active, today)
	for _, t := range active {
		e.motivationRule(g, t, today)
	}

	domain.Sort(g.insights)
	return g.insights, nil
}

// streakRule reports a milestone on the day it is reached, otherwise the running streak.
func (e *Engine) streakRule(g *generation, t tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	streak := t.history.StreakAt(today)
	name := t.habit.Name()

	if t.history.IsCompleted(today) && e.isMilestone(streak) {
		priority := domain.PriorityHigh
		if streak >= th.UrgentMilestone {
			priority = domain.PriorityUrgent
		}
		g.add(insightFor(t.habit, domain.Insight{
			Type:       domain.TypeMilestone,
			Title:      fmt.Sprintf("%d-day milestone", streak),
			Message:    fmt.Sprintf("You have kept up %s for %s in a row.", name, days(streak)),
			Priority:   priority,
			Value:      valueOf(streak),
			IsPositive: true,
		}), t.habit)
		return
	}

	if streak < th.MinStreak {
		return
	}
	in := domain.Insight{
		Type:       domain.TypeStreak,
		Title:      fmt.Sprintf("%d-day streak", streak),
		Message:    fmt.Sprintf("%s is on a %d-day streak. Keep it going!", name, streak),
		Priority:   domain.PriorityMedium,
		Value:      valueOf(streak),
		IsPositive: true,
	}
	switch {
	case streak >= th.UrgentMilestone:
		in.Priority = domain.PriorityUrgent
	case streak >= th.HighStreak:
		in.Priority = domain.PriorityHigh
	}
	if !t.history.IsCompleted(today) && !t.habit.IsRestDay(today) {
		in.Message = fmt.Sprintf("Log %s today to keep your %d-day streak alive.", name, streak)
		in.Actionable = true
	}
	g.add(insightFor(t.habit, in), t.habit)
}

func (e *Engine) isMilestone(streak int) bool {
	for _, m := range e.thresholds.Milestones {
		if streak == m {
			return true
		}
	}
	return false
}

// patternRule compares weekday completion rates over the trailing window,
// ending yesterday, against the habit's overall rate.
func (e *Engine) patternRule(g *generation, t tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	last := today.AddDays(-1)
	first := today.AddDays(-th.PatternWindowDays)
	if created := t.habit.CreatedDay(); first < created {
		first = created
	}
	if int(last-first)+1 < th.PatternMinDays {
		return
	}

	var done, open [7]int
	total, completed := 0, 0
	for day := first; day <= last; day++ {
		if t.habit.IsRestDay(day) {
			continue
		}
		wd := day.Weekday()
		open[wd]++
		total++
		if t.history.IsCompleted(day) {
			done[wd]++
			completed++
		}
	}
	if total == 0 {
		return
	}
	overall := float64(completed) / float64(total)

	var rates [7]float64
	best, worst := -1, -1
	for wd := 0; wd < 7; wd++ {
		if open[wd] == 0 {
			continue
		}
		rates[wd] = float64(done[wd]) / float64(open[wd])
		if best < 0 || rates[wd] > rates[best] {
			best = wd
		}
		if worst < 0 || rates[wd] < rates[worst] {
			worst = wd
		}
	}
	if best == worst {
		return
	}

	name := t.habit.Name()
	if rates[best]-overall >= th.PatternMargin-epsilon {
		day := time.Weekday(best)
		g.add(insightFor(t.habit, domain.Insight{
			Type:  domain.TypePattern,
			Title: fmt.Sprintf("%ss are your strongest day", day),
			Message: fmt.Sprintf("You complete %s on %s of %ss, against %s overall.",
				name, percent(rates[best]), day, percent(overall)),
			Priority:   domain.PriorityLow,
			Value:      valueOf(math.Round(rates[best] * 100)),
			IsPositive: true,
		}), t.habit)
	}
	if overall-rates[worst] >= th.PatternMargin-epsilon {
		day := time.Weekday(worst)
		g.add(insightFor(t.habit, domain.Insight{
			Type:  domain.TypePattern,
			Title: fmt.Sprintf("%ss need attention", day),
			Message: fmt.Sprintf("You complete %s on only %s of %ss, against %s overall.",
				name, percent(rates[worst]), day, percent(overall)),
			Detail:     fmt.Sprintf("Plan %s into your %s routine.", name, day),
			Priority:   domain.PriorityMedium,
			Value:      valueOf(math.Round(rates[worst] * 100)),
			Actionable: true,
		}), t.habit)
	}
}

// overshootRule suggests raising a fixed goal that is consistently beaten.
func (e *Engine) overshootRule(g *generation, t tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	if !t.habit.IsGoalBased() || t.habit.Progression() != habitDomain.ProgressionFixed {
		return
	}

	logged, sum := 0, 0.0
	for day := today.AddDays(1 - th.ImprovementWindowDays); day <= today; day++ {
		if !t.history.HasEntry(day) {
			continue
		}
		logged++
		sum += t.history.ProgressAt(day)
	}
	if logged < th.OvershootMinDays {
		return
	}
	avg := sum / float64(logged)
	if avg < th.OvershootRatio-epsilon {
		return
	}

	goal, _ := t.habit.DailyGoal()
	g.add(insightFor(t.habit, domain.Insight{
		Type:  domain.TypeImprovement,
		Title: "Ready for a bigger goal",
		Message: fmt.Sprintf("You averaged %s of your %s goal for %s on the last %s logged.",
			percent(avg), formatAmount(goal, t.habit.Unit()), t.habit.Name(), days(logged)),
		Detail:     "Consider raising the daily goal.",
		Priority:   domain.PriorityLow,
		Value:      valueOf(math.Round(avg * 100)),
		IsPositive: true,
		Actionable: true,
	}), t.habit)
}

// correlationRule looks for habit pairs that are usually done on the same days.
func (e *Engine) correlationRule(g *generation, active []tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			first := today.AddDays(1 - th.CorrelationWindowDays)
			if c := a.habit.CreatedDay(); first < c {
				first = c
			}
			if c := b.habit.CreatedDay(); first < c {
				first = c
			}

			opportunities, both, either := 0, 0, 0
			for day := first; day <= today; day++ {
				if a.habit.IsRestDay(day) || b.habit.IsRestDay(day) {
					continue
				}
				opportunities++
				doneA, doneB := a.history.IsCompleted(day), b.history.IsCompleted(day)
				if doneA && doneB {
					both++
				}
				if doneA || doneB {
					either++
				}
			}
			if opportunities < th.CorrelationMinDays || both < th.CorrelationMinShared || either == 0 {
				continue
			}
			ratio := float64(both) / float64(either)
			if ratio < th.CorrelationMinRatio-epsilon {
				continue
			}

			g.add(insightFor(a.habit, domain.Insight{
				Type:  domain.TypeCorrelation,
				Title: fmt.Sprintf("%s and %s go together", a.habit.Name(), b.habit.Name()),
				Message: fmt.Sprintf("On %d of the %s you did either, you did both.",
					both, days(either)),
				Detail:     fmt.Sprintf("Pair %s with %s in one routine.", a.habit.Name(), b.habit.Name()),
				Priority:   domain.PriorityMedium,
				Value:      valueOf(math.Round(ratio * 100)),
				IsPositive: true,
			}), a.habit, b.habit)
		}
	}
}

// weeklyRule compares completions in the trailing window with the window before it.
func (e *Engine) weeklyRule(g *generation, active []tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	w := th.ImprovementWindowDays
	current, previous := 0, 0
	for _, t := range active {
		current += t.history.CompletedBetween(today.AddDays(1-w), today)
		previous += t.history.CompletedBetween(today.AddDays(1-2*w), today.AddDays(-w))
	}
	if previous == 0 {
		return
	}

	change := float64(current-previous) / float64(previous)
	value := math.Round(change * 100)
	switch {
	case current == previous:
		g.add(domain.Insight{
			Type:       domain.TypeImprovement,
			Title:      "Holding steady",
			Message:    fmt.Sprintf("%d completions in the last %s, the same as the %s before.", current, days(w), days(w)),
			Priority:   domain.PriorityLow,
			Value:      valueOf(0),
			IsPositive: true,
		})
	case current > previous:
		in := domain.Insight{
			Type:       domain.TypeImprovement,
			Title:      fmt.Sprintf("Up %.0f%% on last week", value),
			Message:    fmt.Sprintf("%d completions in the last %s, up from %d.", current, days(w), previous),
			Priority:   domain.PriorityLow,
			Value:      valueOf(value),
			IsPositive: true,
		}
		if change >= th.MaterialChange-epsilon {
			in.Priority = domain.PriorityMedium
		}
		g.add(in)
	case -change >= th.MaterialChange-epsilon && previous-current >= th.MinDecline:
		g.add(domain.Insight{
			Type:       domain.TypeImprovement,
			Title:      fmt.Sprintf("Down %.0f%% on last week", -value),
			Message:    fmt.Sprintf("%d completions in the last %s, down from %d.", current, days(w), previous),
			Detail:     "Pick one habit to focus on this week.",
			Priority:   domain.PriorityMedium,
			Value:      valueOf(value),
			Actionable: true,
		})
	}
}

// motivationRule emits at most one motivation insight per habit: a lapse
// warning when a streak recently ended, otherwise a nudge for habits no other
// rule mentioned.
func (e *Engine) motivationRule(g *generation, t tracked, today habitDomain.CalendarDay) {
	th := e.thresholds
	name := t.habit.Name()

	if e.lapsed(t, today) {
		before := t.history.StreakAt(today.AddDays(-th.LapseDays))
		if before >= th.MinStreak {
			g.add(insightFor(t.habit, domain.Insight{
				Type:  domain.TypeMotivation,
				Title: fmt.Sprintf("Get back to %s", name),
				Message: fmt.Sprintf("Your %d-day streak on %s has paused for %s. One check-in restarts it.",
					before, name, days(th.LapseDays)),
				Priority:   domain.PriorityHigh,
				Value:      valueOf(before),
				Actionable: true,
			}), t.habit)
			return
		}
	}
	if g.covered[t.habit.ID()] {
		return
	}

	rate := t.history.RateAt(today)
	in := domain.Insight{
		Type:     domain.TypeMotivation,
		Priority: domain.PriorityLow,
		Value:    valueOf(math.Round(rate * 100)),
	}
	switch {
	case t.history.IsCompleted(today):
		in.Title = "Done for today"
		in.Message = fmt.Sprintf("%s is checked off. You have completed it on %s of days so far.", name, percent(rate))
		in.IsPositive = true
	case t.habit.IsRestDay(today):
		in.Title = "Rest day"
		in.Message = fmt.Sprintf("Today is a rest day for %s. Your streak is safe.", name)
		in.IsPositive = true
	default:
		in.Title = fmt.Sprintf("Time for %s", name)
		in.Message = fmt.Sprintf("%s is still open today. You have completed it on %s of days so far.", name, percent(rate))
		in.Actionable = true
	}
	g.add(insightFor(t.habit, in), t.habit)
}

// lapsed reports whether no qualifying day falls in the trailing lapse window.
// Windows starting on or before creation, or holding only rest days, do not count.
func (e *Engine) lapsed(t tracked, today habitDomain.CalendarDay) bool {
	first := today.AddDays(1 - e.thresholds.LapseDays)
	if first <= t.habit.CreatedDay() {
		return false
	}
	open := false
	for day := first; day <= today; day++ {
		if t.history.IsCompleted(day) {
			return false
		}
		if !t.habit.IsRestDay(day) {
			open = true
		}
	}
	return open
}

func insightFor(habit *habitDomain.Habit, in domain.Insight) domain.Insight {
	id := habit.ID()
	in.RelatedHabitID = &id
	in.RelatedHabitName = habit.Name()
	return in
}

func valueOf[T int | float64](v T) *float64 {
	f := float64(v)
	return &f
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func formatAmount(v float64, unit string) string {
	s := fmt.Sprintf("%g", v)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
