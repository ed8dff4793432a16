package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrHabitEmptyName        = errors.New("habit name cannot be empty")
	ErrHabitInvalidKind      = errors.New("invalid habit kind")
	ErrHabitArchived         = errors.New("habit is archived")
	ErrCompletionNegative    = errors.New("completion value cannot be negative")
	ErrCompletionBeforeHabit = errors.New("completion date is before the habit was created")
	ErrHabitNotFound         = errors.New("habit not found")
	ErrNotOwner              = errors.New("user does not own this habit")
)

// Habit is a recurring behavior the user tracks.
type Habit struct {
	sharedDomain.BaseAggregateRoot
	userID             uuid.UUID
	name               string
	icon               string
	color              string
	kind               Kind
	goal               GoalSettings
	lastGoalAdjustment *time.Time
	goalChanges        []GoalChange
	restDays           WeekdaySet
	archived           bool
	completions        []*Completion
}

// GoalChange records one automatic move of the daily goal.
type GoalChange struct {
	EffectiveFrom time.Time
	Previous      float64
	Goal          float64
}

// Day returns the first calendar day the new goal applies to.
func (c GoalChange) Day() CalendarDay { return DayOf(c.EffectiveFrom) }

// NewHabit creates a binary habit created now.
func NewHabit(userID uuid.UUID, name string, kind Kind) (*Habit, error) {
	return NewHabitAt(userID, name, kind, time.Now())
}

// NewHabitAt creates a binary habit with an explicit creation instant.
func NewHabitAt(userID uuid.UUID, name string, kind Kind, createdAt time.Time) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrHabitEmptyName
	}
	if !kind.IsValid() {
		return nil, ErrHabitInvalidKind
	}

	habit := &Habit{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(sharedDomain.NewBaseEntityAt(createdAt)),
		userID:            userID,
		name:              name,
		kind:              kind,
		goal:              BinaryGoal(),
		completions:       make([]*Completion, 0),
	}

	habit.AddDomainEvent(NewHabitCreated(habit))

	return habit, nil
}

// Getters
func (h *Habit) UserID() uuid.UUID              { return h.userID }
func (h *Habit) Name() string                   { return h.name }
func (h *Habit) Icon() string                   { return h.icon }
func (h *Habit) Color() string                  { return h.color }
func (h *Habit) Kind() Kind                     { return h.kind }
func (h *Habit) Unit() string                   { return h.goal.Unit }
func (h *Habit) Progression() GoalProgression   { return h.goal.Progression }
func (h *Habit) RestDays() WeekdaySet           { return h.restDays }
func (h *Habit) IsArchived() bool               { return h.archived }
func (h *Habit) Completions() []*Completion     { return h.completions }
func (h *Habit) GoalSettings() GoalSettings     { return h.goal.clone() }
func (h *Habit) IsGoalBased() bool              { return h.goal.DailyGoal != nil }
func (h *Habit) IsRestDay(day CalendarDay) bool { return h.restDays.Has(day.Weekday()) }
func (h *Habit) CreatedDay() CalendarDay        { return DayOf(h.CreatedAt()) }

// DailyGoal returns the stored goal and whether the habit has one.
func (h *Habit) DailyGoal() (float64, bool) {
	if h.goal.DailyGoal == nil {
		return 0, false
	}
	return *h.goal.DailyGoal, true
}

// LastGoalAdjustment returns when the goal was last changed automatically.
func (h *Habit) LastGoalAdjustment() (time.Time, bool) {
	if h.lastGoalAdjustment == nil {
		return time.Time{}, false
	}
	return *h.lastGoalAdjustment, true
}

// GoalChanges returns the recorded goal adjustments, oldest first.
func (h *Habit) GoalChanges() []GoalChange {
	return append([]GoalChange(nil), h.goalChanges...)
}

// GoalOn returns the daily goal that was in force on day by replaying the
// recorded adjustments. Days before the first adjustment use its previous goal.
func (h *Habit) GoalOn(day CalendarDay) (float64, bool) {
	current, ok := h.DailyGoal()
	if !ok || len(h.goalChanges) == 0 {
		return current, ok
	}
	if day >= h.goalChanges[len(h.goalChanges)-1].Day() {
		return current, true
	}
	goal := h.goalChanges[0].Previous
	for _, c := range h.goalChanges {
		if day < c.Day() {
			break
		}
		goal = c.Goal
	}
	return goal, true
}

// SetName updates the habit name.
func (h *Habit) SetName(name string) error {
	if h.archived {
		return ErrHabitArchived
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrHabitEmptyName
	}
	h.name = name
	h.Touch()
	return nil
}

// SetAppearance stores the opaque icon and color references.
func (h *Habit) SetAppearance(icon, color string) {
	h.icon = strings.TrimSpace(icon)
	h.color = strings.TrimSpace(color)
	h.Touch()
}

// SetGoal replaces the goal settings after validating them.
func (h *Habit) SetGoal(settings GoalSettings) error {
	if h.archived {
		return ErrHabitArchived
	}
	if err := settings.Validate(); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.HabitID = h.ID()
		}
		return err
	}
	h.goal = settings.clone()
	h.lastGoalAdjustment = nil
	h.goalChanges = nil
	h.Touch()
	return nil
}

// SetRestDays sets the weekdays on which a missed completion does not break a streak.
func (h *Habit) SetRestDays(days WeekdaySet) {
	h.restDays = days
	h.Touch()
}

// LogCompletion records activity for the calendar day of date.
// A second entry for the same day replaces the first (latest write wins).
func (h *Habit) LogCompletion(date time.Time, value *float64, autoSynced bool) (*Completion, error) {
	if h.archived {
		return nil, ErrHabitArchived
	}
	if value != nil && *value < 0 {
		return nil, ErrCompletionNegative
	}
	if DayOf(date) < h.CreatedDay() {
		return nil, ErrCompletionBeforeHabit
	}

	now := time.Now()
	completion := h.CompletionOn(DayOf(date))
	if completion != nil {
		completion.value = cloneFloat(value)
		completion.autoSynced = autoSynced
		completion.recordedAt = now
	} else {
		completion = &Completion{
			id:         uuid.New(),
			habitID:    h.ID(),
			date:       StartOfDay(date),
			value:      cloneFloat(value),
			autoSynced: autoSynced,
			recordedAt: now,
		}
		h.completions = append(h.completions, completion)
	}
	h.Touch()

	h.AddDomainEvent(NewHabitCompleted(h, completion))

	return completion, nil
}

// CompletionOn returns the authoritative completion for a day, or nil.
// When duplicates exist the most recently recorded one wins.
func (h *Habit) CompletionOn(day CalendarDay) *Completion {
	var found *Completion
	for _, c := range h.completions {
		if c.Day() != day {
			continue
		}
		if found == nil || !c.recordedAt.Before(found.recordedAt) {
			found = c
		}
	}
	return found
}

// CompletionsByDay indexes the authoritative completion of every recorded day.
func (h *Habit) CompletionsByDay() map[CalendarDay]*Completion {
	byDay := make(map[CalendarDay]*Completion, len(h.completions))
	for _, c := range h.completions {
		day := c.Day()
		if current, ok := byDay[day]; ok && c.recordedAt.Before(current.recordedAt) {
			continue
		}
		byDay[day] = c
	}
	return byDay
}

// AdjustGoal moves the daily goal. Only the goal progression engine calls this.
func (h *Habit) AdjustGoal(newGoal float64, effectiveFrom time.Time, reason string) error {
	if h.archived {
		return ErrHabitArchived
	}
	previous, ok := h.DailyGoal()
	if !ok {
		return &ConfigurationError{HabitID: h.ID(), Field: "daily_goal", Reason: "cannot adjust a binary habit"}
	}
	if newGoal <= 0 {
		return &ConfigurationError{HabitID: h.ID(), Field: "daily_goal", Reason: "must be positive"}
	}

	at := StartOfDay(effectiveFrom)
	change := GoalChange{EffectiveFrom: at, Previous: previous, Goal: newGoal}
	if n := len(h.goalChanges); n > 0 && h.goalChanges[n-1].Day() == change.Day() {
		change.Previous = h.goalChanges[n-1].Previous
		h.goalChanges[n-1] = change
	} else {
		h.goalChanges = append(h.goalChanges, change)
	}
	h.goal.DailyGoal = &newGoal
	h.lastGoalAdjustment = &at
	h.Touch()

	h.AddDomainEvent(NewHabitGoalAdjusted(h, previous, newGoal, reason))
	return nil
}

// Archive marks the habit as archived.
func (h *Habit) Archive() {
	if !h.archived {
		h.archived = true
		h.Touch()
		h.AddDomainEvent(NewHabitArchived(h))
	}
}

// Unarchive restores an archived habit.
func (h *Habit) Unarchive() {
	if h.archived {
		h.archived = false
		h.Touch()
	}
}

// HabitSnapshot is the persisted state of a habit.
type HabitSnapshot struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	Icon               string
	Color              string
	Kind               Kind
	Goal               GoalSettings
	LastGoalAdjustment *time.Time
	GoalChanges        []GoalChange
	RestDays           WeekdaySet
	Archived           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Completions        []*Completion
}

// Snapshot exports the habit's state for storage adapters.
func (h *Habit) Snapshot() HabitSnapshot {
	var last *time.Time
	if h.lastGoalAdjustment != nil {
		v := *h.lastGoalAdjustment
		last = &v
	}
	return HabitSnapshot{
		ID:                 h.ID(),
		UserID:             h.userID,
		Name:               h.name,
		Icon:               h.icon,
		Color:              h.color,
		Kind:               h.kind,
		Goal:               h.goal.clone(),
		LastGoalAdjustment: last,
		GoalChanges:        h.GoalChanges(),
		RestDays:           h.restDays,
		Archived:           h.archived,
		CreatedAt:          h.CreatedAt(),
		UpdatedAt:          h.UpdatedAt(),
		Completions:        h.completions,
	}
}

// RehydrateHabit recreates a habit from persisted state without generating events.
func RehydrateHabit(s HabitSnapshot) *Habit {
	entity := sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt)

	completions := s.Completions
	if completions == nil {
		completions = make([]*Completion, 0)
	}

	var last *time.Time
	if s.LastGoalAdjustment != nil {
		v := *s.LastGoalAdjustment
		last = &v
	}

	var changes []GoalChange
	if len(s.GoalChanges) > 0 {
		changes = append(changes, s.GoalChanges...)
		sort.SliceStable(changes, func(i, j int) bool { return changes[i].EffectiveFrom.Before(changes[j].EffectiveFrom) })
	}

	return &Habit{
		BaseAggregateRoot:  sharedDomain.NewBaseAggregateRoot(entity),
		userID:             s.UserID,
		name:               s.Name,
		icon:               s.Icon,
		color:              s.Color,
		kind:               s.Kind,
		goal:               s.Goal.clone(),
		lastGoalAdjustment: last,
		goalChanges:        changes,
		restDays:           s.RestDays,
		archived:           s.Archived,
		completions:        completions,
	}
}
