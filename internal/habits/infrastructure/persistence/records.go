// Package persistence stores habits, their completions and goal history in SQLite or PostgreSQL.
package persistence

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
)

// habitRow mirrors one row of the habits table in driver-neutral types.
type habitRow struct {
	ID                 string
	UserID             string
	Name               string
	Icon               string
	Color              string
	Kind               string
	DailyGoal          *float64
	Unit               string
	Progression        string
	InitialGoal        *float64
	Increment          *float64
	IntervalDays       *int64
	LastGoalAdjustment *time.Time
	RestDays           int64
	Archived           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// completionRow mirrors one row of the habit_completions table.
type completionRow struct {
	ID          string
	HabitID     string
	CompletedAt time.Time
	Value       *float64
	AutoSynced  bool
	RecordedAt  time.Time
}

// goalChangeRow mirrors one row of the habit_goal_changes table.
type goalChangeRow struct {
	HabitID       string
	EffectiveFrom time.Time
	Previous      float64
	Goal          float64
}

func toHabitRow(h *domain.Habit) habitRow {
	s := h.Snapshot()
	row := habitRow{
		ID:                 s.ID.String(),
		UserID:             s.UserID.String(),
		Name:               s.Name,
		Icon:               s.Icon,
		Color:              s.Color,
		Kind:               string(s.Kind),
		DailyGoal:          s.Goal.DailyGoal,
		Unit:               s.Goal.Unit,
		Progression:        string(s.Goal.Progression),
		InitialGoal:        s.Goal.InitialGoal,
		Increment:          s.Goal.Increment,
		LastGoalAdjustment: s.LastGoalAdjustment,
		RestDays:           int64(s.RestDays),
		Archived:           s.Archived,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.Goal.IntervalDays != nil {
		v := int64(*s.Goal.IntervalDays)
		row.IntervalDays = &v
	}
	return row
}

func toCompletionRow(c *domain.Completion) completionRow {
	return completionRow{
		ID:          c.ID().String(),
		HabitID:     c.HabitID().String(),
		CompletedAt: c.Date(),
		Value:       c.ValuePtr(),
		AutoSynced:  c.IsAutoSynced(),
		RecordedAt:  c.RecordedAt(),
	}
}

func toGoalChangeRows(h *domain.Habit) []goalChangeRow {
	changes := h.GoalChanges()
	rows := make([]goalChangeRow, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, goalChangeRow{
			HabitID:       h.ID().String(),
			EffectiveFrom: c.EffectiveFrom,
			Previous:      c.Previous,
			Goal:          c.Goal,
		})
	}
	return rows
}

func (r habitRow) toDomain(completions []*domain.Completion, changes []domain.GoalChange) (*domain.Habit, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse habit id: %w", err)
	}
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse habit user id: %w", err)
	}

	goal := domain.GoalSettings{
		DailyGoal:   r.DailyGoal,
		Unit:        r.Unit,
		Progression: domain.GoalProgression(r.Progression),
		InitialGoal: r.InitialGoal,
		Increment:   r.Increment,
	}
	if r.IntervalDays != nil {
		v := int(*r.IntervalDays)
		goal.IntervalDays = &v
	}

	return domain.RehydrateHabit(domain.HabitSnapshot{
		ID:                 id,
		UserID:             userID,
		Name:               r.Name,
		Icon:               r.Icon,
		Color:              r.Color,
		Kind:               domain.Kind(r.Kind),
		Goal:               goal,
		LastGoalAdjustment: r.LastGoalAdjustment,
		GoalChanges:        changes,
		RestDays:           domain.WeekdaySet(r.RestDays),
		Archived:           r.Archived,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Completions:        completions,
	}), nil
}

func (r completionRow) toDomain() (*domain.Completion, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse completion id: %w", err)
	}
	habitID, err := uuid.Parse(r.HabitID)
	if err != nil {
		return nil, fmt.Errorf("parse completion habit id: %w", err)
	}
	return domain.RehydrateCompletion(id, habitID, r.CompletedAt, r.Value, r.AutoSynced, r.RecordedAt), nil
}

// groupCompletions converts rows and indexes them by habit id.
func groupCompletions(rows []completionRow) (map[string][]*domain.Completion, error) {
	byHabit := make(map[string][]*domain.Completion)
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		byHabit[row.HabitID] = append(byHabit[row.HabitID], c)
	}
	return byHabit, nil
}

func groupGoalChanges(rows []goalChangeRow) map[string][]domain.GoalChange {
	byHabit := make(map[string][]domain.GoalChange)
	for _, row := range rows {
		byHabit[row.HabitID] = append(byHabit[row.HabitID], domain.GoalChange{
			EffectiveFrom: row.EffectiveFrom,
			Previous:      row.Previous,
			Goal:          row.Goal,
		})
	}
	return byHabit
}

func assemble(habits []habitRow, completions []completionRow, changes []goalChangeRow) ([]*domain.Habit, error) {
	byHabit, err := groupCompletions(completions)
	if err != nil {
		return nil, err
	}
	changesByHabit := groupGoalChanges(changes)
	result := make([]*domain.Habit, 0, len(habits))
	for _, row := range habits {
		h, err := row.toDomain(byHabit[row.ID], changesByHabit[row.ID])
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, nil
}

// inRange keeps completions with from <= date < to.
func inRange(completions []*domain.Completion, from, to time.Time) []*domain.Completion {
	result := make([]*domain.Completion, 0, len(completions))
	for _, c := range completions {
		if c.Date().Before(from) || !c.Date().Before(to) {
			continue
		}
		result = append(result, c)
	}
	return result
}
