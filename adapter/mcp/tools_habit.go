package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"
)

type habitCreateInput struct {
	Name         string   `json:"name" jsonschema:"required"`
	Kind         string   `json:"kind,omitempty"`
	DailyGoal    *float64 `json:"daily_goal,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	Progression  string   `json:"progression,omitempty"`
	InitialGoal  *float64 `json:"initial_goal,omitempty"`
	Increment    *float64 `json:"goal_increment,omitempty"`
	IntervalDays *int     `json:"goal_increment_interval_days,omitempty"`
	RestDays     []string `json:"rest_days,omitempty"`
	Icon         string   `json:"icon,omitempty"`
	Color        string   `json:"color,omitempty"`
}

type habitListInput struct {
	IncludeArchived bool   `json:"include_archived,omitempty"`
	HasStreak       bool   `json:"has_streak,omitempty"`
	BrokenStreak    bool   `json:"broken_streak,omitempty"`
	SortBy          string `json:"sort_by,omitempty"`
	SortOrder       string `json:"sort_order,omitempty"`
	Date            string `json:"date,omitempty"`
}

type habitLogInput struct {
	HabitID    string   `json:"habit_id" jsonschema:"required"`
	Value      *float64 `json:"value,omitempty"`
	Date       string   `json:"date,omitempty"`
	AutoSynced bool     `json:"auto_synced,omitempty"`
}

type habitIDInput struct {
	HabitID string `json:"habit_id" jsonschema:"required"`
}

type habitProgressInput struct {
	HabitID string `json:"habit_id" jsonschema:"required"`
	Date    string `json:"date,omitempty"`
	Days    int    `json:"days,omitempty"`
}

type habitArchiveResult struct {
	HabitID  uuid.UUID `json:"habit_id"`
	Archived bool      `json:"archived"`
}

func registerHabitTools(srv *mcp.Server, t toolset) error {
	srv.Tool("habit.create").
		Description("Create a habit. Omit daily_goal for a done / not done habit; ramp_up needs goal_increment and goal_increment_interval_days").
		Handler(t.habitCreate)

	srv.Tool("habit.list").
		Description("List habits with current streak, longest streak, completion rate and today's progress").
		Handler(t.habitList)

	srv.Tool("habit.log").
		Description("Log activity for a day (default today); logging the same day again replaces the entry").
		Handler(t.habitLog)

	srv.Tool("habit.archive").
		Description("Archive a habit").
		Handler(t.habitArchive)

	srv.Tool("habit.progress").
		Description("Show a habit's metrics, the goal in force and its recent day-by-day history").
		Handler(t.habitProgress)

	return nil
}

func (t toolset) habitCreate(ctx context.Context, input habitCreateInput) (*commands.CreateHabitResult, error) {
	if t.app.CreateHabitHandler == nil {
		return nil, errors.New("habit creation requires database connection")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("name is required")
	}
	restDays, err := parseWeekdays(input.RestDays)
	if err != nil {
		return nil, err
	}

	return t.app.CreateHabitHandler.Handle(ctx, commands.CreateHabitCommand{
		UserID:       t.app.CurrentUserID,
		Name:         input.Name,
		Icon:         input.Icon,
		Color:        input.Color,
		Kind:         input.Kind,
		DailyGoal:    input.DailyGoal,
		Unit:         input.Unit,
		Progression:  input.Progression,
		InitialGoal:  input.InitialGoal,
		Increment:    input.Increment,
		IntervalDays: input.IntervalDays,
		RestDays:     restDays,
		CreatedAt:    time.Now(),
	})
}

func (t toolset) habitList(ctx context.Context, input habitListInput) ([]queries.HabitDTO, error) {
	if t.app.ListHabitsHandler == nil {
		return nil, errors.New("habit listing requires database connection")
	}
	asOf, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	return t.app.ListHabitsHandler.Handle(ctx, queries.ListHabitsQuery{
		UserID:          t.app.CurrentUserID,
		IncludeArchived: input.IncludeArchived,
		AsOf:            asOf,
		HasStreak:       input.HasStreak,
		BrokenStreak:    input.BrokenStreak,
		SortBy:          input.SortBy,
		SortOrder:       input.SortOrder,
	})
}

func (t toolset) habitLog(ctx context.Context, input habitLogInput) (*commands.LogCompletionResult, error) {
	if t.app.LogCompletionHandler == nil {
		return nil, errors.New("habit logging requires database connection")
	}
	habitID, err := parseUUID(input.HabitID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}

	return t.app.LogCompletionHandler.Handle(ctx, commands.LogCompletionCommand{
		HabitID:    habitID,
		UserID:     t.app.CurrentUserID,
		Date:       date,
		Value:      input.Value,
		AutoSynced: input.AutoSynced,
	})
}

func (t toolset) habitArchive(ctx context.Context, input habitIDInput) (*habitArchiveResult, error) {
	if t.app.ArchiveHabitHandler == nil {
		return nil, errors.New("habit archive requires database connection")
	}
	habitID, err := parseUUID(input.HabitID)
	if err != nil {
		return nil, err
	}

	if err := t.app.ArchiveHabitHandler.Handle(ctx, commands.ArchiveHabitCommand{
		HabitID: habitID,
		UserID:  t.app.CurrentUserID,
	}); err != nil {
		return nil, err
	}
	return &habitArchiveResult{HabitID: habitID, Archived: true}, nil
}

func (t toolset) habitProgress(ctx context.Context, input habitProgressInput) (*queries.ProgressDTO, error) {
	if t.app.GetProgressHandler == nil {
		return nil, errors.New("habit progress requires database connection")
	}
	habitID, err := parseUUID(input.HabitID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}

	return t.app.GetProgressHandler.Handle(ctx, queries.GetProgressQuery{
		HabitID:    habitID,
		UserID:     t.app.CurrentUserID,
		AsOf:       asOf,
		RecentDays: input.Days,
	})
}
