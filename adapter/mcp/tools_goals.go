package mcp

import (
	"context"
	"errors"
	"sort"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/mcp-go"
)

type goalsApplyInput struct {
	HabitID string `json:"habit_id,omitempty"`
	Date    string `json:"date,omitempty"`
}

type goalAdjustmentDTO struct {
	HabitID       string  `json:"habit_id"`
	Progression   string  `json:"progression"`
	Changed       bool    `json:"changed"`
	PreviousGoal  float64 `json:"previous_goal"`
	NewGoal       float64 `json:"new_goal"`
	EffectiveFrom string  `json:"effective_from"`
	Reason        string  `json:"reason"`
}

type goalFailureDTO struct {
	HabitID string `json:"habit_id"`
	Error   string `json:"error"`
}

type goalsApplyResult struct {
	Adjustments []goalAdjustmentDTO `json:"adjustments"`
	Failed      []goalFailureDTO    `json:"failed,omitempty"`
	Changed     int                 `json:"changed"`
}

func registerGoalTools(srv *mcp.Server, t toolset) error {
	srv.Tool("goals.apply").
		Description("Apply ramp-up and adaptive goal progression to one habit or every active habit; running it twice on one day changes nothing").
		Handler(t.goalsApply)
	return nil
}

func (t toolset) goalsApply(ctx context.Context, input goalsApplyInput) (*goalsApplyResult, error) {
	if t.app.ApplyGoalProgressionHandler == nil {
		return nil, errors.New("goal progression requires database connection")
	}
	habitID, err := parseOptionalUUID(input.HabitID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}

	result, err := t.app.ApplyGoalProgressionHandler.Handle(ctx, commands.ApplyGoalProgressionCommand{
		UserID:  t.app.CurrentUserID,
		HabitID: habitID,
		AsOf:    asOf,
	})
	if err != nil {
		return nil, err
	}

	out := &goalsApplyResult{
		Adjustments: make([]goalAdjustmentDTO, 0, len(result.Adjustments)),
		Changed:     len(result.Changed()),
	}
	for _, adj := range result.Adjustments {
		out.Adjustments = append(out.Adjustments, goalAdjustmentDTO{
			HabitID:       adj.HabitID.String(),
			Progression:   string(adj.Progression),
			Changed:       adj.Changed,
			PreviousGoal:  adj.PreviousGoal,
			NewGoal:       adj.NewGoal,
			EffectiveFrom: adj.EffectiveFrom.Format("2006-01-02"),
			Reason:        adj.Reason,
		})
	}
	for id, err := range result.Failed {
		out.Failed = append(out.Failed, goalFailureDTO{HabitID: id.String(), Error: err.Error()})
	}
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].HabitID < out.Failed[j].HabitID })
	return out, nil
}
