package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common habit workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}

	srv.Prompt("habit_setup").
		Description("Design a new habit with a goal that starts small and grows.").
		Argument("habit_name", "Name of the habit you want to build", true).
		Argument("target", "Where you want to end up, e.g. 10000 steps or 30 minutes", false).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return habitSetupPrompt(args), nil
		})

	srv.Prompt("weekly_review").
		Description("Review the past week of habits and decide what to adjust.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Weekly Habit Review", `Let's review my habits for the past week. Please:

1. Read habitpulse://habits/active for streaks and completion rates
2. Read habitpulse://insights/today for patterns, trends and correlations
3. Use habit.progress on any habit whose streak broke this week

Help me answer:

**What worked:**
- Which habits kept their streak?
- Which milestones did I reach?

**What slipped:**
- Which habits were missed, and on which weekdays?
- Did any habit drop week over week?

**Adjustments:**
- Should a goal be lowered, raised or given rest days?
- Are there habits that go well together that I should pair?

Finish with one concrete change for next week. If a goal should move, run goals.apply.`), nil
		})

	return nil
}

func habitSetupPrompt(args map[string]string) *mcp.PromptResult {
	name := args["habit_name"]
	if name == "" {
		name = "[Please specify the habit you want to build]"
	}
	target := args["target"]
	if target == "" {
		target = "done / not done each day"
	}

	return userPrompt("Habit Setup Assistant", fmt.Sprintf(`Help me set up a new habit:

**Habit:** %s
**Target:** %s

1. Review my existing habits using habitpulse://habits/active

Then help me choose:
- binary (done / not done) or a daily goal with a unit
- a fixed goal, a ramp-up that starts low and rises every few days, or an adaptive goal that follows my recent performance
- rest days that should not break my streak

Once I confirm, create it with habit.create.`, name, target))
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
