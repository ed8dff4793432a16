package goals

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var applyDate string

// Cmd is the goals command group
var Cmd = &cobra.Command{
	Use:   "goals",
	Short: "Move habit goals forward",
}

var applyCmd = &cobra.Command{
	Use:   "apply [habit-id]",
	Short: "Apply ramp-up and adaptive goal progression",
	Long: `Raise ramp-up goals whose interval has passed and let adaptive goals follow
recent performance. Without a habit ID every active habit with a moving goal
is processed. Running it twice on the same day changes nothing.

Examples:
  habitpulse goals apply
  habitpulse goals apply abc123 --date 2026-03-09`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("goal progression")
		if err != nil {
			return err
		}

		asOf, err := domain.ParseDate(applyDate, time.Local)
		if err != nil {
			return err
		}
		applyCmd := commands.ApplyGoalProgressionCommand{
			UserID: app.CurrentUserID,
			AsOf:   asOf,
		}
		if len(args) == 1 {
			habitID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid habit ID: %w", err)
			}
			applyCmd.HabitID = &habitID
		}

		result, err := app.ApplyGoalProgressionHandler.Handle(cmd.Context(), applyCmd)
		if err != nil {
			return fmt.Errorf("failed to apply goal progression: %w", err)
		}

		if cli.JSONOutput() {
			failed := make(map[string]string, len(result.Failed))
			for id, err := range result.Failed {
				failed[id.String()] = err.Error()
			}
			return cli.PrintJSON(cmd.OutOrStdout(), map[string]any{
				"adjustments": result.Adjustments,
				"failed":      failed,
			})
		}

		out := cmd.OutOrStdout()
		if len(result.Adjustments) == 0 && len(result.Failed) == 0 {
			fmt.Fprintln(out, "No habits with ramp-up or adaptive goals.")
			return nil
		}
		for _, adj := range result.Adjustments {
			if adj.Changed {
				fmt.Fprintf(out, "%s: %s -> %s (%s)\n", adj.HabitID, number(adj.PreviousGoal), number(adj.NewGoal), adj.Reason)
			} else {
				fmt.Fprintf(out, "%s: unchanged at %s (%s)\n", adj.HabitID, number(adj.PreviousGoal), adj.Reason)
			}
		}

		ids := make([]uuid.UUID, 0, len(result.Failed))
		for id := range result.Failed {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for _, id := range ids {
			fmt.Fprintf(out, "%s: skipped: %v\n", id, result.Failed[id])
		}
		fmt.Fprintf(out, "%d of %d goals changed\n", len(result.Changed()), len(result.Adjustments))
		return nil
	},
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	applyCmd.Flags().StringVar(&applyDate, "date", "", "apply as of this day (YYYY-MM-DD, default today)")
	Cmd.AddCommand(applyCmd)
}
