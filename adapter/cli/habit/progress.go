package habit

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	progressDays int
	progressDate string
)

var progressCmd = &cobra.Command{
	Use:   "progress [habit-id]",
	Short: "Show a habit's progress",
	Long: `Show streaks, completion rate, the goal in force and the last days of history.

Examples:
  habitpulse habit progress abc123
  habitpulse habit progress abc123 --days 14`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit progress")
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}
		asOf, err := domain.ParseDate(progressDate, time.Local)
		if err != nil {
			return err
		}

		report, err := app.GetProgressHandler.Handle(cmd.Context(), queries.GetProgressQuery{
			HabitID:    habitID,
			UserID:     app.CurrentUserID,
			AsOf:       asOf,
			RecentDays: progressDays,
		})
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd.OutOrStdout(), report)
		}

		out := cmd.OutOrStdout()
		h := report.Habit
		fmt.Fprintln(out, h.Name)
		fmt.Fprintln(out, strings.Repeat("-", 40))
		fmt.Fprintf(out, "Current streak:  %d\n", h.CurrentStreak)
		fmt.Fprintf(out, "Longest streak:  %d\n", h.LongestStreak)
		fmt.Fprintf(out, "Completion rate: %.0f%% (%d days)\n", h.CompletionRate*100, h.CompletedDays)
		fmt.Fprintf(out, "Goal:            %s\n", report.Goal.Message)
		fmt.Fprintln(out)
		for _, day := range report.Recent {
			mark := "[ ]"
			switch {
			case day.Completed:
				mark = "[x]"
			case day.RestDay:
				mark = "[-]"
			}
			line := fmt.Sprintf("%s %s", mark, day.Date)
			if day.Goal != nil {
				value := 0.0
				if day.Value != nil {
					value = *day.Value
				}
				line += fmt.Sprintf("  %s / %s", formatNumber(value), formatGoal(day.Goal, h.Unit))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().IntVarP(&progressDays, "days", "d", queries.DefaultRecentDays, "days of history to show")
	progressCmd.Flags().StringVar(&progressDate, "date", "", "report as of this day (YYYY-MM-DD, default today)")
}
