package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	insightsQueries "github.com/felixgeelhaar/habitpulse/internal/insights/application/queries"
	insightsDomain "github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/spf13/cobra"
)

const dashboardInsights = 3

var dashboardCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's dashboard",
	Long: `Display a combined view of your day:
- every active habit with today's progress and streak
- the top insights from today's feed

Examples:
  habitpulse today`,
	Aliases: []string{"dashboard", "dash", "now"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp("dashboard")
		if err != nil {
			return err
		}

		now := time.Now()
		habits, err := app.ListHabitsHandler.Handle(cmd.Context(), habitQueries.ListHabitsQuery{
			UserID:    app.CurrentUserID,
			AsOf:      now,
			SortBy:    "name",
			SortOrder: "asc",
		})
		if err != nil {
			return fmt.Errorf("failed to list habits: %w", err)
		}

		insights, err := app.GetInsightsHandler.Handle(cmd.Context(), insightsQueries.GetInsightsQuery{
			UserID: app.CurrentUserID,
			AsOf:   now,
			Limit:  dashboardInsights,
		})
		if err != nil {
			currentLogger().Warn("insights unavailable", "error", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n  %s\n", now.Format("Monday, January 2, 2006"))
		fmt.Fprintln(out, strings.Repeat("=", 60))
		showHabits(out, habits)
		if insights != nil {
			showInsights(out, insights.Feed.Insights)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func showHabits(out io.Writer, habits []habitQueries.HabitDTO) {
	fmt.Fprintln(out, "\n  HABITS")
	fmt.Fprintln(out, strings.Repeat("-", 60))

	if len(habits) == 0 {
		fmt.Fprintln(out, "    No habits yet. Use 'habitpulse habit create' to add one.")
		return
	}

	completed := 0
	for _, h := range habits {
		status := "o"
		if h.CompletedToday {
			status = "*"
			completed++
		}
		streak := ""
		if h.CurrentStreak > 0 {
			streak = fmt.Sprintf("  streak %d", h.CurrentStreak)
		}
		fmt.Fprintf(out, "    %s %-24s %s%s\n", status, h.Name, progressBar(h.TodayProgress, 10), streak)
	}
	fmt.Fprintf(out, "\n    Progress: %d/%d completed\n", completed, len(habits))
}

func showInsights(out io.Writer, insights []insightsDomain.Insight) {
	if len(insights) == 0 {
		return
	}
	fmt.Fprintln(out, "\n  INSIGHTS")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, in := range insights {
		fmt.Fprintf(out, "    [%s] %s\n", in.Priority, in.Title)
	}
}

// progressBar renders a fraction as a fixed-width bar; values above 1 fill it.
func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), fraction*100)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
