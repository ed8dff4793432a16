package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	habitDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/insights/application/queries"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/spf13/cobra"
)

var (
	insightType  string
	insightLimit int
	refresh      bool
	insightDate  string
)

// Cmd shows the insight feed.
var Cmd = &cobra.Command{
	Use:   "insights",
	Short: "Show insights about your habits",
	Long: `Show streaks, milestones, weekday patterns, week-over-week changes,
habits that go together, and nudges for today.

Feeds are cached for the day and refreshed whenever a habit changes.

Examples:
  habitpulse insights
  habitpulse insights --type pattern
  habitpulse insights --limit 3 --refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("insights")
		if err != nil {
			return err
		}

		query := queries.GetInsightsQuery{
			UserID:  app.CurrentUserID,
			Refresh: refresh,
			Limit:   insightLimit,
		}
		if insightType != "" {
			query.Type = domain.Type(insightType)
			if !query.Type.IsValid() {
				return fmt.Errorf("unknown insight type %q", insightType)
			}
		}
		query.AsOf, err = habitDomain.ParseDate(insightDate, time.Local)
		if err != nil {
			return err
		}

		result, err := app.GetInsightsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to generate insights: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd.OutOrStdout(), result.Feed)
		}

		out := cmd.OutOrStdout()
		if len(result.Feed.Insights) == 0 {
			fmt.Fprintln(out, "No insights yet. Log a few days of habits first.")
			return nil
		}

		fmt.Fprintf(out, "Insights for %s (%d):\n", result.Feed.Day, len(result.Feed.Insights))
		fmt.Fprintln(out, strings.Repeat("-", 70))
		for _, in := range result.Feed.Insights {
			marker := " "
			if in.Actionable {
				marker = "!"
			}
			fmt.Fprintf(out, "%s [%s] %s\n", marker, in.Priority, in.Title)
			fmt.Fprintf(out, "    %s\n", in.Message)
			if cli.Verbose() && in.Detail != "" {
				fmt.Fprintf(out, "    %s\n", in.Detail)
			}
		}
		if cli.Verbose() && result.Cached {
			fmt.Fprintf(out, "(cached, generated %s)\n", result.Feed.GeneratedAt.Local().Format(time.Kitchen))
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&insightType, "type", "t", "", "only show one type (streak, pattern, milestone, improvement, correlation, motivation)")
	Cmd.Flags().IntVarP(&insightLimit, "limit", "n", 0, "show at most this many insights")
	Cmd.Flags().BoolVar(&refresh, "refresh", false, "regenerate instead of using the cached feed")
	Cmd.Flags().StringVar(&insightDate, "date", "", "generate as of this day (YYYY-MM-DD, default today)")
}
