package habit

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/spf13/cobra"
)

var (
	showArchived   bool
	hasStreak      bool
	brokenStreak   bool
	habitSortBy    string
	habitSortOrder string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	Long: `List habits with their streaks, completion rate and today's progress.

Filter Options:
  --has-streak    Show only habits with active streaks
  --broken-streak Show only habits with broken streaks

Sort Options:
  --sort          Sort by field (streak, longest_streak, rate, name, created_at)
  --order         Sort order (asc, desc)

Examples:
  habitpulse habit list                 # All active habits
  habitpulse habit list --has-streak    # Habits with active streaks
  habitpulse habit list --sort streak   # Sort by current streak`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit listing")
		if err != nil {
			return err
		}

		query := queries.ListHabitsQuery{
			UserID:          app.CurrentUserID,
			IncludeArchived: showArchived,
			HasStreak:       hasStreak,
			BrokenStreak:    brokenStreak,
			SortBy:          habitSortBy,
			SortOrder:       habitSortOrder,
		}

		habits, err := app.ListHabitsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list habits: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd.OutOrStdout(), habits)
		}

		out := cmd.OutOrStdout()
		if len(habits) == 0 {
			switch {
			case hasStreak:
				fmt.Fprintln(out, "No habits with active streaks.")
			case brokenStreak:
				fmt.Fprintln(out, "No habits with broken streaks.")
			default:
				fmt.Fprintln(out, "No habits found. Create one with: habitpulse habit create \"Habit name\"")
			}
			return nil
		}

		fmt.Fprintf(out, "Habits (%d):\n", len(habits))
		fmt.Fprintln(out, strings.Repeat("-", 70))
		for _, h := range habits {
			printHabit(out, h)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&showArchived, "archived", "a", false, "include archived habits")
	listCmd.Flags().BoolVar(&hasStreak, "has-streak", false, "show only habits with active streaks")
	listCmd.Flags().BoolVar(&brokenStreak, "broken-streak", false, "show only habits with broken streaks")
	listCmd.Flags().StringVar(&habitSortBy, "sort", "", "sort by field (streak, longest_streak, rate, name, created_at)")
	listCmd.Flags().StringVar(&habitSortOrder, "order", "", "sort order (asc, desc)")
}
