package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	habitCommands "github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done [id-prefix]",
	Short: "Mark a habit as done for today",
	Long: `Quickly complete a habit using just the first few characters of its ID.
Habits with a daily goal are logged at today's goal.

If several habits match, you'll be shown the options. Without an argument the
habits still open today are listed.

Examples:
  habitpulse done abc1
  habitpulse done`,
	Aliases: []string{"complete", "x"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp("done")
		if err != nil {
			return err
		}

		open, err := openHabits(cmd.Context(), app)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			showOpenHabits(out, open)
			return nil
		}
		return completeByPrefix(cmd.Context(), out, app, open, strings.ToLower(args[0]))
	},
}

func openHabits(ctx context.Context, app *App) ([]habitQueries.HabitDTO, error) {
	habits, err := app.ListHabitsHandler.Handle(ctx, habitQueries.ListHabitsQuery{UserID: app.CurrentUserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	open := habits[:0]
	for _, h := range habits {
		if !h.CompletedToday {
			open = append(open, h)
		}
	}
	return open, nil
}

func showOpenHabits(out io.Writer, habits []habitQueries.HabitDTO) {
	if len(habits) == 0 {
		fmt.Fprintln(out, "Every habit is done for today.")
		return
	}
	fmt.Fprintln(out, "Open today:")
	for _, h := range habits {
		fmt.Fprintf(out, "  [%s] %s\n", h.ID.String()[:8], h.Name)
	}
	fmt.Fprintln(out, "\nUsage: habitpulse done <id-prefix>")
}

func completeByPrefix(ctx context.Context, out io.Writer, app *App, habits []habitQueries.HabitDTO, prefix string) error {
	var matches []habitQueries.HabitDTO
	for _, h := range habits {
		if strings.HasPrefix(h.ID.String(), prefix) {
			matches = append(matches, h)
		}
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("no open habit matches %q", prefix)
	case 1:
	default:
		fmt.Fprintln(out, "Multiple habits match. Be more specific:")
		for _, h := range matches {
			fmt.Fprintf(out, "  [%s] %s\n", h.ID.String()[:8], h.Name)
		}
		return nil
	}

	habit := matches[0]
	result, err := app.LogCompletionHandler.Handle(ctx, habitCommands.LogCompletionCommand{
		HabitID: habit.ID,
		UserID:  app.CurrentUserID,
		Value:   habit.EffectiveGoal,
	})
	if err != nil {
		return fmt.Errorf("failed to log habit completion: %w", err)
	}

	streak := " (new streak started!)"
	if result.CurrentStreak > 1 {
		streak = fmt.Sprintf(" (streak: %d)", result.CurrentStreak)
	}
	fmt.Fprintf(out, "Habit completed: %s%s\n", habit.Name, streak)
	return nil
}

func init() {
	rootCmd.AddCommand(doneCmd)
}
