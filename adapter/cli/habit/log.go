package habit

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	logValue float64
	logDate  string
	logAuto  bool
)

var logCmd = &cobra.Command{
	Use:   "log [habit-id]",
	Short: "Log a habit completion",
	Long: `Record activity for a day. Logging the same day again replaces the entry.

Examples:
  habitpulse habit log abc123
  habitpulse habit log abc123 --value 6500
  habitpulse habit log abc123 --date 2026-03-07`,
	Aliases: []string{"done", "complete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit logging")
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}
		date, err := domain.ParseDate(logDate, time.Local)
		if err != nil {
			return err
		}

		logCmd := commands.LogCompletionCommand{
			HabitID:    habitID,
			UserID:     app.CurrentUserID,
			Date:       date,
			AutoSynced: logAuto,
		}
		if cmd.Flags().Changed("value") {
			logCmd.Value = &logValue
		}

		result, err := app.LogCompletionHandler.Handle(cmd.Context(), logCmd)
		if err != nil {
			return fmt.Errorf("failed to log completion: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd.OutOrStdout(), result)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged %s\n", result.Day)
		if result.Completed {
			fmt.Fprintln(out, "  Goal met")
		} else {
			fmt.Fprintf(out, "  Progress: %.0f%%\n", result.Progress*100)
		}
		fmt.Fprintf(out, "  Streak: %d\n", result.CurrentStreak)
		return nil
	},
}

func init() {
	logCmd.Flags().Float64Var(&logValue, "value", 0, "amount done, for habits with a goal")
	logCmd.Flags().StringVar(&logDate, "date", "", "day to log (YYYY-MM-DD, default today)")
	logCmd.Flags().BoolVar(&logAuto, "auto", false, "mark the entry as synced from a data provider")
}
