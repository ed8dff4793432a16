package habit

import (
	"fmt"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [habit-id]",
	Short: "Archive a habit",
	Long: `Archive a habit to stop tracking it without deleting its history.

Examples:
  habitpulse habit archive abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit archiving")
		if err != nil {
			return err
		}

		habitID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid habit ID: %w", err)
		}

		archiveCmd := commands.ArchiveHabitCommand{
			HabitID: habitID,
			UserID:  app.CurrentUserID,
		}
		if err := app.ArchiveHabitHandler.Handle(cmd.Context(), archiveCmd); err != nil {
			return fmt.Errorf("failed to archive habit: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Habit archived successfully.")
		return nil
	},
}
