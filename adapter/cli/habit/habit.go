package habit

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/spf13/cobra"
)

// Cmd is the habit command group
var Cmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage habits",
	Long:  `Create, list, log completions, and follow the progress of your recurring habits.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(logCmd)
	Cmd.AddCommand(archiveCmd)
	Cmd.AddCommand(progressCmd)
	Cmd.AddCommand(exportCmd)
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func formatGoal(goal *float64, unit string) string {
	if goal == nil {
		return "done / not done"
	}
	if unit == "" {
		return formatNumber(*goal)
	}
	return formatNumber(*goal) + " " + unit
}

func printHabit(w io.Writer, h queries.HabitDTO) {
	status := "[ ]"
	if h.CompletedToday {
		status = "[x]"
	}

	streak := ""
	if h.CurrentStreak > 0 {
		streak = fmt.Sprintf(" | streak: %d", h.CurrentStreak)
		if h.LongestStreak > h.CurrentStreak {
			streak += fmt.Sprintf(" (best: %d)", h.LongestStreak)
		}
	} else if h.LongestStreak > 0 {
		streak = fmt.Sprintf(" | best: %d (broken)", h.LongestStreak)
	}

	archived := ""
	if h.IsArchived {
		archived = " [archived]"
	}

	fmt.Fprintf(w, "%s %s (%s)%s%s\n", status, h.Name, formatGoal(h.EffectiveGoal, h.Unit), streak, archived)
	fmt.Fprintf(w, "    ID: %s | rate: %.0f%% | today: %.0f%%\n", h.ID, h.CompletionRate*100, h.TodayProgress*100)
}
