package habit

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/spf13/cobra"
)

var (
	kind         string
	goal         float64
	unit         string
	progression  string
	initialGoal  float64
	increment    float64
	intervalDays int
	restDays     string
	icon         string
	color        string
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new habit",
	Long: `Create a new recurring habit to track.

Without --goal the habit is binary: a day counts once anything is logged.
With --goal a day counts when the logged value reaches the goal in force.

Progressions:
  fixed     - The goal never changes
  ramp_up   - The goal grows by --increment every --interval days
  adaptive  - The goal follows how often you met it recently

Examples:
  habitpulse habit create "Read"
  habitpulse habit create "Walk" --kind steps --goal 5000 --unit steps --progression ramp_up --increment 1000 --interval 7
  habitpulse habit create "Water" --goal 8 --unit glasses --progression adaptive --rest-days sat,sun`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit creation")
		if err != nil {
			return err
		}

		days, err := domain.ParseWeekdays(restDays)
		if err != nil {
			return err
		}

		createCmd := commands.CreateHabitCommand{
			UserID:      app.CurrentUserID,
			Name:        args[0],
			Icon:        icon,
			Color:       color,
			Kind:        kind,
			Unit:        unit,
			Progression: progression,
			RestDays:    days,
			CreatedAt:   time.Now(),
		}
		flags := cmd.Flags()
		if flags.Changed("goal") {
			createCmd.DailyGoal = &goal
		}
		if flags.Changed("initial") {
			createCmd.InitialGoal = &initialGoal
		}
		if flags.Changed("increment") {
			createCmd.Increment = &increment
		}
		if flags.Changed("interval") {
			createCmd.IntervalDays = &intervalDays
		}

		result, err := app.CreateHabitHandler.Handle(cmd.Context(), createCmd)
		if err != nil {
			return fmt.Errorf("failed to create habit: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd.OutOrStdout(), map[string]any{"habit_id": result.HabitID})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created habit: %s\n", args[0])
		fmt.Fprintf(out, "  ID: %s\n", result.HabitID)
		fmt.Fprintf(out, "  Goal: %s\n", formatGoal(createCmd.DailyGoal, unit))
		if createCmd.DailyGoal != nil && progression != "" {
			fmt.Fprintf(out, "  Progression: %s\n", progression)
		}
		if len(days) > 0 {
			fmt.Fprintf(out, "  Rest days: %s\n", restDays)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&kind, "kind", "k", "manual", "habit kind (manual, steps, water, mindfulness)")
	createCmd.Flags().Float64VarP(&goal, "goal", "g", 0, "daily goal; omit for a done / not done habit")
	createCmd.Flags().StringVarP(&unit, "unit", "u", "", "unit of the goal, e.g. steps or minutes")
	createCmd.Flags().StringVarP(&progression, "progression", "p", "fixed", "goal progression (fixed, ramp_up, adaptive)")
	createCmd.Flags().Float64Var(&initialGoal, "initial", 0, "starting goal for ramp_up and adaptive (defaults to --goal)")
	createCmd.Flags().Float64Var(&increment, "increment", 0, "goal step for ramp_up and adaptive")
	createCmd.Flags().IntVar(&intervalDays, "interval", 0, "days between ramp_up increases")
	createCmd.Flags().StringVar(&restDays, "rest-days", "", "comma-separated weekdays that never break a streak, e.g. sat,sun")
	createCmd.Flags().StringVar(&icon, "icon", "", "icon reference")
	createCmd.Flags().StringVar(&color, "color", "", "color reference")
}
