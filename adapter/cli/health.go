package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database, cache and event broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp("health")
		if err != nil {
			return err
		}

		results := app.Health.Check(cmd.Context())
		overall := observability.Overall(results)
		if JSONOutput() {
			if err := PrintJSON(cmd.OutOrStdout(), map[string]any{
				"status": overall,
				"checks": results,
			}); err != nil {
				return err
			}
		} else {
			out := cmd.OutOrStdout()
			for _, r := range results {
				line := fmt.Sprintf("%-10s %-9s %s", r.Name, r.Status, r.Duration.Round(time.Microsecond))
				if r.Message != "" {
					line += "  " + r.Message
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "overall: %s\n", overall)
		}

		if overall == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
