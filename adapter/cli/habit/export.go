package habit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

const propXHabitPulse = "X-HABITPULSE-HABIT"

var (
	exportFormat   string
	exportOutput   string
	exportDays     int
	exportDate     string
	exportArchived bool
)

// exportedHabit is one habit and its day-by-day history.
type exportedHabit struct {
	Habit queries.HabitDTO `json:"habit"`
	Days  []queries.DayDTO `json:"days"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export completion history",
	Long: `Export completed habit days as all-day iCalendar events for Google Calendar,
Outlook or Apple Calendar, or as JSON with every day of the window.

Examples:
  habitpulse habit export                      # last 30 days as ICS on stdout
  habitpulse habit export -o habits.ics --days 90
  habitpulse habit export --format json --archived`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("habit export")
		if err != nil {
			return err
		}
		if exportFormat != "ics" && exportFormat != "ical" && exportFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: ics, json)", exportFormat)
		}
		asOf, err := domain.ParseDate(exportDate, time.Local)
		if err != nil {
			return err
		}

		habits, err := collectHistory(cmd.Context(), app, asOf)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		switch exportFormat {
		case "ics", "ical":
			if err := writeICS(&buf, habits, time.Now()); err != nil {
				return fmt.Errorf("failed to encode calendar: %w", err)
			}
		default:
			if err := cli.PrintJSON(&buf, habits); err != nil {
				return err
			}
		}

		if exportOutput == "" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		path, err := security.WriteFile(exportOutput, buf.Bytes(), 0o644)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d habits to %s\n", len(habits), path)
		return nil
	},
}

func collectHistory(ctx context.Context, app *cli.App, asOf time.Time) ([]exportedHabit, error) {
	habits, err := app.ListHabitsHandler.Handle(ctx, queries.ListHabitsQuery{
		UserID:          app.CurrentUserID,
		IncludeArchived: exportArchived,
		AsOf:            asOf,
		SortBy:          "name",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	out := make([]exportedHabit, 0, len(habits))
	for _, h := range habits {
		progress, err := app.GetProgressHandler.Handle(ctx, queries.GetProgressQuery{
			HabitID:    h.ID,
			UserID:     app.CurrentUserID,
			AsOf:       asOf,
			RecentDays: exportDays,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s: %w", h.Name, err)
		}
		out = append(out, exportedHabit{Habit: progress.Habit, Days: progress.Recent})
	}
	return out, nil
}

// writeICS encodes one all-day event per completed day.
func writeICS(w io.Writer, habits []exportedHabit, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//HabitPulse//Habit Export//EN")
	cal.Props.SetText("CALSCALE", "GREGORIAN")

	for _, h := range habits {
		for _, day := range h.Days {
			if !day.Completed {
				continue
			}
			cal.Children = append(cal.Children, completionEvent(h.Habit, day, stamp).Component)
		}
	}
	return ical.NewEncoder(w).Encode(cal)
}

func completionEvent(h queries.HabitDTO, day queries.DayDTO, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@habitpulse", h.ID, day.Date))
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props[ical.PropDateTimeStart] = []ical.Prop{*dateProp(ical.PropDateTimeStart, day.Date)}
	event.Props.SetText(ical.PropSummary, eventSummary(h))
	event.Props.SetText(ical.PropDescription, eventDescription(h, day))
	event.Props.SetText("TRANSP", "TRANSPARENT")

	habitProp := ical.NewProp(propXHabitPulse)
	habitProp.Value = h.ID.String()
	event.Props[propXHabitPulse] = []ical.Prop{*habitProp}
	return event
}

// dateProp builds a DATE-valued property from a YYYY-MM-DD day.
func dateProp(name, day string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Params = ical.Params{"VALUE": []string{"DATE"}}
	if t, err := time.Parse(time.DateOnly, day); err == nil {
		prop.Value = t.Format("20060102")
	}
	return prop
}

func eventSummary(h queries.HabitDTO) string {
	if h.Icon != "" {
		return h.Icon + " " + h.Name
	}
	return h.Name
}

func eventDescription(h queries.HabitDTO, day queries.DayDTO) string {
	if day.Value == nil || day.Goal == nil {
		return "Done"
	}
	desc := fmt.Sprintf("%s of %s", formatNumber(*day.Value), formatNumber(*day.Goal))
	if h.Unit != "" {
		desc += " " + h.Unit
	}
	return desc
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "ics", "export format (ics, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().IntVarP(&exportDays, "days", "d", 30, "number of days to export")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "last day to export (YYYY-MM-DD, default today)")
	exportCmd.Flags().BoolVar(&exportArchived, "archived", false, "include archived habits")
}
