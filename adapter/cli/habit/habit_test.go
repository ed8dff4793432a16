package habit

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	internalApp "github.com/felixgeelhaar/habitpulse/internal/app"
	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUserID is a fixed user ID for tests
var testUserID = uuid.MustParse(config.DefaultUserID)

// setupLocalModeTestApp creates a test application with SQLite for integration tests.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                    "test",
		DatabaseDriver:            "sqlite",
		SQLitePath:                filepath.Join(t.TempDir(), "test.db"),
		UserID:                    testUserID,
		InsightsCacheTTL:          time.Minute,
		AdaptiveWindowDays:        7,
		AdaptiveIncreaseThreshold: 5,
		AdaptiveDecreaseThreshold: 2,
		AdaptiveStepRatio:         0.1,
	}

	container, err := internalApp.NewContainer(context.Background(), cfg, observability.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(container)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	resetFlags()
	return app
}

func resetFlags() {
	for _, c := range []*cobra.Command{createCmd, listCmd, logCmd, archiveCmd, progressCmd, exportCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	cli.SetJSONOutput(false)
}

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.RunE(cmd, args))
	return out.String()
}

func createHabit(t *testing.T, app *cli.App, name string) uuid.UUID {
	t.Helper()
	run(t, createCmd, name)
	habits, err := app.ListHabitsHandler.Handle(context.Background(), habitQueries.ListHabitsQuery{UserID: app.CurrentUserID})
	require.NoError(t, err)
	for _, h := range habits {
		if h.Name == name {
			return h.ID
		}
	}
	t.Fatalf("habit %q not created", name)
	return uuid.Nil
}

func TestCreateCmd_BinaryHabit(t *testing.T) {
	app := setupLocalModeTestApp(t)

	out := run(t, createCmd, "Morning meditation")
	assert.Contains(t, out, "Created habit: Morning meditation")
	assert.Contains(t, out, "Goal: done / not done")

	habits, err := app.ListHabitsHandler.Handle(context.Background(), habitQueries.ListHabitsQuery{UserID: testUserID})
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Nil(t, habits[0].DailyGoal)
	assert.Equal(t, "manual", habits[0].Kind)
}

func TestCreateCmd_RampUpHabit(t *testing.T) {
	app := setupLocalModeTestApp(t)

	require.NoError(t, createCmd.Flags().Set("kind", "steps"))
	require.NoError(t, createCmd.Flags().Set("goal", "5000"))
	require.NoError(t, createCmd.Flags().Set("unit", "steps"))
	require.NoError(t, createCmd.Flags().Set("progression", "ramp_up"))
	require.NoError(t, createCmd.Flags().Set("increment", "1000"))
	require.NoError(t, createCmd.Flags().Set("interval", "7"))
	require.NoError(t, createCmd.Flags().Set("rest-days", "sat,sun"))

	out := run(t, createCmd, "Walk")
	assert.Contains(t, out, "Goal: 5000 steps")
	assert.Contains(t, out, "Progression: ramp_up")

	habits, err := app.ListHabitsHandler.Handle(context.Background(), habitQueries.ListHabitsQuery{UserID: testUserID})
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "ramp_up", habits[0].Progression)
	assert.Equal(t, []string{"Sunday", "Saturday"}, habits[0].RestDays)
}

func TestCreateCmd_InvalidGoal(t *testing.T) {
	setupLocalModeTestApp(t)

	require.NoError(t, createCmd.Flags().Set("goal", "5000"))
	require.NoError(t, createCmd.Flags().Set("progression", "ramp_up"))

	createCmd.SetContext(context.Background())
	err := createCmd.RunE(createCmd, []string{"Walk"})
	assert.ErrorContains(t, err, "invalid goal configuration")
}

func TestCreateCmd_InvalidRestDay(t *testing.T) {
	setupLocalModeTestApp(t)

	require.NoError(t, createCmd.Flags().Set("rest-days", "someday"))
	createCmd.SetContext(context.Background())
	err := createCmd.RunE(createCmd, []string{"Walk"})
	assert.ErrorContains(t, err, "invalid weekday")
}

func TestLogAndProgressCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	habitID := createHabit(t, app, "Read")

	out := run(t, logCmd, habitID.String())
	assert.Contains(t, out, "Goal met")
	assert.Contains(t, out, "Streak: 1")

	out = run(t, progressCmd, habitID.String())
	assert.Contains(t, out, "Read")
	assert.Contains(t, out, "Current streak:  1")
	assert.Contains(t, out, "Goal:            Complete once a day.")
	assert.Contains(t, out, "[x] "+time.Now().Format(time.DateOnly))
}

func TestLogCmd_PartialValue(t *testing.T) {
	app := setupLocalModeTestApp(t)
	require.NoError(t, createCmd.Flags().Set("goal", "8"))
	require.NoError(t, createCmd.Flags().Set("unit", "glasses"))
	habitID := createHabit(t, app, "Water")

	require.NoError(t, logCmd.Flags().Set("value", "4"))
	out := run(t, logCmd, habitID.String())
	assert.Contains(t, out, "Progress: 50%")
	assert.Contains(t, out, "Streak: 0")
}

func TestLogCmd_InvalidID(t *testing.T) {
	setupLocalModeTestApp(t)

	logCmd.SetContext(context.Background())
	err := logCmd.RunE(logCmd, []string{"not-a-uuid"})
	assert.ErrorContains(t, err, "invalid habit ID")
}

func TestListCmd_JSON(t *testing.T) {
	app := setupLocalModeTestApp(t)
	createHabit(t, app, "Read")

	cli.SetJSONOutput(true)
	out := run(t, listCmd)
	assert.Contains(t, out, `"name": "Read"`)
	assert.Contains(t, out, `"current_streak": 0`)
}

func TestListCmd_Empty(t *testing.T) {
	setupLocalModeTestApp(t)

	out := run(t, listCmd)
	assert.Contains(t, out, "No habits found")
}

func TestArchiveCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	habitID := createHabit(t, app, "Read")

	out := run(t, archiveCmd, habitID.String())
	assert.Contains(t, out, "Habit archived successfully.")

	out = run(t, listCmd)
	assert.Contains(t, out, "No habits found")

	require.NoError(t, listCmd.Flags().Set("archived", "true"))
	out = run(t, listCmd)
	assert.Contains(t, out, "[archived]")
}

func TestCommands_WithoutApp(t *testing.T) {
	cli.SetApp(nil)
	resetFlags()

	createCmd.SetContext(context.Background())
	err := createCmd.RunE(createCmd, []string{"Read"})
	assert.ErrorContains(t, err, "requires a database connection")
}
