package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	internalApp "github.com/felixgeelhaar/habitpulse/internal/app"
	habitCommands "github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                    "test",
		DatabaseDriver:            "sqlite",
		SQLitePath:                filepath.Join(t.TempDir(), "test.db"),
		UserID:                    uuid.MustParse(config.DefaultUserID),
		InsightsCacheTTL:          time.Minute,
		AdaptiveWindowDays:        7,
		AdaptiveIncreaseThreshold: 5,
		AdaptiveDecreaseThreshold: 2,
		AdaptiveStepRatio:         0.1,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, observability.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	a := NewApp(container)
	SetApp(a)
	t.Cleanup(func() { SetApp(nil) })
	SetJSONOutput(false)
	return a
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func createHabit(t *testing.T, a *App, name string, goal *float64) uuid.UUID {
	t.Helper()
	cmd := habitCommands.CreateHabitCommand{
		UserID:    a.CurrentUserID,
		Name:      name,
		DailyGoal: goal,
	}
	if goal != nil {
		cmd.Unit = "glasses"
	}
	res, err := a.CreateHabitHandler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	return res.HabitID
}

func TestDashboard_ShowsHabits(t *testing.T) {
	a := setupTestApp(t)
	id := createHabit(t, a, "Read", nil)
	createHabit(t, a, "Stretch", nil)
	_, err := a.LogCompletionHandler.Handle(context.Background(), habitCommands.LogCompletionCommand{
		HabitID: id,
		UserID:  a.CurrentUserID,
	})
	require.NoError(t, err)

	out, err := execute(t, dashboardCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "HABITS")
	assert.Contains(t, out, "Read")
	assert.Contains(t, out, "Stretch")
	assert.Contains(t, out, "Progress: 1/2 completed")
}

func TestDashboard_Empty(t *testing.T) {
	setupTestApp(t)
	out, err := execute(t, dashboardCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No habits yet")
}

func TestDone_ByPrefixLogsGoal(t *testing.T) {
	a := setupTestApp(t)
	goal := 8.0
	id := createHabit(t, a, "Water", &goal)

	out, err := execute(t, doneCmd, id.String()[:6])
	require.NoError(t, err)
	assert.Contains(t, out, "Habit completed: Water (new streak started!)")

	habits, err := a.ListHabitsHandler.Handle(context.Background(), habitQueries.ListHabitsQuery{UserID: a.CurrentUserID})
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.True(t, habits[0].CompletedToday)

	out, err = execute(t, doneCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Every habit is done for today.")
}

func TestDone_ListsOpenHabits(t *testing.T) {
	a := setupTestApp(t)
	id := createHabit(t, a, "Read", nil)

	out, err := execute(t, doneCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "["+id.String()[:8]+"] Read")
}

func TestDone_NoMatch(t *testing.T) {
	setupTestApp(t)
	_, err := execute(t, doneCmd, "zzzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no open habit matches")
}

func TestHealth_Healthy(t *testing.T) {
	setupTestApp(t)
	out, err := execute(t, healthCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "database")
	assert.Contains(t, out, "overall: healthy")
}

func TestRequireApp_WithoutApp(t *testing.T) {
	SetApp(nil)
	_, err := RequireApp("dashboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard requires a database connection")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[#####.....]  50%", progressBar(0.5, 10))
	assert.Equal(t, "[##########] 150%", progressBar(1.5, 10))
	assert.Equal(t, "[..........]   0%", progressBar(0, 10))
}
