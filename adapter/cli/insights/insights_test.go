package insights

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	internalApp "github.com/felixgeelhaar/habitpulse/internal/app"
	"github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	insightType = ""
	insightLimit = 0
	refresh = false
	insightDate = ""
	cli.SetJSONOutput(false)
}

func setupApp(t *testing.T) *cli.App {
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

	app := cli.NewApp(container)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	resetFlags()
	return app
}

// seedReading creates a binary habit completed every day from Mar 2 to Mar 8 2026.
func seedReading(t *testing.T, app *cli.App) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)
	res, err := app.CreateHabitHandler.Handle(ctx, commands.CreateHabitCommand{
		UserID:    app.CurrentUserID,
		Name:      "Read",
		CreatedAt: start,
	})
	require.NoError(t, err)
	for day := 0; day < 7; day++ {
		_, err := app.LogCompletionHandler.Handle(ctx, commands.LogCompletionCommand{
			HabitID: res.HabitID,
			UserID:  app.CurrentUserID,
			Date:    start.AddDate(0, 0, day),
		})
		require.NoError(t, err)
	}
}

func run(t *testing.T) string {
	t.Helper()
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetContext(context.Background())
	require.NoError(t, Cmd.RunE(Cmd, nil))
	return out.String()
}

func TestInsightsCmd_Milestone(t *testing.T) {
	app := setupApp(t)
	seedReading(t, app)

	insightDate = "2026-03-08"
	out := run(t)
	assert.Contains(t, out, "Insights for 2026-03-08")
	assert.Contains(t, out, "[high] 7-day milestone")
}

func TestInsightsCmd_TypeFilterAndJSON(t *testing.T) {
	app := setupApp(t)
	seedReading(t, app)

	insightDate = "2026-03-08"
	insightType = "milestone"
	cli.SetJSONOutput(true)
	out := run(t)
	assert.Contains(t, out, `"type": "milestone"`)
	assert.NotContains(t, out, `"type": "motivation"`)
}

func TestInsightsCmd_Empty(t *testing.T) {
	setupApp(t)

	out := run(t)
	assert.Contains(t, out, "No insights yet")
}

func TestInsightsCmd_UnknownType(t *testing.T) {
	setupApp(t)
	insightType = "horoscope"

	Cmd.SetContext(context.Background())
	err := Cmd.RunE(Cmd, nil)
	assert.ErrorContains(t, err, "unknown insight type")
}
