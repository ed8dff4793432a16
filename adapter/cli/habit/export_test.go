package habit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteICS_CompletedDaysOnly(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	value, goal := 6500.0, 6000.0
	habits := []exportedHabit{{
		Habit: queries.HabitDTO{ID: id, Name: "Walk", Unit: "steps"},
		Days: []queries.DayDTO{
			{Date: "2026-03-09", Completed: false},
			{Date: "2026-03-10", Completed: true, Value: &value, Goal: &goal},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeICS(&buf, habits, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)))
	ics := buf.String()

	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Equal(t, 1, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "UID:11111111-1111-1111-1111-111111111111-2026-03-10@habitpulse")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20260310")
	assert.Contains(t, ics, "SUMMARY:Walk")
	assert.Contains(t, ics, "6500 of 6000 steps")
	assert.NotContains(t, ics, "20260309")
}

func TestEventDescription_Binary(t *testing.T) {
	assert.Equal(t, "Done", eventDescription(queries.HabitDTO{Name: "Read"}, queries.DayDTO{Completed: true}))
	assert.Equal(t, "📚 Read", eventSummary(queries.HabitDTO{Name: "Read", Icon: "📚"}))
}

func TestExportCmd_ICS(t *testing.T) {
	app := setupLocalModeTestApp(t)
	id := createHabit(t, app, "Read")
	run(t, logCmd, id.String())

	out := run(t, exportCmd)
	assert.Contains(t, out, "SUMMARY:Read")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:"+time.Now().Format("20060102"))
}

func TestExportCmd_JSONToFile(t *testing.T) {
	app := setupLocalModeTestApp(t)
	id := createHabit(t, app, "Read")
	run(t, logCmd, id.String())

	path := filepath.Join(t.TempDir(), "habits.json")
	require.NoError(t, exportCmd.Flags().Set("format", "json"))
	require.NoError(t, exportCmd.Flags().Set("output", path))
	run(t, exportCmd)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported []exportedHabit
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, id, exported[0].Habit.ID)
	require.Len(t, exported[0].Days, 1)
	assert.True(t, exported[0].Days[0].Completed)
}

func TestExportCmd_UnsupportedFormat(t *testing.T) {
	setupLocalModeTestApp(t)
	require.NoError(t, exportCmd.Flags().Set("format", "pdf"))
	exportCmd.SetContext(context.Background())
	err := exportCmd.RunE(exportCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestExportCmd_RejectsUnsafeOutput(t *testing.T) {
	setupLocalModeTestApp(t)
	require.NoError(t, exportCmd.Flags().Set("output", "habits;rm.ics"))
	exportCmd.SetContext(context.Background())
	err := exportCmd.RunE(exportCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden character")
}
