package services

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("UTC+2", 2*60*60)

// testCreated is a Wednesday morning.
var testCreated = time.Date(2026, 4, 1, 8, 0, 0, 0, testLoc)

func day(n int) time.Time {
	return testCreated.AddDate(0, 0, n).Add(4 * time.Hour)
}

func ptr(v float64) *float64 { return &v }

func newID() uuid.UUID { return uuid.New() }

func newHabit(t *testing.T, settings domain.GoalSettings) *domain.Habit {
	t.Helper()
	habit, err := domain.NewHabitAt(uuid.New(), "Test habit", domain.KindManual, testCreated)
	require.NoError(t, err)
	require.NoError(t, habit.SetGoal(settings))
	habit.ClearDomainEvents()
	return habit
}

// logValues records one completion per listed day offset.
func logValues(t *testing.T, habit *domain.Habit, values map[int]*float64) {
	t.Helper()
	for n, v := range values {
		_, err := habit.LogCompletion(day(n), v, false)
		require.NoError(t, err)
	}
	habit.ClearDomainEvents()
}

func logDays(t *testing.T, habit *domain.Habit, days ...int) {
	t.Helper()
	values := make(map[int]*float64, len(days))
	for _, n := range days {
		values[n] = nil
	}
	logValues(t, habit, values)
}

// brokenRampUp rehydrates a ramp-up habit without an increment.
func brokenRampUp() *domain.Habit {
	return domain.RehydrateHabit(domain.HabitSnapshot{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Broken",
		Kind:   domain.KindSteps,
		Goal: domain.GoalSettings{
			DailyGoal:   ptr(1000),
			Progression: domain.ProgressionRampUp,
			InitialGoal: ptr(1000),
		},
		CreatedAt: testCreated,
		UpdatedAt: testCreated,
	})
}
