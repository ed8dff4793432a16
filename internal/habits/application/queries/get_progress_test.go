package queries

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProgressHandler_Handle(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("ramp-up habit report", func(t *testing.T) {
		habit, err := domain.NewHabitAt(userID, "Steps", domain.KindSteps, created)
		require.NoError(t, err)
		require.NoError(t, habit.SetGoal(domain.RampUpGoal(5000, 1000, 7, "steps")))
		for d, v := range map[int]float64{0: 5200, 1: 4000, 7: 6100, 8: 6000} {
			value := v
			_, err := habit.LogCompletion(at(d), &value, true)
			require.NoError(t, err)
		}

		repo := new(mockHabitRepo)
		repo.On("FindByID", ctx, habit.ID()).Return(habit, nil)

		report, err := NewGetProgressHandler(repo, nil).Handle(ctx, GetProgressQuery{
			HabitID: habit.ID(),
			UserID:  userID,
			AsOf:    at(8),
		})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Habit.CurrentStreak)
		require.NotNil(t, report.Habit.EffectiveGoal)
		assert.Equal(t, 6000.0, *report.Habit.EffectiveGoal)
		assert.Equal(t, "ramp_up", report.Goal.Progression)
		require.NotNil(t, report.Goal.DaysUntilChange)
		assert.Equal(t, 6, *report.Goal.DaysUntilChange)
		assert.Equal(t, "Goal rises to 7000 steps in 6 days.", report.Goal.Message)

		require.Len(t, report.Recent, DefaultRecentDays)
		first, last := report.Recent[0], report.Recent[len(report.Recent)-1]
		assert.Equal(t, "2026-07-03", first.Date)
		assert.Nil(t, first.Value)
		assert.Equal(t, 5000.0, *first.Goal)
		assert.Equal(t, "2026-07-09", last.Date)
		assert.True(t, last.Completed)
		assert.Equal(t, 6000.0, *last.Goal)
		assert.InDelta(t, 1.0, last.Progress, 1e-9)
	})

	t.Run("history never starts before creation", func(t *testing.T) {
		habit := newBinaryHabit(t, userID, "Read", 0, 1)
		habit.SetRestDays(domain.NewWeekdaySet(time.Friday))
		repo := new(mockHabitRepo)
		repo.On("FindByID", ctx, habit.ID()).Return(habit, nil)

		report, err := NewGetProgressHandler(repo, nil).Handle(ctx, GetProgressQuery{
			HabitID:    habit.ID(),
			UserID:     userID,
			AsOf:       at(3),
			RecentDays: 30,
		})
		require.NoError(t, err)

		require.Len(t, report.Recent, 4)
		assert.Equal(t, "2026-07-01", report.Recent[0].Date)
		assert.Nil(t, report.Recent[0].Goal)
		assert.True(t, report.Recent[2].RestDay, "2026-07-03 is a Friday")
		assert.False(t, report.Recent[3].Completed)
		assert.Equal(t, "Complete once a day.", report.Goal.Message)
		assert.Equal(t, 2, report.Habit.CurrentStreak, "the Friday rest day bridges to the streak")
	})

	t.Run("not found and not owner", func(t *testing.T) {
		repo := new(mockHabitRepo)
		missing := uuid.New()
		other := newBinaryHabit(t, uuid.New(), "Theirs")
		repo.On("FindByID", ctx, missing).Return(nil, nil)
		repo.On("FindByID", ctx, other.ID()).Return(other, nil)
		handler := NewGetProgressHandler(repo, nil)

		_, err := handler.Handle(ctx, GetProgressQuery{HabitID: missing, UserID: userID})
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		_, err = handler.Handle(ctx, GetProgressQuery{HabitID: other.ID(), UserID: userID})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})
}
