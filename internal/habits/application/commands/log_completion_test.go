package commands

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWaterHabit(t *testing.T, userID uuid.UUID, created time.Time) *domain.Habit {
	t.Helper()
	habit, err := domain.NewHabitAt(userID, "Water", domain.KindWater, created)
	require.NoError(t, err)
	require.NoError(t, habit.SetGoal(domain.FixedGoal(2000, "ml")))
	habit.ClearDomainEvents()
	return habit
}

func TestLogCompletionHandler_Handle(t *testing.T) {
	userID := uuid.New()
	created := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("logs a qualifying value and reports the streak", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, userID, created)
		_, err := habit.LogCompletion(created.AddDate(0, 0, 1), floatPtr(2100), false)
		require.NoError(t, err)
		habit.ClearDomainEvents()

		f.expectCommit()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)
		f.repo.On("Save", f.txCtx, habit).Return(nil)
		f.publisher.On("PublishEvents", f.ctx, eventsWithKey(domain.RoutingKeyHabitCompleted)).Return(nil)

		handler := NewLogCompletionHandler(f.deps(), nil)
		result, err := handler.Handle(f.ctx, LogCompletionCommand{
			HabitID: habit.ID(),
			UserID:  userID,
			Date:    created.AddDate(0, 0, 2),
			Value:   floatPtr(2500),
		})

		require.NoError(t, err)
		assert.Equal(t, "2026-06-03", result.Day)
		assert.True(t, result.Completed)
		assert.Equal(t, 2, result.CurrentStreak)
		assert.InDelta(t, 1.25, result.Progress, 1e-9)
		assert.Equal(t, int64(1), f.metrics.CounterValue(observability.MetricHabitsCompleted, observability.T("kind", "water")))
		f.assertExpectations(t)
	})

	t.Run("a value below the goal is recorded but not completed", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, userID, created)

		f.expectCommit()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)
		f.repo.On("Save", f.txCtx, habit).Return(nil)
		f.publisher.On("PublishEvents", f.ctx, mock.Anything).Return(nil)

		result, err := NewLogCompletionHandler(f.deps(), nil).Handle(f.ctx, LogCompletionCommand{
			HabitID: habit.ID(),
			UserID:  userID,
			Date:    created,
			Value:   floatPtr(500),
		})

		require.NoError(t, err)
		assert.False(t, result.Completed)
		assert.Equal(t, 0, result.CurrentStreak)
		assert.InDelta(t, 0.25, result.Progress, 1e-9)
	})

	t.Run("habit not found", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.expectRollback()
		f.repo.On("FindByID", f.txCtx, id).Return(nil, nil)

		_, err := NewLogCompletionHandler(f.deps(), nil).Handle(f.ctx, LogCompletionCommand{HabitID: id, UserID: userID})
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
		f.assertExpectations(t)
	})

	t.Run("other user's habit", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, uuid.New(), created)
		f.expectRollback()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)

		_, err := NewLogCompletionHandler(f.deps(), nil).Handle(f.ctx, LogCompletionCommand{HabitID: habit.ID(), UserID: userID})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("negative values are rejected", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, userID, created)
		f.expectRollback()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)

		_, err := NewLogCompletionHandler(f.deps(), nil).Handle(f.ctx, LogCompletionCommand{
			HabitID: habit.ID(),
			UserID:  userID,
			Date:    created,
			Value:   floatPtr(-1),
		})
		assert.ErrorIs(t, err, domain.ErrCompletionNegative)
	})
}
