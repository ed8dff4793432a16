package commands

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArchiveHabitHandler_Handle(t *testing.T) {
	userID := uuid.New()
	created := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("archives and publishes", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, userID, created)

		f.expectCommit()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)
		f.repo.On("Save", f.txCtx, habit).Return(nil)
		f.publisher.On("PublishEvents", f.ctx, eventsWithKey(domain.RoutingKeyHabitArchived)).Return(nil)

		err := NewArchiveHabitHandler(f.deps()).Handle(f.ctx, ArchiveHabitCommand{HabitID: habit.ID(), UserID: userID})
		require.NoError(t, err)
		assert.True(t, habit.IsArchived())
		f.assertExpectations(t)
	})

	t.Run("already archived is a no-op", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, userID, created)
		habit.Archive()
		habit.ClearDomainEvents()

		f.expectCommit()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)

		err := NewArchiveHabitHandler(f.deps()).Handle(f.ctx, ArchiveHabitCommand{HabitID: habit.ID(), UserID: userID})
		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "PublishEvents", mock.Anything, mock.Anything)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture()
		habit := newWaterHabit(t, uuid.New(), created)

		f.expectRollback()
		f.repo.On("FindByID", f.txCtx, habit.ID()).Return(habit, nil)

		err := NewArchiveHabitHandler(f.deps()).Handle(f.ctx, ArchiveHabitCommand{HabitID: habit.ID(), UserID: userID})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
		assert.False(t, habit.IsArchived())
	})
}
