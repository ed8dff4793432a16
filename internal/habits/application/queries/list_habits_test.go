package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListHabitsHandler_Handle(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	reading := newBinaryHabit(t, userID, "Reading", 0, 1, 2, 3, 4) // streak 5
	exercise := newBinaryHabit(t, userID, "Exercise", 0, 1, 2)     // lost streak
	journal := newBinaryHabit(t, userID, "journal")                // never done

	t.Run("lists active habits with metrics", func(t *testing.T) {
		repo := new(mockHabitRepo)
		repo.On("FindActiveByUserID", ctx, userID).Return([]*domain.Habit{reading, exercise, journal}, nil)

		result, err := NewListHabitsHandler(repo, nil, nil).Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4)})

		require.NoError(t, err)
		require.Len(t, result, 3)
		assert.Equal(t, "Reading", result[0].Name)
		assert.Equal(t, 5, result[0].CurrentStreak)
		assert.True(t, result[0].CompletedToday)
		assert.Equal(t, 1.0, result[0].CompletionRate)
		assert.Equal(t, 0, result[1].CurrentStreak)
		assert.Equal(t, 3, result[1].LongestStreak)
		assert.InDelta(t, 0.6, result[1].CompletionRate, 1e-9)
		repo.AssertExpectations(t)
	})

	t.Run("includes archived habits when requested", func(t *testing.T) {
		archived := newBinaryHabit(t, userID, "Old")
		archived.Archive()
		repo := new(mockHabitRepo)
		repo.On("FindByUserID", ctx, userID).Return([]*domain.Habit{reading, archived}, nil)

		result, err := NewListHabitsHandler(repo, nil, nil).Handle(ctx, ListHabitsQuery{UserID: userID, IncludeArchived: true, AsOf: at(4)})

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.True(t, result[1].IsArchived)
	})

	t.Run("streak filters", func(t *testing.T) {
		repo := new(mockHabitRepo)
		repo.On("FindActiveByUserID", ctx, userID).Return([]*domain.Habit{reading, exercise, journal}, nil)
		handler := NewListHabitsHandler(repo, nil, nil)

		withStreak, err := handler.Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4), HasStreak: true})
		require.NoError(t, err)
		require.Len(t, withStreak, 1)
		assert.Equal(t, "Reading", withStreak[0].Name)

		broken, err := handler.Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4), BrokenStreak: true})
		require.NoError(t, err)
		require.Len(t, broken, 1)
		assert.Equal(t, "Exercise", broken[0].Name)
	})

	t.Run("sorting", func(t *testing.T) {
		repo := new(mockHabitRepo)
		repo.On("FindActiveByUserID", ctx, userID).Return([]*domain.Habit{reading, exercise, journal}, nil)
		handler := NewListHabitsHandler(repo, nil, nil)

		byName, err := handler.Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4), SortBy: "name"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Exercise", "journal", "Reading"}, names(byName))

		byLongest, err := handler.Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4), SortBy: "longest_streak"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Reading", "Exercise", "journal"}, names(byLongest))

		byRateAsc, err := handler.Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(4), SortBy: "rate", SortOrder: "asc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"journal", "Exercise", "Reading"}, names(byRateAsc))
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(mockHabitRepo)
		boom := errors.New("db down")
		repo.On("FindActiveByUserID", mock.Anything, userID).Return(nil, boom)

		_, err := NewListHabitsHandler(repo, nil, nil).Handle(ctx, ListHabitsQuery{UserID: userID})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid goal settings surface as configuration errors", func(t *testing.T) {
		broken := domain.RehydrateHabit(domain.HabitSnapshot{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      "Broken",
			Kind:      domain.KindSteps,
			Goal:      domain.GoalSettings{Progression: domain.ProgressionAdaptive},
			CreatedAt: created,
			UpdatedAt: created,
		})
		repo := new(mockHabitRepo)
		repo.On("FindActiveByUserID", ctx, userID).Return([]*domain.Habit{broken}, nil)

		_, err := NewListHabitsHandler(repo, nil, nil).Handle(ctx, ListHabitsQuery{UserID: userID, AsOf: at(1)})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

func names(dtos []HabitDTO) []string {
	out := make([]string, len(dtos))
	for i, d := range dtos {
		out[i] = d.Name
	}
	return out
}
