package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var berlinish = time.FixedZone("UTC+2", 2*60*60)

func openSQLite(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.Open(ctx, database.Config{SQLitePath: sqlite.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, database.Migrate(ctx, conn))
	return conn
}

func openPostgres(t *testing.T) database.Connection {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := postgres.Open(ctx, database.Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, database.Migrate(ctx, conn))
	return conn
}

func TestSQLiteHabitRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) domain.Repository {
		return NewSQLiteHabitRepository(openSQLite(t))
	})
}

func TestPostgresHabitRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) domain.Repository {
		return NewPostgresHabitRepository(openPostgres(t))
	})
}

func newGoalHabit(t *testing.T, userID uuid.UUID, name string) *domain.Habit {
	t.Helper()
	created := time.Date(2026, 5, 4, 23, 30, 0, 0, berlinish)
	habit, err := domain.NewHabitAt(userID, name, domain.KindWater, created)
	require.NoError(t, err)
	require.NoError(t, habit.SetGoal(domain.RampUpGoal(1000, 250, 7, "ml")))
	habit.SetRestDays(domain.NewWeekdaySet(time.Sunday))
	habit.SetAppearance("drop", "#00aaff")
	return habit
}

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.Repository) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		repo := newRepo(t)
		habit := newGoalHabit(t, uuid.New(), "Drink water")
		value := 1200.0
		_, err := habit.LogCompletion(time.Date(2026, 5, 5, 23, 45, 0, 0, berlinish), &value, true)
		require.NoError(t, err)
		require.NoError(t, habit.AdjustGoal(1250, time.Date(2026, 5, 11, 22, 0, 0, 0, berlinish), "ramp"))

		require.NoError(t, repo.Save(ctx, habit))

		loaded, err := repo.FindByID(ctx, habit.ID())
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, habit.Name(), loaded.Name())
		assert.Equal(t, habit.UserID(), loaded.UserID())
		assert.Equal(t, "drop", loaded.Icon())
		assert.Equal(t, "#00aaff", loaded.Color())
		assert.Equal(t, domain.KindWater, loaded.Kind())
		assert.Equal(t, domain.ProgressionRampUp, loaded.Progression())
		assert.Equal(t, "ml", loaded.Unit())
		assert.Equal(t, habit.RestDays(), loaded.RestDays())
		assert.Equal(t, habit.CreatedDay(), loaded.CreatedDay(), "creation day survives in its own offset")

		goal, ok := loaded.DailyGoal()
		require.True(t, ok)
		assert.Equal(t, 1250.0, goal)
		settings := loaded.GoalSettings()
		require.NotNil(t, settings.IntervalDays)
		assert.Equal(t, 7, *settings.IntervalDays)

		last, ok := loaded.LastGoalAdjustment()
		require.True(t, ok)
		assert.Equal(t, "2026-05-11", domain.DayOf(last).String())

		changes := loaded.GoalChanges()
		require.Len(t, changes, 1)
		assert.Equal(t, "2026-05-11", changes[0].Day().String())
		assert.Equal(t, 1000.0, changes[0].Previous)
		assert.Equal(t, 1250.0, changes[0].Goal)

		require.Len(t, loaded.Completions(), 1)
		c := loaded.Completions()[0]
		assert.Equal(t, "2026-05-05", c.Day().String())
		assert.True(t, c.IsAutoSynced())
		v, ok := c.Value()
		require.True(t, ok)
		assert.Equal(t, 1200.0, v)
	})

	t.Run("goal history keeps earlier goals", func(t *testing.T) {
		repo := newRepo(t)
		created := time.Date(2026, 5, 4, 8, 0, 0, 0, berlinish)
		habit, err := domain.NewHabitAt(uuid.New(), "Water", domain.KindWater, created)
		require.NoError(t, err)
		require.NoError(t, habit.SetGoal(domain.AdaptiveGoal(2000, nil, "ml")))
		require.NoError(t, habit.AdjustGoal(2200, created.AddDate(0, 0, 7), "raised"))
		require.NoError(t, repo.Save(ctx, habit))
		require.NoError(t, habit.AdjustGoal(2400, created.AddDate(0, 0, 14), "raised"))
		require.NoError(t, repo.Save(ctx, habit))

		loaded, err := repo.FindByID(ctx, habit.ID())
		require.NoError(t, err)
		require.NotNil(t, loaded)
		require.Len(t, loaded.GoalChanges(), 2)

		start := domain.DayOf(created)
		for offset, want := range map[int]float64{0: 2000, 6: 2000, 7: 2200, 13: 2200, 14: 2400, 30: 2400} {
			goal, ok := loaded.GoalOn(start.AddDays(offset))
			require.True(t, ok)
			assert.Equal(t, want, goal, "day %d", offset)
		}
	})

	t.Run("missing habit", func(t *testing.T) {
		repo := newRepo(t)
		loaded, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("same day is upserted with latest write winning", func(t *testing.T) {
		repo := newRepo(t)
		habit := newGoalHabit(t, uuid.New(), "Water")
		day := time.Date(2026, 5, 6, 9, 0, 0, 0, berlinish)

		first, second := 500.0, 1500.0
		_, err := habit.LogCompletion(day, &first, false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, habit))

		_, err = habit.LogCompletion(day.Add(3*time.Hour), &second, false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, habit))

		loaded, err := repo.FindByID(ctx, habit.ID())
		require.NoError(t, err)
		require.Len(t, loaded.Completions(), 1)
		v, _ := loaded.Completions()[0].Value()
		assert.Equal(t, 1500.0, v)

		// A stale copy must not overwrite the newer entry.
		stale := domain.RehydrateHabit(habit.Snapshot())
		stale.Completions()[0] = domain.RehydrateCompletion(uuid.New(), habit.ID(), domain.StartOfDay(day), &first, false, time.Now().Add(-time.Hour))
		require.NoError(t, repo.Save(ctx, stale))

		loaded, err = repo.FindByID(ctx, habit.ID())
		require.NoError(t, err)
		v, _ = loaded.Completions()[0].Value()
		assert.Equal(t, 1500.0, v)
	})

	t.Run("find by user", func(t *testing.T) {
		repo := newRepo(t)
		userID := uuid.New()
		active := newGoalHabit(t, userID, "Active")
		archived := newGoalHabit(t, userID, "Archived")
		archived.Archive()
		other := newGoalHabit(t, uuid.New(), "Someone else")

		for _, h := range []*domain.Habit{active, archived, other} {
			require.NoError(t, repo.Save(ctx, h))
		}

		all, err := repo.FindByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		onlyActive, err := repo.FindActiveByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, onlyActive, 1)
		assert.Equal(t, active.ID(), onlyActive[0].ID())
		assert.NotNil(t, onlyActive[0].Completions())

		none, err := repo.FindByUserID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("find completions in range", func(t *testing.T) {
		repo := newRepo(t)
		habit := newGoalHabit(t, uuid.New(), "Range")
		for d := 5; d <= 9; d++ {
			v := float64(d * 100)
			_, err := habit.LogCompletion(time.Date(2026, 5, d, 12, 0, 0, 0, berlinish), &v, false)
			require.NoError(t, err)
		}
		require.NoError(t, repo.Save(ctx, habit))

		from := time.Date(2026, 5, 6, 0, 0, 0, 0, berlinish)
		to := time.Date(2026, 5, 8, 0, 0, 0, 0, berlinish)
		completions, err := repo.FindCompletions(ctx, habit.ID(), from, to)
		require.NoError(t, err)

		require.Len(t, completions, 2)
		assert.Equal(t, "2026-05-06", completions[0].Day().String())
		assert.Equal(t, "2026-05-07", completions[1].Day().String())
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		habit := newGoalHabit(t, uuid.New(), "Delete me")
		v := 1.0
		_, err := habit.LogCompletion(time.Date(2026, 5, 6, 12, 0, 0, 0, berlinish), &v, false)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, habit))

		require.NoError(t, repo.Delete(ctx, habit.ID()))

		loaded, err := repo.FindByID(ctx, habit.ID())
		require.NoError(t, err)
		assert.Nil(t, loaded)
		completions, err := repo.FindCompletions(ctx, habit.ID(), time.Time{}, time.Now().AddDate(10, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, completions)
	})
}

func TestSQLiteHabitRepository_UsesTransactionFromContext(t *testing.T) {
	conn := openSQLite(t)
	repo := NewSQLiteHabitRepository(conn)
	uow := database.NewUnitOfWork(conn)
	habit := newGoalHabit(t, uuid.New(), "Rolled back")

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Save(txCtx, habit))

	inside, err := repo.FindByID(txCtx, habit.ID())
	require.NoError(t, err)
	require.NotNil(t, inside)

	require.NoError(t, uow.Rollback(txCtx))

	after, err := repo.FindByID(context.Background(), habit.ID())
	require.NoError(t, err)
	assert.Nil(t, after)
}
