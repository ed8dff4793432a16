package queries

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockHabitRepo is a mock implementation of domain.Repository.
type mockHabitRepo struct {
	mock.Mock
}

func (m *mockHabitRepo) Save(ctx context.Context, habit *domain.Habit) error {
	args := m.Called(ctx, habit)
	return args.Error(0)
}

func (m *mockHabitRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Habit), args.Error(1)
}

func (m *mockHabitRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *mockHabitRepo) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *mockHabitRepo) FindCompletions(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]*domain.Completion, error) {
	args := m.Called(ctx, habitID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Completion), args.Error(1)
}

func (m *mockHabitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var created = time.Date(2026, 7, 1, 7, 30, 0, 0, time.UTC)

// at returns noon n days after creation.
func at(n int) time.Time {
	return time.Date(2026, 7, 1+n, 12, 0, 0, 0, time.UTC)
}

func newBinaryHabit(t *testing.T, userID uuid.UUID, name string, doneDays ...int) *domain.Habit {
	t.Helper()
	habit, err := domain.NewHabitAt(userID, name, domain.KindManual, created)
	require.NoError(t, err)
	for _, d := range doneDays {
		_, err := habit.LogCompletion(at(d), nil, false)
		require.NoError(t, err)
	}
	return habit
}
