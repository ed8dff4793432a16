package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	sharedDomain "github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type txKey struct{}

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

// mockUnitOfWork is a mock implementation of application.UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// mockPublisher is a mock implementation of application.EventPublisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvents(ctx context.Context, events []sharedDomain.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type fixture struct {
	repo      *mockHabitRepo
	uow       *mockUnitOfWork
	publisher *mockPublisher
	metrics   *observability.InMemoryMetrics
	ctx       context.Context
	txCtx     context.Context
}

func newFixture() *fixture {
	ctx := context.Background()
	return &fixture{
		repo:      new(mockHabitRepo),
		uow:       new(mockUnitOfWork),
		publisher: new(mockPublisher),
		metrics:   observability.NewInMemoryMetrics(),
		ctx:       ctx,
		txCtx:     context.WithValue(ctx, txKey{}, "tx"),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Habits:    f.repo,
		UoW:       f.uow,
		Publisher: f.publisher,
		Logger:    observability.DiscardLogger(),
		Metrics:   f.metrics,
	}
}

// expectCommit sets up a unit of work that begins and commits.
func (f *fixture) expectCommit() {
	f.uow.On("Begin", f.ctx).Return(f.txCtx, nil)
	f.uow.On("Commit", f.txCtx).Return(nil)
}

// expectRollback sets up a unit of work that begins and rolls back.
func (f *fixture) expectRollback() {
	f.uow.On("Begin", f.ctx).Return(f.txCtx, nil)
	f.uow.On("Rollback", f.txCtx).Return(nil)
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.repo.AssertExpectations(t)
	f.uow.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func eventsWithKey(key string) any {
	return mock.MatchedBy(func(events []sharedDomain.DomainEvent) bool {
		for _, e := range events {
			if e.RoutingKey() == key {
				return true
			}
		}
		return false
	})
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
