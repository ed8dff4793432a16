package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for habit persistence.
// Loaded habits always carry their full, possibly empty, completion history.
type Repository interface {
	// Save persists a habit and upserts its completions (one per habit and day).
	Save(ctx context.Context, habit *Habit) error

	// FindByID finds a habit by its ID. It returns nil, nil when the habit does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Habit, error)

	// FindByUserID finds all habits for a user.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Habit, error)

	// FindActiveByUserID finds all non-archived habits for a user.
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*Habit, error)

	// FindCompletions returns a habit's completions with from <= date < to, oldest first.
	FindCompletions(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]*Completion, error)

	// Delete removes a habit and its completions.
	Delete(ctx context.Context, id uuid.UUID) error
}
