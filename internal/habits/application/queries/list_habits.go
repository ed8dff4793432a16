package queries

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/google/uuid"
)

// ListHabitsQuery contains the parameters for listing habits.
type ListHabitsQuery struct {
	UserID          uuid.UUID
	IncludeArchived bool
	// AsOf defaults to now.
	AsOf         time.Time
	HasStreak    bool   // only habits with a current streak
	BrokenStreak bool   // only habits that had a streak and lost it
	SortBy       string // "streak", "longest_streak", "rate", "name", "created_at"
	SortOrder    string // "asc", "desc"
}

// ListHabitsHandler handles the ListHabitsQuery.
type ListHabitsHandler struct {
	habitRepo  domain.Repository
	calculator *services.ProgressCalculator
	logger     *slog.Logger
}

// NewListHabitsHandler creates a new ListHabitsHandler.
func NewListHabitsHandler(habitRepo domain.Repository, calculator *services.ProgressCalculator, logger *slog.Logger) *ListHabitsHandler {
	if calculator == nil {
		calculator = services.NewProgressCalculator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListHabitsHandler{habitRepo: habitRepo, calculator: calculator, logger: logger}
}

// Handle executes the ListHabitsQuery.
func (h *ListHabitsHandler) Handle(ctx context.Context, query ListHabitsQuery) ([]HabitDTO, error) {
	asOf := query.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	var (
		habits []*domain.Habit
		err    error
	)
	if query.IncludeArchived {
		habits, err = h.habitRepo.FindByUserID(ctx, query.UserID)
	} else {
		habits, err = h.habitRepo.FindActiveByUserID(ctx, query.UserID)
	}
	if err != nil {
		return nil, err
	}

	dtos := make([]HabitDTO, 0, len(habits))
	for _, habit := range habits {
		progress, err := h.calculator.Summary(habit, asOf)
		if err != nil {
			return nil, fmt.Errorf("habit %q: %w", habit.Name(), err)
		}
		dto := toHabitDTO(habit, progress)

		if query.HasStreak && dto.CurrentStreak == 0 {
			continue
		}
		if query.BrokenStreak && (dto.LongestStreak == 0 || dto.CurrentStreak > 0) {
			continue
		}
		dtos = append(dtos, dto)
	}

	sortHabits(dtos, query.SortBy, query.SortOrder)
	h.logger.DebugContext(ctx, "habits listed", "count", len(dtos))
	return dtos, nil
}

// sortHabits orders in place. Names sort ascending by default, metrics descending.
func sortHabits(dtos []HabitDTO, sortBy, sortOrder string) {
	var less func(a, b HabitDTO) bool
	desc := true
	switch sortBy {
	case "streak":
		less = func(a, b HabitDTO) bool { return a.CurrentStreak < b.CurrentStreak }
	case "longest_streak":
		less = func(a, b HabitDTO) bool { return a.LongestStreak < b.LongestStreak }
	case "rate":
		less = func(a, b HabitDTO) bool { return a.CompletionRate < b.CompletionRate }
	case "name":
		less = func(a, b HabitDTO) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
		desc = false
	case "created_at":
		less = func(a, b HabitDTO) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return
	}
	switch sortOrder {
	case "asc":
		desc = false
	case "desc":
		desc = true
	}

	sort.SliceStable(dtos, func(i, j int) bool {
		if desc {
			return less(dtos[j], dtos[i])
		}
		return less(dtos[i], dtos[j])
	})
}
