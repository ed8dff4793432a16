package cli

import (
	"encoding/json"
	"fmt"
	"io"

	internalApp "github.com/felixgeelhaar/habitpulse/internal/app"
	habitCommands "github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	insightsQueries "github.com/felixgeelhaar/habitpulse/internal/insights/application/queries"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	CurrentUserID uuid.UUID

	// Habit Command Handlers
	CreateHabitHandler          *habitCommands.CreateHabitHandler
	LogCompletionHandler        *habitCommands.LogCompletionHandler
	ArchiveHabitHandler         *habitCommands.ArchiveHabitHandler
	ApplyGoalProgressionHandler *habitCommands.ApplyGoalProgressionHandler

	// Habit Query Handlers
	ListHabitsHandler  *habitQueries.ListHabitsHandler
	GetProgressHandler *habitQueries.GetProgressHandler

	// Insight Query Handlers
	GetInsightsHandler *insightsQueries.GetInsightsHandler

	// Operations
	Metrics       *observability.InMemoryMetrics
	Health        *observability.HealthRegistry
	EventRegistry *eventbus.Registry
	RabbitMQURL   string
}

// NewApp creates a CLI app over the container's handlers, acting as the configured user.
func NewApp(c *internalApp.Container) *App {
	return &App{
		CurrentUserID:               c.Config.UserID,
		CreateHabitHandler:          c.CreateHabitHandler,
		LogCompletionHandler:        c.LogCompletionHandler,
		ArchiveHabitHandler:         c.ArchiveHabitHandler,
		ApplyGoalProgressionHandler: c.ApplyGoalProgressionHandler,
		ListHabitsHandler:           c.ListHabitsHandler,
		GetProgressHandler:          c.GetProgressHandler,
		GetInsightsHandler:          c.GetInsightsHandler,
		Metrics:                     c.Metrics,
		Health:                      c.Health,
		EventRegistry:               c.EventRegistry,
		RabbitMQURL:                 c.Config.RabbitMQURL,
	}
}

// SetCurrentUserID changes the acting user.
func (a *App) SetCurrentUserID(userID uuid.UUID) {
	a.CurrentUserID = userID
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the app or an error naming the command that needed it.
func RequireApp(what string) (*App, error) {
	if app == nil {
		return nil, fmt.Errorf("%s requires a database connection; check DATABASE_URL or SQLITE_PATH", what)
	}
	return app, nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
