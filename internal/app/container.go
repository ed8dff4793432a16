package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	habitCommands "github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	habitQueries "github.com/felixgeelhaar/habitpulse/internal/habits/application/queries"
	habitServices "github.com/felixgeelhaar/habitpulse/internal/habits/application/services"
	habitsDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	insightsQueries "github.com/felixgeelhaar/habitpulse/internal/insights/application/queries"
	insightsServices "github.com/felixgeelhaar/habitpulse/internal/insights/application/services"
	insightsSubs "github.com/felixgeelhaar/habitpulse/internal/insights/application/subscribers"
	insightsDomain "github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	insightsCache "github.com/felixgeelhaar/habitpulse/internal/insights/infrastructure/cache"
	sharedApplication "github.com/felixgeelhaar/habitpulse/internal/shared/application"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis, nil when the feed cache lives in memory
	RedisClient *redis.Client

	HabitRepo  habitsDomain.Repository
	UnitOfWork sharedApplication.UnitOfWork
	FeedCache  insightsDomain.FeedCache

	// Events
	EventRegistry  *eventbus.Registry
	EventPublisher eventbus.Publisher
	DomainEvents   *eventbus.DomainEventPublisher
	breaker        *eventbus.BreakerPublisher

	// Engines
	GoalEngine         *habitServices.GoalEngine
	ProgressCalculator *habitServices.ProgressCalculator
	InsightEngine      *insightsServices.Engine

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
}

// NewContainer opens the configured database, connects the optional Redis
// cache and RabbitMQ broker, and wires every handler. In development an
// unreachable Redis or RabbitMQ falls back to in-process replacements.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	if err := c.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.buildEventBus(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.buildHandlers(); err != nil {
		c.Close()
		return nil, err
	}
	c.registerHealthChecks()

	return c, nil
}

func (c *Container) openDatabase(ctx context.Context) error {
	driver, err := database.ParseDriver(c.Config.DatabaseDriver, c.Config.DatabaseURL)
	if err != nil {
		return err
	}

	conn, err := database.Open(ctx, database.Config{
		Driver:     driver,
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	factory := NewRepositoryFactory(conn)
	repo, err := factory.HabitRepository()
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.DBConn = conn
	c.DBDriver = driver
	c.HabitRepo = repo
	c.UnitOfWork = factory.UnitOfWork()
	c.Logger.Info("connected to database", "driver", driver)
	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	c.FeedCache = insightsCache.NewMemoryFeedCache(c.Config.InsightsCacheTTL)
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, insight feeds will be cached in memory", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, insight feeds will be cached in memory", "error", err)
		return nil
	}

	c.RedisClient = client
	c.FeedCache = insightsCache.NewRedisFeedCache(client, c.Config.InsightsCacheTTL)
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) buildEventBus() error {
	c.EventRegistry = eventbus.NewRegistry(c.Logger)
	c.EventRegistry.Register(insightsSubs.NewFeedInvalidationSubscriber(c.FeedCache, c.Logger))

	publishers := eventbus.FanoutPublisher{eventbus.NewInProcessBus(c.EventRegistry, c.Logger)}
	if c.Config.RabbitMQURL != "" {
		rabbit, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		switch {
		case err == nil:
			c.breaker = eventbus.NewBreakerPublisher(rabbit, eventbus.BreakerConfig{
				FailureThreshold: uint32(max(c.Config.EventsBreakerFailures, 0)),
				Timeout:          c.Config.EventsBreakerTimeout,
			}, c.Logger)
			publishers = append(publishers, c.breaker)
		case c.Config.IsDevelopment():
			c.Logger.Warn("RabbitMQ not available, events stay in-process", "error", err)
		default:
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	}

	c.EventPublisher = publishers
	c.DomainEvents = eventbus.NewDomainEventPublisher(c.EventPublisher, c.Logger)
	return nil
}

func (c *Container) buildHandlers() error {
	policy := habitServices.AdaptivePolicy{
		WindowDays:        c.Config.AdaptiveWindowDays,
		IncreaseThreshold: c.Config.AdaptiveIncreaseThreshold,
		DecreaseThreshold: c.Config.AdaptiveDecreaseThreshold,
		StepRatio:         c.Config.AdaptiveStepRatio,
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid ADAPTIVE_* configuration: %w", err)
	}
	c.GoalEngine = habitServices.NewGoalEngine(policy)
	c.ProgressCalculator = habitServices.NewProgressCalculator(c.GoalEngine)
	c.InsightEngine = insightsServices.NewEngine(c.ProgressCalculator, insightsServices.DefaultThresholds())

	deps := habitCommands.Deps{
		Habits:    c.HabitRepo,
		UoW:       c.UnitOfWork,
		Publisher: c.DomainEvents,
		Logger:    c.Logger,
		Metrics:   c.Metrics,
	}
	c.CreateHabitHandler = habitCommands.NewCreateHabitHandler(deps)
	c.LogCompletionHandler = habitCommands.NewLogCompletionHandler(deps, c.ProgressCalculator)
	c.ArchiveHabitHandler = habitCommands.NewArchiveHabitHandler(deps)
	c.ApplyGoalProgressionHandler = habitCommands.NewApplyGoalProgressionHandler(deps, c.GoalEngine)

	c.ListHabitsHandler = habitQueries.NewListHabitsHandler(c.HabitRepo, c.ProgressCalculator, c.Logger)
	c.GetProgressHandler = habitQueries.NewGetProgressHandler(c.HabitRepo, c.ProgressCalculator)
	c.GetInsightsHandler = insightsQueries.NewGetInsightsHandler(c.HabitRepo, c.InsightEngine, c.FeedCache, c.Logger, c.Metrics)
	return nil
}

func (c *Container) registerHealthChecks() {
	c.Health.Register("database", observability.PingChecker(c.DBConn.Ping, observability.HealthStatusUnhealthy))
	if c.RedisClient != nil {
		c.Health.Register("cache", observability.PingChecker(func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}, observability.HealthStatusDegraded))
	}
	if c.breaker != nil {
		c.Health.Register("events", observability.PingChecker(func(context.Context) error {
			if state := c.breaker.State(); state == gobreaker.StateOpen {
				return errors.New("event broker circuit is open")
			}
			return nil
		}, observability.HealthStatusDegraded))
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "driver", c.DBDriver, "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
