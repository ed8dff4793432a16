package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/habitpulse/adapter/cli/goals"
	"github.com/felixgeelhaar/habitpulse/adapter/cli/habit"
	"github.com/felixgeelhaar/habitpulse/adapter/cli/insights"
	climcp "github.com/felixgeelhaar/habitpulse/adapter/cli/mcp"
	"github.com/felixgeelhaar/habitpulse/internal/app"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Only warnings reach stderr unless LOG_LEVEL is set.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:   level,
		Format:  observability.LogFormat(cfg.LogFormat),
		Service: "habitpulse",
		Version: cli.Version,
	})
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	cli.SetApp(cli.NewApp(container))

	cli.AddCommand(habit.Cmd)
	cli.AddCommand(goals.Cmd)
	cli.AddCommand(insights.Cmd)
	cli.AddCommand(climcp.Cmd)

	cli.Execute(ctx)
}
