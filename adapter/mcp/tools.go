package mcp

import (
	"errors"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	"github.com/felixgeelhaar/mcp-go"
)

// ToolDependencies provides handlers and context for MCP tools.
type ToolDependencies struct {
	App *cli.App
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	t := toolset{app: deps.App}
	if err := registerHabitTools(srv, t); err != nil {
		return err
	}
	if err := registerGoalTools(srv, t); err != nil {
		return err
	}
	if err := registerInsightTools(srv, t); err != nil {
		return err
	}
	return registerHealthTools(srv, t)
}

// toolset holds the tool handlers so they can be exercised without a server.
type toolset struct {
	app *cli.App
}
