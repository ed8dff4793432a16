package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/habitpulse/adapter/cli"
	mcpinternal "github.com/felixgeelhaar/habitpulse/internal/mcp"
	"github.com/felixgeelhaar/habitpulse/pkg/config"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serve habit.*, goals.apply and insights.generate as MCP tools over HTTP.
Set MCP_AUTH_TOKEN to require a bearer token.

Examples:
  habitpulse mcp serve
  habitpulse mcp serve --addr 127.0.0.1:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp("mcp serve")
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.MCPAddr = serveAddr
		}

		logger := newServerLogger(cmd.ErrOrStderr(), cfg)
		err = mcpinternal.Serve(cmd.Context(), cfg, app, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newServerLogger(out io.Writer, cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if cfg.IsDevelopment() {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:   level,
		Format:  observability.LogFormat(cfg.LogFormat),
		Output:  out,
		Service: "habitpulse-mcp",
		Version: cli.Version,
	})
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default MCP_ADDR)")
}
