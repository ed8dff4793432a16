package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/habitpulse/internal/insights/application/queries"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/felixgeelhaar/mcp-go"
)

type insightsGenerateInput struct {
	Type    string `json:"type,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
	Date    string `json:"date,omitempty"`
}

type insightsResult struct {
	*domain.Feed
	Cached bool `json:"cached"`
}

type healthResult struct {
	Status observability.HealthStatus        `json:"status"`
	Checks []observability.HealthCheckResult `json:"checks"`
}

func registerInsightTools(srv *mcp.Server, t toolset) error {
	srv.Tool("insights.generate").
		Description("Generate today's insight feed: streaks, milestones, weekday patterns, week-over-week changes, correlations and nudges").
		Handler(t.insightsGenerate)
	return nil
}

func registerHealthTools(srv *mcp.Server, t toolset) error {
	srv.Tool("system.health").
		Description("Report database, cache and event broker health").
		Handler(t.systemHealth)
	return nil
}

func (t toolset) insightsGenerate(ctx context.Context, input insightsGenerateInput) (*insightsResult, error) {
	if t.app.GetInsightsHandler == nil {
		return nil, errors.New("insights require database connection")
	}
	query := queries.GetInsightsQuery{
		UserID:  t.app.CurrentUserID,
		Refresh: input.Refresh,
		Limit:   input.Limit,
	}
	if input.Type != "" {
		query.Type = domain.Type(input.Type)
		if !query.Type.IsValid() {
			return nil, fmt.Errorf("unknown insight type %q", input.Type)
		}
	}
	asOf, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	query.AsOf = asOf

	result, err := t.app.GetInsightsHandler.Handle(ctx, query)
	if err != nil {
		return nil, err
	}
	return &insightsResult{Feed: result.Feed, Cached: result.Cached}, nil
}

func (t toolset) systemHealth(ctx context.Context, _ struct{}) (*healthResult, error) {
	if t.app.Health == nil {
		return nil, errors.New("health checks are not configured")
	}
	checks := t.app.Health.Check(ctx)
	return &healthResult{Status: observability.Overall(checks), Checks: checks}, nil
}
