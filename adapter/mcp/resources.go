package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose habit data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	t := toolset{app: deps.App}

	srv.Resource("habitpulse://habits").
		Name("Habits").
		Description("All habits with their current metrics, archived ones included").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return t.jsonResource(ctx, uri, func(ctx context.Context) (any, error) {
				return t.habitList(ctx, habitListInput{IncludeArchived: true})
			})
		})

	srv.Resource("habitpulse://habits/active").
		Name("Active Habits").
		Description("Habits that are not archived, longest current streak first").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return t.jsonResource(ctx, uri, func(ctx context.Context) (any, error) {
				return t.habitList(ctx, habitListInput{SortBy: "streak", SortOrder: "desc"})
			})
		})

	srv.Resource("habitpulse://insights/today").
		Name("Today's Insights").
		Description("The insight feed for today, served from cache when nothing changed").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return t.jsonResource(ctx, uri, func(ctx context.Context) (any, error) {
				return t.insightsGenerate(ctx, insightsGenerateInput{})
			})
		})

	return nil
}

func (t toolset) jsonResource(ctx context.Context, uri string, load func(context.Context) (any, error)) (*mcp.ResourceContent, error) {
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
