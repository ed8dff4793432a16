package queries

import (
	"context"
	"errors"
	"log/slog"
	"time"

	habitDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/insights/application/services"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/felixgeelhaar/habitpulse/pkg/observability"
	"github.com/google/uuid"
)

// GetInsightsQuery asks for a user's insight feed.
type GetInsightsQuery struct {
	UserID uuid.UUID
	// AsOf defaults to now. Feeds are cached per calendar day.
	AsOf time.Time
	// Refresh skips the cache and regenerates the feed.
	Refresh bool
	// Type keeps only insights of one type when set.
	Type domain.Type
	// Limit caps the number of insights returned when positive.
	Limit int
}

// GetInsightsResult is the feed plus where it came from.
type GetInsightsResult struct {
	Feed   *domain.Feed
	Cached bool
}

// GetInsightsHandler handles the GetInsightsQuery.
type GetInsightsHandler struct {
	habitRepo habitDomain.Repository
	engine    *services.Engine
	cache     domain.FeedCache
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewGetInsightsHandler creates a new GetInsightsHandler. cache may be nil.
func NewGetInsightsHandler(
	habitRepo habitDomain.Repository,
	engine *services.Engine,
	cache domain.FeedCache,
	logger *slog.Logger,
	metrics observability.Metrics,
) *GetInsightsHandler {
	if engine == nil {
		engine = services.NewEngine(nil, services.DefaultThresholds())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &GetInsightsHandler{
		habitRepo: habitRepo,
		engine:    engine,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

// Handle executes the GetInsightsQuery.
func (h *GetInsightsHandler) Handle(ctx context.Context, query GetInsightsQuery) (*GetInsightsResult, error) {
	asOf := query.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	day := habitDomain.DayOf(asOf).String()

	if feed, ok := h.cached(ctx, query, day); ok {
		h.metrics.Counter(observability.MetricInsightsCacheHits, 1)
		return &GetInsightsResult{Feed: narrow(feed, query), Cached: true}, nil
	}

	feed, err := observability.TimeOperation(h.logger, h.metrics, "insights.generate", func() (*domain.Feed, error) {
		habits, err := h.habitRepo.FindActiveByUserID(ctx, query.UserID)
		if err != nil {
			return nil, err
		}
		insights, err := h.engine.Generate(habits, asOf)
		if err != nil {
			return nil, err
		}
		if insights == nil {
			insights = []domain.Insight{}
		}
		return &domain.Feed{
			UserID:      query.UserID,
			Day:         day,
			GeneratedAt: time.Now().UTC(),
			Insights:    insights,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricInsightsGenerated, int64(len(feed.Insights)))
	h.logger.InfoContext(ctx, "insights generated", "day", day, "count", len(feed.Insights))

	if h.cache != nil {
		if err := h.cache.Set(ctx, feed); err != nil {
			h.logger.WarnContext(ctx, "insight feed not cached", "day", day, "error", err)
		}
	}
	return &GetInsightsResult{Feed: narrow(feed, query)}, nil
}

func (h *GetInsightsHandler) cached(ctx context.Context, query GetInsightsQuery, day string) (*domain.Feed, bool) {
	if h.cache == nil || query.Refresh {
		return nil, false
	}
	feed, err := h.cache.Get(ctx, query.UserID, day)
	if err != nil {
		if !errors.Is(err, domain.ErrFeedNotCached) {
			h.logger.WarnContext(ctx, "insight cache read failed", "day", day, "error", err)
		}
		return nil, false
	}
	return feed, true
}

// narrow applies the type filter and limit to a copy of the feed.
func narrow(feed *domain.Feed, query GetInsightsQuery) *domain.Feed {
	if query.Type == "" && query.Limit <= 0 {
		return feed
	}
	out := *feed
	out.Insights = make([]domain.Insight, 0, len(feed.Insights))
	for _, in := range feed.Insights {
		if query.Type != "" && in.Type != query.Type {
			continue
		}
		if query.Limit > 0 && len(out.Insights) == query.Limit {
			break
		}
		out.Insights = append(out.Insights, in)
	}
	return &out
}
