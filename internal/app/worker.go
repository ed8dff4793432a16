package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	habitCommands "github.com/felixgeelhaar/habitpulse/internal/habits/application/commands"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// WorkerConfig tunes the background worker.
type WorkerConfig struct {
	// UserID owns the habits whose goals are moved forward.
	UserID uuid.UUID
	// ApplyInterval is how often goal progression runs. Zero disables it.
	ApplyInterval time.Duration
	// StatsInterval is how often counters are logged. Zero disables it.
	StatsInterval time.Duration
	// RabbitMQURL enables the event consumer when set.
	RabbitMQURL string
}

// WorkerStats reports what the worker has done so far.
type WorkerStats struct {
	Running        bool      `json:"running"`
	GoalRuns       int64     `json:"goal_runs"`
	GoalsChanged   int64     `json:"goals_changed"`
	LastRunAt      time.Time `json:"last_run_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at,omitzero"`
	ConsumerActive bool      `json:"consumer_active"`
}

// eventConsumer feeds broker deliveries to the event registry.
type eventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// Worker runs goal progression on a schedule and consumes broker events.
type Worker struct {
	container   *Container
	cfg         WorkerConfig
	logger      *slog.Logger
	now         func() time.Time
	newConsumer func() (eventConsumer, error)

	mu    sync.RWMutex
	stats WorkerStats
}

// NewWorker creates a worker over the container's handlers.
func NewWorker(c *Container, cfg WorkerConfig) *Worker {
	w := &Worker{
		container: c,
		cfg:       cfg,
		logger:    c.Logger.With("component", "worker"),
		now:       time.Now,
	}
	w.newConsumer = w.dialConsumer
	return w
}

func (w *Worker) dialConsumer() (eventConsumer, error) {
	return eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:     w.cfg.RabbitMQURL,
		Logger:  w.logger,
		Metrics: w.container.Metrics,
	}, w.container.EventRegistry)
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Run applies goal progression once, then keeps working until ctx is done
// or the event consumer fails, in which case the consumer error is returned.
func (w *Worker) Run(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if w.cfg.RabbitMQURL != "" {
		consumer, err := w.newConsumer()
		if err != nil {
			return err
		}
		defer consumer.Close()

		w.mu.Lock()
		w.stats.ConsumerActive = true
		w.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	if w.cfg.ApplyInterval > 0 {
		w.ApplyGoals(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.every(ctx, w.cfg.ApplyInterval, w.ApplyGoals)
		}()
	}

	if w.cfg.StatsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.every(ctx, w.cfg.StatsInterval, w.logStats)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		w.logger.Error("event consumer stopped", "error", err)
	}
	cancel()
	wg.Wait()
	return err
}

// ApplyGoals runs one goal progression pass for the configured user.
func (w *Worker) ApplyGoals(ctx context.Context) {
	now := w.now()
	result, err := w.container.ApplyGoalProgressionHandler.Handle(ctx, habitCommands.ApplyGoalProgressionCommand{
		UserID: w.cfg.UserID,
		AsOf:   now,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.GoalRuns++
	w.stats.LastRunAt = now
	if err != nil {
		w.stats.LastError = err.Error()
		w.stats.LastErrorAt = now
		w.logger.Error("goal progression failed", "error", err)
		return
	}
	changed := len(result.Changed())
	w.stats.GoalsChanged += int64(changed)
	w.logger.Info("goal progression applied",
		"habits", len(result.Adjustments),
		"changed", changed,
		"failed", len(result.Failed),
	)
}

func (w *Worker) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (w *Worker) logStats(context.Context) {
	stats := w.Stats()
	w.logger.Info("worker stats",
		"goal_runs", stats.GoalRuns,
		"goals_changed", stats.GoalsChanged,
		"last_run_at", stats.LastRunAt,
		"last_error", stats.LastError,
		"counters", w.container.Metrics.Counters(),
	)
}

func (w *Worker) setRunning(running bool) {
	w.mu.Lock()
	w.stats.Running = running
	w.mu.Unlock()
}
