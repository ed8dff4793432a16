package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Handler reacts to events with the routing keys it declares.
type Handler interface {
	EventTypes() []string
	Handle(ctx context.Context, event *Envelope) error
}

// Registry maps routing keys to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{handlers: make(map[string][]Handler), logger: logger}
}

// Register adds h for each of its event types.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range h.EventTypes() {
		r.handlers[key] = append(r.handlers[key], h)
	}
}

// EventTypes lists the routing keys with at least one handler.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	return keys
}

// Dispatch runs every handler for the event's routing key. All handlers run;
// the last error is returned.
func (r *Registry) Dispatch(ctx context.Context, event *Envelope) error {
	r.mu.RLock()
	handlers := r.handlers[event.RoutingKey]
	r.mu.RUnlock()

	var lastErr error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			r.logger.Error("event handler failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			lastErr = err
		}
	}
	return lastErr
}

// InProcessBus delivers events synchronously to registered handlers.
// It is the local-mode publisher when no broker is configured.
type InProcessBus struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInProcessBus creates a bus over registry.
func NewInProcessBus(registry *Registry, logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{registry: registry, logger: logger}
}

// Publish decodes the envelope and dispatches it. Handler failures are logged, not returned.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := Decode(payload, routingKey)
	if err != nil {
		b.logger.Error("dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	if err := b.registry.Dispatch(ctx, event); err != nil {
		b.logger.Warn("in-process dispatch failed", "routing_key", routingKey, "error", err)
	}
	return nil
}

func (b *InProcessBus) Close() error {
	return nil
}
