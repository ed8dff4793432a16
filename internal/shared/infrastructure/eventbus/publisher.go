package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/shared/domain"
	"github.com/google/uuid"
)

// Publisher sends encoded events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Envelope is the wire format of a domain event.
type Envelope struct {
	EventID       uuid.UUID            `json:"event_id"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Metadata      domain.EventMetadata `json:"metadata"`
	Payload       json.RawMessage      `json:"payload"`
}

// Encode wraps a domain event in an envelope and marshals it.
func Encode(event domain.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.RoutingKey(), err)
	}
	return json.Marshal(Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Metadata:      event.Metadata(),
		Payload:       payload,
	})
}

// Decode parses an envelope. A missing routing key is taken from fallbackKey.
func Decode(body []byte, fallbackKey string) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.RoutingKey == "" {
		env.RoutingKey = fallbackKey
	}
	return env, nil
}

// DomainEventPublisher implements application.EventPublisher on top of a Publisher.
type DomainEventPublisher struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewDomainEventPublisher creates a DomainEventPublisher.
func NewDomainEventPublisher(publisher Publisher, logger *slog.Logger) *DomainEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DomainEventPublisher{publisher: publisher, logger: logger}
}

// PublishEvents publishes every event, continuing past failures and returning them joined.
func (p *DomainEventPublisher) PublishEvents(ctx context.Context, events []domain.DomainEvent) error {
	var errs []error
	for _, event := range events {
		body, err := Encode(event)
		if err == nil {
			err = p.publisher.Publish(ctx, event.RoutingKey(), body)
		}
		if err != nil {
			p.logger.Warn("failed to publish domain event",
				"routing_key", event.RoutingKey(),
				"event_id", event.EventID(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FanoutPublisher publishes to several publishers, e.g. the in-process bus and RabbitMQ.
type FanoutPublisher []Publisher

func (f FanoutPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, routingKey, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopPublisher discards events.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that only logs at debug level.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Debug("noop publish", "routing_key", routingKey, "size", len(payload))
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
