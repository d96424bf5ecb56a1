package bus

import (
	"context"

	"github.com/next-trace/scg-contracts/contract/event"
)

// EventPublisher abstracts publishing integration events to a broker/bus.
// Library users provide an implementation that maps to Kafka/NATS/RabbitMQ etc.
// Implementations must be safe for concurrent use.
type EventPublisher interface {
	PublishIntegration(ctx context.Context, evt event.IntegrationEvent, opts PublishOptions) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, evt event.IntegrationEvent, opts PublishOptions) error

func (f PublisherFunc) PublishIntegration(ctx context.Context, evt event.IntegrationEvent, opts PublishOptions) error {
	return f(ctx, evt, opts)
}
