package bus

import (
	"context"

	"github.com/next-trace/scg-contracts/contract/event"
)

// DomainEventHandler handles domain events of type E in-process.
// Implementations must be safe for concurrent use by multiple goroutines.
type DomainEventHandler[E event.DomainEvent] interface {
	Handle(ctx context.Context, e E) error
}

// IntegrationEventHandler processes an integration event received from the bus.
// Return errors.Permanent to stop redelivery.
type IntegrationEventHandler interface {
	HandleIntegration(ctx context.Context, e event.IntegrationEvent) error
}

// IntegrationHandlerFunc adapts a function to IntegrationEventHandler.
type IntegrationHandlerFunc func(ctx context.Context, e event.IntegrationEvent) error

func (f IntegrationHandlerFunc) HandleIntegration(ctx context.Context, e event.IntegrationEvent) error {
	return f(ctx, e)
}
