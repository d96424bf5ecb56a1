package bus

import (
	"context"

	"github.com/next-trace/scg-contracts/contract/event"
)

// Bus is a minimal, tech-agnostic interface that mirrors the capabilities of the
// concrete service bus while remaining non-generic for interface compatibility.
//
// Typed helpers remain available via generic helper functions in the servicebus package.
// This interface is intended for consumers that want to depend only on contracts.
type Bus interface {
	// Bind (untyped) – type-safe bindings continue via helper funcs in servicebus.
	BindDomainEventOf(sample event.DomainEvent, handler func(ctx context.Context, v event.DomainEvent) error) error

	// Events
	PublishDomain(ctx context.Context, e event.DomainEvent) error
	PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts PublishOptions) error
	Raise(ctx context.Context, e event.DomainEvent, opts ...event.Option) (event.IntegrationEvent, error)

	// Lifecycle
	Close() error
}
