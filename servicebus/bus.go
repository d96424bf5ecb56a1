package servicebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// Bus is a thin in-process mediator for domain events with an integration publisher behind it.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	mu sync.RWMutex

	dom map[reflect.Type][]domainEntry

	// global publish middleware executed in registration order
	pubMW []PublishMiddleware

	pub    cbus.EventPublisher
	defs   []event.Option
	src    event.Source
	source string
	logger *slog.Logger
}

var _ cbus.Bus = (*Bus)(nil)

type domainEntry struct {
	call func(ctx context.Context, e event.DomainEvent) error
}

// BusOption configures a Bus instance.
type BusOption func(*Bus)

// PublishFunc publishes one integration event.
type PublishFunc func(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error

// PublishMiddleware wraps integration publishing. Middlewares are executed in registration order.
type PublishMiddleware func(next PublishFunc) PublishFunc

// WithPublishMiddleware registers global publish middleware via an option.
func WithPublishMiddleware(mw ...PublishMiddleware) BusOption {
	return func(b *Bus) { b.pubMW = append(b.pubMW, mw...) }
}

// WithSource sets the id/clock source used when wrapping domain events.
func WithSource(src event.Source) BusOption {
	return func(b *Bus) {
		if src != nil {
			b.src = src
		}
	}
}

// WithEventDefaults sets options applied to every event built by Raise, before the caller's own.
func WithEventDefaults(opts ...event.Option) BusOption {
	return func(b *Bus) { b.defs = append(b.defs, opts...) }
}

// New constructs a Bus publishing as sourceService through pub. A nil logger discards logs.
func New(pub cbus.EventPublisher, sourceService string, logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Bus{
		dom:    make(map[reflect.Type][]domainEntry),
		pub:    pub,
		src:    event.System(),
		source: sourceService,
		logger: logger,
	}

	for _, o := range opts {
		o(b)
	}

	return b
}

// SourceService is the service name stamped on published events.
func (b *Bus) SourceService() string { return b.source }

// BindDomainEventOf registers a domain event handler for the concrete type of sample.
func (b *Bus) BindDomainEventOf(
	sample event.DomainEvent,
	handler func(ctx context.Context, e event.DomainEvent) error,
) error {
	if sample == nil || handler == nil {
		return fmt.Errorf("bind domain event: %w", berr.ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(sample)
	b.dom[t] = append(b.dom[t], domainEntry{call: handler})

	return nil
}

// BindDomainEvent registers a typed domain event handler. Multiple handlers are allowed.
func BindDomainEvent[E event.DomainEvent](b *Bus, h cbus.DomainEventHandler[E]) error {
	if h == nil {
		return fmt.Errorf("bind domain event %s: %w", event.TypeName[E](), berr.ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeFor[E]()
	entry := domainEntry{
		call: func(ctx context.Context, v event.DomainEvent) error {
			e, ok := v.(E)
			if !ok {
				return fmt.Errorf("publish domain %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
			}

			return h.Handle(ctx, e)
		},
	}
	b.dom[t] = append(b.dom[t], entry)

	return nil
}

// PublishDomain delivers a domain event to every handler bound to its type, synchronously.
// All errors are aggregated with errors.Join and returned.
func (b *Bus) PublishDomain(ctx context.Context, e event.DomainEvent) error {
	b.mu.RLock()
	entries := append([]domainEntry(nil), b.dom[reflect.TypeOf(e)]...)
	b.mu.RUnlock()

	if len(entries) == 0 {
		return nil
	}

	var errs []error

	for _, ent := range entries {
		if err := ent.call(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublishIntegration publishes an integration event via the configured EventPublisher.
// Events already expired by the bus clock are refused. The key defaults to the event's partition key.
func (b *Bus) PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error {
	if b.pub == nil {
		return fmt.Errorf("publish integration %s: %w", e.EventType(), berr.ErrAsyncNotConfigured)
	}

	if e.ExpiredAt(b.src.Now()) {
		b.logger.WarnContext(ctx, "dropping expired integration event",
			"event_id", e.EventID(), "event_type", e.EventType())

		return fmt.Errorf("publish integration %s %s: %w", e.EventType(), e.EventID(), berr.ErrEventExpired)
	}

	opts.Key = opts.KeyOf(e)

	b.mu.RLock()
	chain := append([]PublishMiddleware(nil), b.pubMW...)
	b.mu.RUnlock()

	// Build chain so the first registered middleware runs first
	final := PublishFunc(b.pub.PublishIntegration)
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	if err := final(ctx, e, opts); err != nil {
		return err
	}

	b.logger.DebugContext(ctx, "published integration event",
		"event_id", e.EventID(),
		"event_type", e.EventType(),
		"topic", opts.TopicOf(e),
		"retry_count", e.RetryCount(),
	)

	return nil
}

// Raise runs the in-process handlers for d and, if they all succeed, wraps d into an
// IntegrationEvent and publishes it. The published event is returned.
func (b *Bus) Raise(ctx context.Context, d event.DomainEvent, opts ...event.Option) (event.IntegrationEvent, error) {
	if err := b.PublishDomain(ctx, d); err != nil {
		return event.IntegrationEvent{}, err
	}

	all := append(append([]event.Option(nil), b.defs...), opts...)
	ie := event.From(b.src, d, b.source, all...)
	if err := b.PublishIntegration(ctx, ie, cbus.PublishOptions{}); err != nil {
		return ie, err
	}

	return ie, nil
}

// Close releases nothing today; transports own their connections.
func (b *Bus) Close() error { return nil }
