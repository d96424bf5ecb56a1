package redelivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// DefaultMaxRetries bounds redelivery when no limit is configured.
const DefaultMaxRetries = 5

// Dispatcher runs received integration events through a handler.
// It is safe for concurrent use when its handler, store and publisher are.
type Dispatcher struct {
	handler    cbus.IntegrationEventHandler
	pub        cbus.EventPublisher
	registry   *event.Registry
	seen       SeenStore
	maxRetries int
	clock      clockwork.Clock
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry decodes payloads of registered types into concrete domain events.
func WithRegistry(r *event.Registry) Option { return func(d *Dispatcher) { d.registry = r } }

// WithSeenStore enables idempotency checks. Without a store every delivery is handled.
func WithSeenStore(s SeenStore) Option { return func(d *Dispatcher) { d.seen = s } }

// WithMaxRetries sets the highest retry count that may still be republished.
// Negative values are treated as zero.
func WithMaxRetries(n int) Option { return func(d *Dispatcher) { d.maxRetries = max(n, 0) } }

// WithClock sets the clock used for expiry checks.
func WithClock(c clockwork.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets the logger. A nil logger discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New builds a Dispatcher. pub receives Retry copies; it may be nil when the
// caller never wants republishing, in which case retriable failures report Failed.
func New(h cbus.IntegrationEventHandler, pub cbus.EventPublisher, opts ...Option) (*Dispatcher, error) {
	if h == nil {
		return nil, fmt.Errorf("redelivery: handler required: %w", berr.ErrInvalidArgument)
	}

	d := &Dispatcher{
		handler:    h,
		pub:        pub,
		maxRetries: DefaultMaxRetries,
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, o := range opts {
		o(d)
	}

	return d, nil
}

// Dispatch decodes data received on topic and dispatches it.
// Undecodable messages are Rejected with a serialization error.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, data []byte) (Outcome, error) {
	e, err := d.decode(data)
	if err != nil {
		d.logger.ErrorContext(ctx, "rejecting undecodable message", "topic", topic, "err", err)

		return Rejected, err
	}

	return d.DispatchEvent(ctx, topic, e)
}

func (d *Dispatcher) decode(data []byte) (event.IntegrationEvent, error) {
	if d.registry != nil {
		return d.registry.Decode(data)
	}

	return event.Unmarshal(data)
}

// DispatchEvent runs an already decoded event through the handler.
// A non-nil error accompanies Rejected, Exhausted and Failed.
func (d *Dispatcher) DispatchEvent(ctx context.Context, topic string, e event.IntegrationEvent) (Outcome, error) {
	log := d.logger.With(
		"event_id", e.EventID(),
		"event_type", e.EventType(),
		"topic", topic,
		"retry_count", e.RetryCount(),
	)

	if e.ExpiredAt(d.clock.Now()) {
		log.InfoContext(ctx, "discarding expired integration event")

		return Expired, nil
	}

	if d.seen != nil {
		seen, err := d.seen.Seen(ctx, e.EventID())
		if err != nil {
			return Failed, fmt.Errorf("redelivery seen check %s: %w", e.EventID(), err)
		}

		if seen {
			log.DebugContext(ctx, "skipping duplicate integration event")

			return Duplicate, nil
		}
	}

	herr := d.handler.HandleIntegration(ctx, e)
	if herr == nil {
		d.markSeen(ctx, log, e)

		return Processed, nil
	}

	if berr.IsPermanent(herr) {
		log.WarnContext(ctx, "rejecting integration event", "err", herr)

		return Rejected, herr
	}

	return d.retry(ctx, log, topic, e, herr)
}

func (d *Dispatcher) markSeen(ctx context.Context, log *slog.Logger, e event.IntegrationEvent) {
	if d.seen == nil {
		return
	}

	if err := d.seen.MarkSeen(ctx, e.EventID()); err != nil {
		// The event was handled; a later redelivery may be handled again.
		log.WarnContext(ctx, "failed to record processed event", "err", err)
	}
}

func (d *Dispatcher) retry(
	ctx context.Context,
	log *slog.Logger,
	topic string,
	e event.IntegrationEvent,
	cause error,
) (Outcome, error) {
	next := e.Retry()
	if next.RetryCount() > d.maxRetries {
		log.ErrorContext(ctx, "retry budget exhausted", "err", cause)

		return Exhausted, fmt.Errorf("redelivery %s after %d retries: %w",
			e.EventID(), e.RetryCount(), errors.Join(berr.ErrRetryExhausted, cause))
	}

	if d.pub == nil {
		return Failed, fmt.Errorf("redelivery %s: %w", e.EventID(), errors.Join(berr.ErrAsyncNotConfigured, cause))
	}

	if err := d.pub.PublishIntegration(ctx, next, cbus.PublishOptions{Topic: topic}); err != nil {
		log.ErrorContext(ctx, "republish failed", "err", err)

		return Failed, fmt.Errorf("redelivery republish %s: %w", e.EventID(), errors.Join(err, cause))
	}

	log.InfoContext(ctx, "republished integration event for retry", "err", cause)

	return Retried, nil
}
