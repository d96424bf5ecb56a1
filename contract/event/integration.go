package event

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"reflect"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// IntegrationEvent is the cross-service envelope published to the message bus.
// It is an immutable value: every accessor returns a copy and Retry derives a new event.
type IntegrationEvent struct {
	eventID       string
	eventType     string
	occurredAt    time.Time
	sourceService string
	traceID       string
	spanID        string
	version       int
	payload       any
	metadata      map[string]string
	aggregateID   string
	aggregateType string
	partitionKey  string
	sequence      int64
	hasSequence   bool
	retryCount    int
	expiresAt     time.Time
	hasExpiry     bool
}

// Option sets an optional field while an IntegrationEvent is being built.
type Option func(*IntegrationEvent)

// WithTraceID sets the distributed trace id.
func WithTraceID(id string) Option {
	return func(e *IntegrationEvent) { e.traceID = id }
}

// WithSpanID sets the span id.
func WithSpanID(id string) Option {
	return func(e *IntegrationEvent) { e.spanID = id }
}

// WithSpanContext copies trace and span ids from the OpenTelemetry span in ctx.
// It is a no-op when ctx carries no valid span context.
func WithSpanContext(ctx context.Context) Option {
	return func(e *IntegrationEvent) {
		sc := trace.SpanContextFromContext(ctx)
		if !sc.IsValid() {
			return
		}

		e.traceID = sc.TraceID().String()
		e.spanID = sc.SpanID().String()
	}
}

// WithMetadata attaches a copy of m. An empty map leaves metadata absent.
func WithMetadata(m map[string]string) Option {
	return func(e *IntegrationEvent) {
		if len(m) == 0 {
			e.metadata = nil
			return
		}

		e.metadata = maps.Clone(m)
	}
}

// WithSequenceNumber sets the intra-aggregate ordering number.
func WithSequenceNumber(n int64) Option {
	return func(e *IntegrationEvent) {
		e.sequence = n
		e.hasSequence = true
	}
}

// WithExpiresAt sets an absolute expiry.
func WithExpiresAt(t time.Time) Option {
	return func(e *IntegrationEvent) {
		e.expiresAt = t.UTC()
		e.hasExpiry = true
	}
}

// WithTTL sets expiry to ttl after the event's occurrence time.
func WithTTL(ttl time.Duration) Option {
	return func(e *IntegrationEvent) {
		e.expiresAt = e.occurredAt.Add(ttl)
		e.hasExpiry = true
	}
}

// WithPartitionKey overrides the ordering key. Events for one aggregate only stay
// ordered if every producer picks the same key for it.
func WithPartitionKey(key string) Option {
	return func(e *IntegrationEvent) { e.partitionKey = key }
}

// From wraps a DomainEvent for publishing. The integration event gets its own id;
// type, time, version and aggregate linkage are copied from d, the partition key
// defaults to d's aggregate id and the retry count starts at zero.
func From(src Source, d DomainEvent, sourceService string, opts ...Option) IntegrationEvent {
	src = orSystem(src)

	e := IntegrationEvent{
		eventID:       src.NewID(),
		eventType:     d.EventType(),
		occurredAt:    d.OccurredAt(),
		sourceService: sourceService,
		version:       d.Version(),
		payload:       d,
		aggregateID:   d.AggregateID(),
		aggregateType: d.AggregateType(),
		partitionKey:  d.AggregateID(),
	}

	return e.apply(opts)
}

// Create builds an integration event with no backing DomainEvent, occurring now at version 1.
func Create(src Source, eventType, sourceService string, payload any, opts ...Option) IntegrationEvent {
	src = orSystem(src)

	e := IntegrationEvent{
		eventID:       src.NewID(),
		eventType:     eventType,
		occurredAt:    src.Now(),
		sourceService: sourceService,
		version:       1,
		payload:       payload,
	}

	return e.apply(opts)
}

// CreateWithTTL is Create with expiry set to ttl after the occurrence time.
func CreateWithTTL(
	src Source,
	eventType, sourceService string,
	payload any,
	ttl time.Duration,
	opts ...Option,
) IntegrationEvent {
	e := Create(src, eventType, sourceService, payload)
	e.expiresAt = e.occurredAt.Add(ttl)
	e.hasExpiry = true

	return e.apply(opts)
}

func (e IntegrationEvent) apply(opts []Option) IntegrationEvent {
	for _, o := range opts {
		if o != nil {
			o(&e)
		}
	}

	return e
}

func (e IntegrationEvent) EventID() string       { return e.eventID }
func (e IntegrationEvent) EventType() string     { return e.eventType }
func (e IntegrationEvent) OccurredAt() time.Time { return e.occurredAt }
func (e IntegrationEvent) SourceService() string { return e.sourceService }
func (e IntegrationEvent) TraceID() string       { return e.traceID }
func (e IntegrationEvent) SpanID() string        { return e.spanID }
func (e IntegrationEvent) Version() int          { return e.version }
func (e IntegrationEvent) AggregateID() string   { return e.aggregateID }
func (e IntegrationEvent) AggregateType() string { return e.aggregateType }
func (e IntegrationEvent) PartitionKey() string  { return e.partitionKey }
func (e IntegrationEvent) RetryCount() int       { return e.retryCount }

// Payload returns the wrapped DomainEvent, the raw application data, or, for an
// event decoded without a matching registration, the payload as json.RawMessage.
func (e IntegrationEvent) Payload() any { return e.payload }

// DomainEvent returns the payload when it is a DomainEvent.
func (e IntegrationEvent) DomainEvent() (DomainEvent, bool) {
	d, ok := e.payload.(DomainEvent)
	return d, ok
}

// Metadata returns a copy of the metadata, or nil when absent.
func (e IntegrationEvent) Metadata() map[string]string { return maps.Clone(e.metadata) }

// SequenceNumber returns the sequence number and whether one is set.
func (e IntegrationEvent) SequenceNumber() (int64, bool) { return e.sequence, e.hasSequence }

// ExpiresAt returns the expiry and whether one is set. No expiry means the event never expires.
func (e IntegrationEvent) ExpiresAt() (time.Time, bool) { return e.expiresAt, e.hasExpiry }

// IsExpired reports whether the expiry lies strictly before the current wall clock time.
// It is evaluated on every call.
func (e IntegrationEvent) IsExpired() bool { return e.ExpiredAt(time.Now()) }

// ExpiredAt reports whether the event is expired as of now.
func (e IntegrationEvent) ExpiredAt(now time.Time) bool {
	return e.hasExpiry && e.expiresAt.Before(now)
}

// Retry derives the event to republish after a transient failure: identical in
// every field except a retry count one higher. Id, partition key and expiry are
// kept, so idempotency keys, ordering and TTL survive redelivery.
func (e IntegrationEvent) Retry() IntegrationEvent {
	r := e
	r.retryCount++

	return r
}

// Equal reports whether two events agree on every field. Payloads match when
// they are deeply equal or encode to the same JSON, so a decoded raw payload
// equals the value it was encoded from.
func (e IntegrationEvent) Equal(o IntegrationEvent) bool {
	return e.eventID == o.eventID &&
		e.eventType == o.eventType &&
		e.occurredAt.Equal(o.occurredAt) &&
		e.sourceService == o.sourceService &&
		e.traceID == o.traceID &&
		e.spanID == o.spanID &&
		e.version == o.version &&
		maps.Equal(e.metadata, o.metadata) &&
		e.aggregateID == o.aggregateID &&
		e.aggregateType == o.aggregateType &&
		e.partitionKey == o.partitionKey &&
		e.hasSequence == o.hasSequence && e.sequence == o.sequence &&
		e.retryCount == o.retryCount &&
		e.hasExpiry == o.hasExpiry && e.expiresAt.Equal(o.expiresAt) &&
		samePayload(e.payload, o.payload)
}

func samePayload(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	ab, err := compactPayload(a)
	if err != nil {
		return false
	}

	bb, err := compactPayload(b)
	if err != nil {
		return false
	}

	return bytes.Equal(ab, bb)
}

func compactPayload(p any) ([]byte, error) {
	raw, err := encodePayload(p)
	if err != nil || len(raw) == 0 {
		return raw, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
