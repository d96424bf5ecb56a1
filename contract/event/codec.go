package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// wireEvent is the bus message shape. Absent optionals are omitted; version and
// retryCount are always written.
type wireEvent struct {
	EventID        string            `json:"eventId"`
	EventType      string            `json:"eventType"`
	OccurredAt     time.Time         `json:"occurredAt"`
	SourceService  string            `json:"sourceService"`
	TraceID        string            `json:"traceId,omitempty"`
	SpanID         string            `json:"spanId,omitempty"`
	Version        int               `json:"version"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	AggregateID    string            `json:"aggregateId,omitempty"`
	AggregateType  string            `json:"aggregateType,omitempty"`
	PartitionKey   string            `json:"partitionKey,omitempty"`
	SequenceNumber *int64            `json:"sequenceNumber,omitempty"`
	RetryCount     int               `json:"retryCount"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty"`
}

// domainHeader is the identity a DomainEvent payload carries next to its own fields.
type domainHeader struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
	Version    int       `json:"version"`
}

// MarshalJSON encodes the event in its wire form.
func (e IntegrationEvent) MarshalJSON() ([]byte, error) {
	payload, err := encodePayload(e.payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload of %s: %w", e.eventType, errors.Join(berr.ErrSerializationFailed, err))
	}

	w := wireEvent{
		EventID:       e.eventID,
		EventType:     e.eventType,
		OccurredAt:    e.occurredAt.UTC(),
		SourceService: e.sourceService,
		TraceID:       e.traceID,
		SpanID:        e.spanID,
		Version:       e.version,
		Payload:       payload,
		Metadata:      e.metadata,
		AggregateID:   e.aggregateID,
		AggregateType: e.aggregateType,
		PartitionKey:  e.partitionKey,
		RetryCount:    e.retryCount,
	}

	if e.hasSequence {
		n := e.sequence
		w.SequenceNumber = &n
	}

	if e.hasExpiry {
		t := e.expiresAt.UTC()
		w.ExpiresAt = &t
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form. The payload is kept as json.RawMessage;
// use Registry.Decode to rebuild typed DomainEvent payloads.
func (e *IntegrationEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode integration event: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := w.validate(); err != nil {
		return err
	}

	*e = IntegrationEvent{
		eventID:       w.EventID,
		eventType:     w.EventType,
		occurredAt:    w.OccurredAt.UTC(),
		sourceService: w.SourceService,
		traceID:       w.TraceID,
		spanID:        w.SpanID,
		version:       w.Version,
		aggregateID:   w.AggregateID,
		aggregateType: w.AggregateType,
		partitionKey:  w.PartitionKey,
		retryCount:    w.RetryCount,
	}

	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		e.payload = w.Payload
	}

	if len(w.Metadata) > 0 {
		e.metadata = w.Metadata
	}

	if w.SequenceNumber != nil {
		e.sequence = *w.SequenceNumber
		e.hasSequence = true
	}

	if w.ExpiresAt != nil {
		e.expiresAt = w.ExpiresAt.UTC()
		e.hasExpiry = true
	}

	return nil
}

func (w wireEvent) validate() error {
	switch {
	case w.EventID == "":
		return fmt.Errorf("decode integration event: eventId missing: %w", berr.ErrSerializationFailed)
	case w.EventType == "":
		return fmt.Errorf("decode integration event %s: eventType missing: %w", w.EventID, berr.ErrSerializationFailed)
	case w.SourceService == "":
		return fmt.Errorf("decode integration event %s: sourceService missing: %w", w.EventID, berr.ErrSerializationFailed)
	case w.RetryCount < 0:
		return fmt.Errorf("decode integration event %s: negative retryCount: %w", w.EventID, berr.ErrSerializationFailed)
	}

	return nil
}

// Marshal encodes e in its wire form.
func Marshal(e IntegrationEvent) ([]byte, error) { return json.Marshal(e) }

// Unmarshal decodes a wire message, keeping the payload as json.RawMessage.
// Every failure matches ErrSerializationFailed.
func Unmarshal(data []byte) (IntegrationEvent, error) {
	var e IntegrationEvent
	if err := e.UnmarshalJSON(data); err != nil {
		return IntegrationEvent{}, err
	}

	return e, nil
}

func encodePayload(p any) (json.RawMessage, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case DomainEvent:
		return marshalDomain(v)
	default:
		return json.Marshal(v)
	}
}

// marshalDomain encodes the exported fields of d merged with its identity header.
// Header keys win over same-named fields of the concrete event.
func marshalDomain(d DomainEvent) (json.RawMessage, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("domain event %s must encode as a JSON object: %w", d.EventType(), err)
	}

	if fields == nil {
		fields = make(map[string]json.RawMessage, 4)
	}

	hdr := map[string]any{
		"eventId":    d.EventID(),
		"eventType":  d.EventType(),
		"occurredAt": d.OccurredAt().UTC(),
		"version":    d.Version(),
	}

	for k, v := range hdr {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		fields[k] = raw
	}

	return json.Marshal(fields)
}
