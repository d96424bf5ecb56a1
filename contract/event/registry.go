package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// Decoder rebuilds a concrete DomainEvent from its encoded payload.
type Decoder func(raw json.RawMessage) (DomainEvent, error)

// Registry maps event type discriminators to payload decoders.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register binds the decoder for concrete event type T under TypeName[T].
// T must embed Base, either directly or through a pointer type.
func Register[T DomainEvent](r *Registry) error {
	return r.RegisterDecoder(TypeName[T](), decodeInto[T])
}

// RegisterDecoder binds a custom decoder to eventType. Duplicate bindings are rejected.
func (r *Registry) RegisterDecoder(eventType string, dec Decoder) error {
	if eventType == "" || dec == nil {
		return fmt.Errorf("register %q: %w", eventType, berr.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[eventType]; exists {
		return fmt.Errorf("register %s: %w", eventType, berr.ErrRegistrationExists)
	}

	r.decoders[eventType] = dec

	return nil
}

// Types lists registered event types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}

// DecodePayload decodes raw as the DomainEvent registered for eventType.
func (r *Registry) DecodePayload(eventType string, raw json.RawMessage) (DomainEvent, error) {
	r.mu.RLock()
	dec, ok := r.decoders[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("decode payload %s: %w", eventType, berr.ErrUnknownEventType)
	}

	d, err := dec(raw)
	if err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", eventType, errors.Join(berr.ErrSerializationFailed, err))
	}

	return d, nil
}

// Decode parses a wire message. Payloads of registered types come back as their
// concrete DomainEvent; any other payload stays json.RawMessage.
func (r *Registry) Decode(data []byte) (IntegrationEvent, error) {
	e, err := Unmarshal(data)
	if err != nil {
		return IntegrationEvent{}, err
	}

	raw, ok := e.payload.(json.RawMessage)
	if !ok {
		return e, nil
	}

	r.mu.RLock()
	_, known := r.decoders[e.eventType]
	r.mu.RUnlock()

	if !known {
		return e, nil
	}

	d, err := r.DecodePayload(e.eventType, raw)
	if err != nil {
		return IntegrationEvent{}, fmt.Errorf("decode integration event %s: %w", e.eventID, err)
	}

	e.payload = d

	return e, nil
}

func decodeInto[T DomainEvent](raw json.RawMessage) (DomainEvent, error) {
	var h domainHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}

	if h.EventID == "" {
		return nil, errors.New("payload carries no eventId")
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	rs, ok := any(&v).(restorer)
	if !ok {
		rs, ok = any(v).(restorer)
	}

	if !ok {
		return nil, fmt.Errorf("%s does not embed event.Base", TypeName[T]())
	}

	rs.restore(h)

	return v, nil
}
