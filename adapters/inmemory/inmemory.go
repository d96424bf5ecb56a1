package inmemory

import (
	"context"
	"sync"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	"github.com/next-trace/scg-contracts/contract/event"
)

// Message is one recorded publication.
type Message struct {
	Topic   string
	Key     string
	Headers map[string]string
	Event   event.IntegrationEvent
}

// Publisher is a thread-safe in-memory implementation of cbus.EventPublisher.
// It records published events for testing and examples.
type Publisher struct {
	mu       sync.Mutex
	Messages []Message
}

// Ensure Publisher implements the contract.
var _ cbus.EventPublisher = (*Publisher)(nil)

// New creates a new in-memory publisher instance.
func New() *Publisher { return &Publisher{} }

func (p *Publisher) PublishIntegration(
	ctx context.Context,
	e event.IntegrationEvent,
	opts cbus.PublishOptions,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := Message{
		Topic:   opts.TopicOf(e),
		Key:     opts.KeyOf(e),
		Headers: cbus.EventHeaders(e, opts.Headers),
		Event:   e,
	}

	p.mu.Lock()
	p.Messages = append(p.Messages, m)
	p.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the recorded messages.
func (p *Publisher) Snapshot() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Message(nil), p.Messages...)
}

// ByKey returns recorded events for one ordering key, in publication order.
func (p *Publisher) ByKey(key string) []event.IntegrationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []event.IntegrationEvent

	for _, m := range p.Messages {
		if m.Key == key {
			out = append(out, m.Event)
		}
	}

	return out
}
