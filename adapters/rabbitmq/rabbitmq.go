package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// DefaultExchange is the topic exchange integration events are published to.
const DefaultExchange = "integration"

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
	MessageID  string
	Type       string
	Timestamp  time.Time
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

type Adapter struct {
	Publisher  Publisher
	Exchange   string
	Propagator cbus.HeaderPropagator // optional, for context propagation into headers
}

var _ cbus.EventPublisher = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p, Exchange: DefaultExchange} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cbus.HeaderPropagator) *Adapter {
	a := New(p)
	a.Propagator = hp

	return a
}

func (a *Adapter) PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	body, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbitmq publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	hdrs := cbus.EventHeaders(e, opts.Headers)
	if k := opts.KeyOf(e); k != "" {
		hdrs[cbus.HeaderPartitionKey] = k
	}

	cbus.Inject(ctx, a.Propagator, hdrs)

	msg := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: opts.TopicOf(e),
		Body:       body,
		Headers:    hdrs,
		MessageID:  e.EventID(),
		Type:       e.EventType(),
		Timestamp:  e.OccurredAt(),
	}

	return a.publish(ctx, msg)
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq publish: %w", berr.ErrPublishFailed)
	}

	return nil
}

func (a *Adapter) publish(ctx context.Context, msg PubMsg) error {
	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish %q: %w", msg.RoutingKey, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func publishing(m PubMsg) amqp.Publishing {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Headers:      h,
		ContentType:  cbus.ContentTypeJSON,
		MessageId:    m.MessageID,
		Type:         m.Type,
		Timestamp:    m.Timestamp,
		Body:         m.Body,
	}
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m))
}

// NewWithAMQPChannel wraps a caller-managed channel. The exchange must already exist.
func NewWithAMQPChannel(ch *amqp.Channel, exchange string) *Adapter {
	a := New(amqpChannelPublisher{ch: ch})
	if exchange != "" {
		a.Exchange = exchange
	}

	return a
}
