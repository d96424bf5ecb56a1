package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// Record is one produced message. Key is nil when the event carries no partition key.
type Record struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Writer is a minimal Kafka-like writer interface.
// NewWithKgo and NewWithKafkaGo provide implementations; tests inject fakes.
type Writer interface {
	Write(ctx context.Context, rec Record) error
}

// Adapter implements cbus.EventPublisher using an injected Writer.
// The record key is the event's partition key, so one aggregate lands on one partition.
type Adapter struct {
	Writer     Writer
	Propagator cbus.HeaderPropagator // optional
}

var _ cbus.EventPublisher = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka publish: %w", berr.ErrPublishFailed)
	}

	val, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	rec := Record{
		Topic:     opts.TopicOf(e),
		Value:     val,
		Headers:   cbus.EventHeaders(e, opts.Headers),
		Timestamp: e.OccurredAt(),
	}
	cbus.Inject(ctx, a.Propagator, rec.Headers)

	if k := opts.KeyOf(e); k != "" {
		rec.Key = []byte(k)
	}

	if err = a.Writer.Write(ctx, rec); err != nil {
		return wrapProduceErr(rec.Topic, err)
	}

	return nil
}

func wrapProduceErr(topic string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("kafka publish to %q: %w", topic, errors.Join(berr.ErrPublishFailed, err))
}
