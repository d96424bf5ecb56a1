package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-contracts/adapters/kafka"
	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

type fakeWriter struct {
	calls []kafka.Record
	err   error
}

func (f *fakeWriter) Write(_ context.Context, rec kafka.Record) error {
	f.calls = append(f.calls, rec)

	return f.err
}

type fakeProp struct{}

func (fakeProp) Inject(_ context.Context, h map[string]string) { h["traceparent"] = "00-abc" }

func orderPlaced() event.IntegrationEvent {
	return event.Create(nil, "OrderPlaced", "orders", map[string]any{"n": 1},
		event.WithPartitionKey("ORD-1"), event.WithTraceID("t-1"))
}

func TestKafka_PublishIntegration_DefaultTopicAndKey(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)
	ad.Propagator = fakeProp{}

	e := orderPlaced()
	if err := ad.PublishIntegration(t.Context(), e, cbus.PublishOptions{Headers: map[string]string{"ph": "pv"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fw.calls))
	}

	c := fw.calls[0]
	if c.Topic != "OrderPlaced" || string(c.Key) != "ORD-1" {
		t.Fatalf("topic=%s key=%s", c.Topic, c.Key)
	}

	if c.Headers["ph"] != "pv" || c.Headers[cbus.HeaderEventID] != e.EventID() ||
		c.Headers[cbus.HeaderTraceID] != "t-1" || c.Headers["traceparent"] != "00-abc" {
		t.Fatalf("headers: %+v", c.Headers)
	}

	if !c.Timestamp.Equal(e.OccurredAt()) {
		t.Fatalf("timestamp %v, want occurredAt %v", c.Timestamp, e.OccurredAt())
	}

	back, err := event.Unmarshal(c.Value)
	if err != nil {
		t.Fatalf("decode value: %v", err)
	}

	if back.EventID() != e.EventID() || back.SourceService() != "orders" {
		t.Fatalf("decoded: %+v", back)
	}
}

func TestKafka_PublishIntegration_Overrides(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)

	po := cbus.PublishOptions{Topic: "evt.orders", Key: "k"}
	if err := ad.PublishIntegration(t.Context(), orderPlaced(), po); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if fw.calls[0].Topic != "evt.orders" || string(fw.calls[0].Key) != "k" {
		t.Fatalf("call: %+v", fw.calls[0])
	}
}

func TestKafka_NoKeyWhenUnset(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)

	e := event.Create(nil, "Ping", "svc", nil)
	if err := ad.PublishIntegration(t.Context(), e, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if fw.calls[0].Key != nil {
		t.Fatalf("key should be nil, got %q", fw.calls[0].Key)
	}
}

func TestKafka_NilWriterError(t *testing.T) {
	ad := kafka.New(nil)

	err := ad.PublishIntegration(t.Context(), orderPlaced(), cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("expected publish failed, got %v", err)
	}
}

func TestKafka_WriterErrorWrapped(t *testing.T) {
	boom := errors.New("broker down")
	ad := kafka.New(&fakeWriter{err: boom})

	err := ad.PublishIntegration(t.Context(), orderPlaced(), cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) || !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKafka_ContextErrorsPassThrough(t *testing.T) {
	ad := kafka.New(&fakeWriter{err: context.DeadlineExceeded})

	err := ad.PublishIntegration(t.Context(), orderPlaced(), cbus.PublishOptions{})
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	fw := &fakeWriter{}
	if err := kafka.New(fw).PublishIntegration(ctx, orderPlaced(), cbus.PublishOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	if len(fw.calls) != 0 {
		t.Fatalf("writer should not be called")
	}
}

func TestKafka_ConstructorsRequireBrokers(t *testing.T) {
	if _, _, err := kafka.NewWithKgo(kafka.Config{}); !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("kgo: %v", err)
	}

	if _, _, err := kafka.NewWithKafkaGo(kafka.KafkaGoConfig{}); !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("kafka-go: %v", err)
	}
}

func TestKafka_NewWithKafkaGo_Builds(t *testing.T) {
	ad, cleanup, err := kafka.NewWithKafkaGo(kafka.KafkaGoConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	defer cleanup()

	if ad.Writer == nil {
		t.Fatalf("writer not set")
	}
}
