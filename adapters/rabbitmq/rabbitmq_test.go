package rabbitmq_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-contracts/adapters/rabbitmq"
	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

func TestRabbitMQ_PublishIntegration(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.NewWithPropagator(fp, fakeProp{})

	e := sample()

	po := cbus.PublishOptions{Headers: map[string]string{"ph": "pv"}}
	if err := ad.PublishIntegration(t.Context(), e, po); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fp.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fp.calls))
	}

	p := fp.calls[0]
	if p.Exchange != rabbitmq.DefaultExchange || p.RoutingKey != "TransferCompleted" {
		t.Fatalf("routing: %q %q", p.Exchange, p.RoutingKey)
	}

	if p.MessageID != e.EventID() || p.Type != "TransferCompleted" || !p.Timestamp.Equal(e.OccurredAt()) {
		t.Fatalf("properties: %+v", p)
	}

	if p.Headers["ph"] != "pv" || p.Headers["traceparent"] != "00-xyz" || p.Headers[cbus.HeaderPartitionKey] != "TRF-1" {
		t.Fatalf("pub headers: %+v", p.Headers)
	}

	back, err := event.Unmarshal(p.Body)
	if err != nil || !back.OccurredAt().Equal(e.OccurredAt()) {
		t.Fatalf("body: %v", err)
	}
}

func TestRabbitMQ_CallerHeadersNotMutated(t *testing.T) {
	fp := &fakePublisher{}
	ad := rabbitmq.NewWithPropagator(fp, fakeProp{})

	h := map[string]string{"ph": "pv"}
	if err := ad.PublishIntegration(t.Context(), sample(), cbus.PublishOptions{Topic: "evt.payments", Headers: h}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(h) != 1 {
		t.Fatalf("caller headers mutated: %+v", h)
	}

	if fp.calls[0].RoutingKey != "evt.payments" {
		t.Fatalf("routing key: %s", fp.calls[0].RoutingKey)
	}
}

func TestRabbitMQ_NilPublisherError(t *testing.T) {
	ad := rabbitmq.New(nil)
	if err := ad.PublishIntegration(t.Context(), sample(), cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestRabbitMQ_Publish_ErrorWrapping_And_ContextCancel(t *testing.T) {
	ad := rabbitmq.New(&fakePublisher{err: errors.New("boom")})

	if err := ad.PublishIntegration(t.Context(), sample(), cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	ad2 := rabbitmq.New(&fakePublisher{err: context.Canceled})

	err := ad2.PublishIntegration(t.Context(), sample(), cbus.PublishOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
