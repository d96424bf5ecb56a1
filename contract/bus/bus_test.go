package bus_test

import (
	"context"
	"testing"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	"github.com/next-trace/scg-contracts/contract/event"
)

func sample() event.IntegrationEvent {
	return event.Create(event.System(), "AccountOpened", "account-service", nil,
		event.WithPartitionKey("ACC-1"), event.WithTraceID("trace-1"))
}

func TestPublishOptions_Defaults(t *testing.T) {
	e := sample()

	var o cbus.PublishOptions
	if o.TopicOf(e) != "AccountOpened" {
		t.Fatalf("topic: %s", o.TopicOf(e))
	}

	if o.KeyOf(e) != "ACC-1" {
		t.Fatalf("key: %s", o.KeyOf(e))
	}

	o = cbus.PublishOptions{Topic: "accounts", Key: "k"}
	if o.TopicOf(e) != "accounts" || o.KeyOf(e) != "k" {
		t.Fatalf("overrides ignored: %s/%s", o.TopicOf(e), o.KeyOf(e))
	}
}

func TestEventHeaders(t *testing.T) {
	e := sample().Retry()
	h := cbus.EventHeaders(e, map[string]string{"tenant": "kr", cbus.HeaderEventID: "spoofed"})

	if h[cbus.HeaderEventID] != e.EventID() {
		t.Fatalf("standard header must win: %s", h[cbus.HeaderEventID])
	}

	if h[cbus.HeaderRetryCount] != "1" || h[cbus.HeaderPartitionKey] != "ACC-1" || h[cbus.HeaderTraceID] != "trace-1" {
		t.Fatalf("headers: %+v", h)
	}

	if h["tenant"] != "kr" || h[cbus.HeaderContentType] != cbus.ContentTypeJSON {
		t.Fatalf("headers: %+v", h)
	}

	bare := cbus.EventHeaders(event.Create(event.System(), "Ping", "svc", nil), nil)
	if _, ok := bare[cbus.HeaderPartitionKey]; ok {
		t.Fatalf("absent partition key should not produce a header")
	}
}

type recordingPropagator struct{ calls int }

func (r *recordingPropagator) Inject(_ context.Context, h map[string]string) {
	r.calls++
	h["traceparent"] = "00-x"
}

func TestInject_NilSafe(t *testing.T) {
	h := map[string]string{}
	cbus.Inject(context.Background(), nil, h)
	cbus.NopHeaderPropagator{}.Inject(context.Background(), h)

	if len(h) != 0 {
		t.Fatalf("nil propagator wrote headers: %+v", h)
	}

	rp := &recordingPropagator{}
	cbus.Inject(context.Background(), rp, h)

	if rp.calls != 1 || h["traceparent"] == "" {
		t.Fatalf("propagator not invoked")
	}
}

func TestPublisherFunc(t *testing.T) {
	var got event.IntegrationEvent

	p := cbus.PublisherFunc(func(_ context.Context, e event.IntegrationEvent, _ cbus.PublishOptions) error {
		got = e
		return nil
	})

	e := sample()
	if err := p.PublishIntegration(context.Background(), e, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got.EventID() != e.EventID() {
		t.Fatalf("event not forwarded")
	}
}
