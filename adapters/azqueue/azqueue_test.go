package azqueue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	aq "github.com/next-trace/scg-contracts/adapters/azqueue"
	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

type fakeQueue struct {
	mu       sync.Mutex
	contents []string
	opts     []*azqueue.EnqueueMessageOptions
	err      error
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	if err := ctx.Err(); err != nil {
		return azqueue.EnqueueMessagesResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.contents = append(f.contents, content)
	f.opts = append(f.opts, o)

	return azqueue.EnqueueMessagesResponse{}, f.err
}

type opener struct {
	queues map[string]*fakeQueue
	opened []string
	err    error
}

func (o *opener) open(name string) (aq.QueueClient, error) {
	if o.err != nil {
		return nil, o.err
	}

	o.opened = append(o.opened, name)

	q, ok := o.queues[name]
	if !ok {
		q = &fakeQueue{}
		o.queues[name] = q
	}

	return q, nil
}

func newOpener() *opener { return &opener{queues: map[string]*fakeQueue{}} }

func TestAzQueue_PublishPerTopicQueue(t *testing.T) {
	op := newOpener()
	ad := aq.New(op.open, "scg-")

	e := event.Create(nil, "OrderPlaced", "orders", map[string]int{"qty": 2})

	for range 2 {
		if err := ad.PublishIntegration(t.Context(), e, cbus.PublishOptions{}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	q := op.queues["scg-order-placed"]
	if q == nil || len(q.contents) != 2 {
		t.Fatalf("queues: %+v", op.queues)
	}

	if len(op.opened) != 1 {
		t.Fatalf("client should be cached, opened=%v", op.opened)
	}

	if q.opts[0] != nil {
		t.Fatalf("no ttl expected without expiry")
	}

	back, err := event.Unmarshal([]byte(q.contents[0]))
	if err != nil || back.EventID() != e.EventID() {
		t.Fatalf("body: %v", err)
	}
}

func TestAzQueue_ExpiryBecomesTimeToLive(t *testing.T) {
	op := newOpener()
	ad := aq.New(op.open, "")

	e := event.CreateWithTTL(nil, "QuoteIssued", "pricing", nil, 90*time.Second)
	if err := ad.PublishIntegration(t.Context(), e, cbus.PublishOptions{Topic: "quotes"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	o := op.queues["quotes"].opts[0]
	if o == nil || o.TimeToLive == nil {
		t.Fatalf("ttl not set")
	}

	if ttl := *o.TimeToLive; ttl < 1 || ttl > 90 {
		t.Fatalf("ttl out of range: %d", ttl)
	}
}

func TestAzQueue_Errors(t *testing.T) {
	e := event.Create(nil, "Ping", "svc", nil)

	if err := aq.New(nil, "").PublishIntegration(t.Context(), e, cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("nil opener: %v", err)
	}

	op := newOpener()
	op.err = errors.New("bad queue")

	if err := aq.New(op.open, "").PublishIntegration(t.Context(), e, cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("open error: %v", err)
	}

	op2 := newOpener()
	op2.queues["ping"] = &fakeQueue{err: errors.New("503")}

	if err := aq.New(op2.open, "").PublishIntegration(t.Context(), e, cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("enqueue error: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := aq.New(newOpener().open, "").PublishIntegration(ctx, e, cbus.PublishOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: %v", err)
	}
}

func TestAzQueue_NewWithConnectionString_RequiresValue(t *testing.T) {
	if _, err := aq.NewWithConnectionString(aq.Config{}); !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("want invalid config, got %v", err)
	}
}

func TestQueueName(t *testing.T) {
	cases := map[string]string{
		"OrderPlaced":     "order-placed",
		"evt.orders":      "evt-orders",
		"a":               "aqq",
		"--Weird__Name--": "weird-name",
		"v2Event":         "v2-event",
	}

	for in, want := range cases {
		if got := aq.QueueName(in); got != want {
			t.Fatalf("QueueName(%q)=%q want %q", in, got, want)
		}
	}
}
