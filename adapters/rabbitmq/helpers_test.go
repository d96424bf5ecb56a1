package rabbitmq_test

import (
	"context"

	"github.com/next-trace/scg-contracts/adapters/rabbitmq"
	"github.com/next-trace/scg-contracts/contract/event"
)

type fakePublisher struct {
	calls []rabbitmq.PubMsg
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, m rabbitmq.PubMsg) error {
	f.calls = append(f.calls, m)

	return f.err
}

type fakeProp struct{}

func (fakeProp) Inject(_ context.Context, h map[string]string) { h["traceparent"] = "00-xyz" }

func sample() event.IntegrationEvent {
	return event.Create(nil, "TransferCompleted", "payments", map[string]int{"amount": 10},
		event.WithPartitionKey("TRF-1"))
}
