package nats

import (
	"context"
	"errors"
	"fmt"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements cbus.EventPublisher using an injected NATS-like Client.
// NATS has no partitions; the partition key travels as the x-partition-key header.
type Adapter struct {
	Client Client
	// SubjectPrefix is prepended to every subject, e.g. "events.".
	SubjectPrefix string
	Propagator    cbus.HeaderPropagator
}

var _ cbus.EventPublisher = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	body, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("nats publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	headers := cbus.EventHeaders(e, opts.Headers)
	if k := opts.KeyOf(e); k != "" {
		headers[cbus.HeaderPartitionKey] = k
	}

	cbus.Inject(ctx, a.Propagator, headers)

	return a.publish(&publishArgs{
		subject: a.SubjectPrefix + opts.TopicOf(e),
		body:    body,
		headers: headers,
	})
}

type publishArgs struct {
	subject string
	body    []byte
	headers map[string]string
}

func (a *Adapter) publish(args *publishArgs) error {
	if err := a.Client.Publish(args.subject, args.body, args.headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish to %q: %w", args.subject, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats publish: %w", berr.ErrPublishFailed)
	}

	return nil
}
