// Package azqueue publishes integration events to Azure Storage queues, one queue per topic.
// Storage queues carry no headers, so consumers read routing data from the envelope body.
package azqueue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
)

// QueueClient is the subset of *azqueue.QueueClient the adapter uses.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// OpenFunc returns the client for a named queue.
type OpenFunc func(queue string) (QueueClient, error)

// Adapter implements cbus.EventPublisher over Azure Storage queues.
type Adapter struct {
	open   OpenFunc
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]QueueClient
}

var _ cbus.EventPublisher = (*Adapter)(nil)

// New creates an adapter that resolves queue clients with open.
// prefix is prepended to every derived queue name.
func New(open OpenFunc, prefix string) *Adapter {
	return &Adapter{
		open:    open,
		prefix:  prefix,
		now:     time.Now,
		clients: make(map[string]QueueClient),
	}
}

type Config struct {
	ConnectionString string
	QueuePrefix      string
	MaxRetries       int32
}

// NewWithConnectionString builds queue clients from a storage connection string.
func NewWithConnectionString(cfg Config) (*Adapter, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("%w: azure storage connection string required", berr.ErrInvalidConfig)
	}

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 5
	}

	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    retries,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}

	open := func(queue string) (QueueClient, error) {
		return azqueue.NewQueueClientFromConnectionString(cfg.ConnectionString, queue, &opts)
	}

	return New(open, cfg.QueuePrefix), nil
}

func (a *Adapter) PublishIntegration(ctx context.Context, e event.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.open == nil {
		return fmt.Errorf("azqueue publish: %w", berr.ErrPublishFailed)
	}

	body, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("azqueue publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	name := QueueName(a.prefix + opts.TopicOf(e))

	qc, err := a.client(name)
	if err != nil {
		return fmt.Errorf("azqueue open %q: %w", name, errors.Join(berr.ErrPublishFailed, err))
	}

	if _, err = qc.EnqueueMessage(ctx, string(body), a.enqueueOptions(e)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("azqueue enqueue %q: %w", name, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

// enqueueOptions maps the event expiry onto the message time-to-live.
func (a *Adapter) enqueueOptions(e event.IntegrationEvent) *azqueue.EnqueueMessageOptions {
	exp, ok := e.ExpiresAt()
	if !ok {
		return nil
	}

	secs := math.Ceil(exp.Sub(a.now()).Seconds())
	ttl := int32(max(1, min(secs, math.MaxInt32)))

	return &azqueue.EnqueueMessageOptions{TimeToLive: &ttl}
}

func (a *Adapter) client(name string) (QueueClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if qc, ok := a.clients[name]; ok {
		return qc, nil
	}

	qc, err := a.open(name)
	if err != nil {
		return nil, err
	}

	a.clients[name] = qc

	return qc, nil
}

// QueueName converts a topic into a valid storage queue name:
// lowercase letters, digits and single hyphens, 3 to 63 characters.
func QueueName(topic string) string {
	var b strings.Builder

	var prevLower bool

	for _, r := range topic {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('-')
			}

			b.WriteRune(r + ('a' - 'A'))
			prevLower = false
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevLower = true
		default:
			if s := b.String(); s != "" && !strings.HasSuffix(s, "-") {
				b.WriteByte('-')
			}

			prevLower = false
		}
	}

	name := strings.Trim(b.String(), "-")
	for len(name) < 3 {
		name += "q"
	}

	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}

	return name
}
