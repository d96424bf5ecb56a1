package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// Config configures the franz-go backed writer. Idempotent producers force acks=all.
type Config struct {
	Brokers     []string
	TLS         *tls.Config
	Acks        kgo.Acks
	Idempotent  bool
	ClientID    string
	Compression *kgo.CompressionCodec
}

const flushOnClose = 5 * time.Second

type kgoWriter struct{ cl *kgo.Client }

func (w kgoWriter) Write(ctx context.Context, rec Record) error {
	kr := &kgo.Record{
		Topic:     rec.Topic,
		Key:       rec.Key,
		Value:     rec.Value,
		Timestamp: rec.Timestamp,
		Headers:   make([]kgo.RecordHeader, 0, len(rec.Headers)),
	}

	for k, v := range rec.Headers {
		kr.Headers = append(kr.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	return w.cl.ProduceSync(ctx, kr).FirstErr()
}

// NewWithKgo builds a franz-go client based Adapter. The returned cleanup should be called to close the client.
// The default partitioner hashes the record key, which keeps per-aggregate ordering.
func NewWithKgo(cfg Config) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrInvalidConfig)
	}

	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Brokers...)}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}

	if !cfg.Idempotent {
		opts = append(opts, kgo.DisableIdempotentWrite())
		if cfg.Acks != (kgo.Acks{}) {
			opts = append(opts, kgo.RequiredAcks(cfg.Acks))
		}
	}

	if cfg.Compression != nil {
		opts = append(opts, kgo.ProducerBatchCompression(*cfg.Compression))
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client init: %w", berr.ErrPublishFailed, err)
	}

	ad := New(kgoWriter{cl: cl})
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushOnClose)
		defer cancel()

		_ = cl.Flush(ctx) //nolint:errcheck // records already failed ProduceSync
		cl.Close()
	}

	return ad, cleanup, nil
}
