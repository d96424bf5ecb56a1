package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// KafkaGoConfig configures the segmentio/kafka-go backed writer.
type KafkaGoConfig struct {
	Brokers      []string
	BatchTimeout time.Duration
}

type kafkaGoWriter struct{ w *kafkago.Writer }

func (w kafkaGoWriter) Write(ctx context.Context, rec Record) error {
	msg := kafkago.Message{
		Topic: rec.Topic,
		Key:   rec.Key,
		Value: rec.Value,
		Time:  rec.Timestamp,
	}

	for k, v := range rec.Headers {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	return w.w.WriteMessages(ctx, msg)
}

// NewWithKafkaGo builds an Adapter over a kafka-go Writer that hashes keys to partitions
// and waits for all in-sync replicas.
func NewWithKafkaGo(cfg KafkaGoConfig) (*Adapter, func(), error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", berr.ErrInvalidConfig)
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		RequiredAcks: kafkago.RequireAll,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
	}

	cleanup := func() { _ = w.Close() }

	return New(kafkaGoWriter{w: w}), cleanup, nil
}
