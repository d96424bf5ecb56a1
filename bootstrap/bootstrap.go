// Package bootstrap builds the configured publisher, service bus and consumer
// dispatcher from a config.Config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/next-trace/scg-contracts/adapters/azqueue"
	"github.com/next-trace/scg-contracts/adapters/inmemory"
	"github.com/next-trace/scg-contracts/adapters/kafka"
	"github.com/next-trace/scg-contracts/adapters/nats"
	otelad "github.com/next-trace/scg-contracts/adapters/otel"
	"github.com/next-trace/scg-contracts/adapters/rabbitmq"
	"github.com/next-trace/scg-contracts/config"
	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
	"github.com/next-trace/scg-contracts/contract/event"
	"github.com/next-trace/scg-contracts/redelivery"
	"github.com/next-trace/scg-contracts/servicebus"
)

// Stack is a ready-to-use publishing stack. Close releases transport connections.
type Stack struct {
	Config    config.Config
	Publisher cbus.EventPublisher
	Bus       *servicebus.Bus
	Logger    *slog.Logger

	cleanup func()
}

// Options tweaks Open.
type Options struct {
	Logger  *slog.Logger
	Source  event.Source
	BusOpts []servicebus.BusOption
}

// Open builds the publisher for cfg.Transport and a Bus publishing through it.
func Open(ctx context.Context, cfg config.Config, o Options) (*Stack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = NewLogger(os.Stderr, cfg.LogLevel)
	}

	var prop cbus.HeaderPropagator
	if cfg.TracePropagation {
		prop = otelad.New()
	}

	pub, cleanup, err := openPublisher(cfg, prop, logger)
	if err != nil {
		return nil, err
	}

	busOpts := []servicebus.BusOption{servicebus.WithSource(o.Source)}
	if cfg.Events.TTL > 0 {
		busOpts = append(busOpts, servicebus.WithEventDefaults(event.WithTTL(cfg.Events.TTL)))
	}

	busOpts = append(busOpts, o.BusOpts...)

	logger.InfoContext(ctx, "publishing stack ready",
		"service", cfg.ServiceName, "transport", cfg.Transport, "trace_propagation", cfg.TracePropagation)

	return &Stack{
		Config:    cfg,
		Publisher: pub,
		Bus:       servicebus.New(pub, cfg.ServiceName, logger, busOpts...),
		Logger:    logger,
		cleanup:   cleanup,
	}, nil
}

func openPublisher(cfg config.Config, prop cbus.HeaderPropagator, logger *slog.Logger) (cbus.EventPublisher, func(), error) {
	switch cfg.Transport {
	case config.TransportKafka:
		ad, cleanup, err := kafka.NewWithKgo(kafka.Config{
			Brokers:    cfg.Kafka.Brokers,
			ClientID:   cfg.Kafka.ClientID,
			Idempotent: true,
		})
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = prop

		return ad, cleanup, nil
	case config.TransportKafkaGo:
		ad, cleanup, err := kafka.NewWithKafkaGo(kafka.KafkaGoConfig{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = prop

		return ad, cleanup, nil
	case config.TransportNATS:
		ad, cleanup, err := nats.NewWithNATS(nats.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.ServiceName,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			ConnTimeout:   cfg.NATS.ConnTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = prop

		return ad, cleanup, nil
	case config.TransportRabbitMQ:
		ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = prop

		return ad, cleanup, nil
	case config.TransportAzQueue:
		ad, err := azqueue.NewWithConnectionString(azqueue.Config{
			ConnectionString: cfg.AzQueue.ConnectionString,
			QueuePrefix:      cfg.AzQueue.QueuePrefix,
		})
		if err != nil {
			return nil, nil, err
		}

		return ad, func() {}, nil
	case config.TransportMemory:
		return inmemory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("transport %q: %w", cfg.Transport, berr.ErrInvalidConfig)
	}
}

// Dispatcher builds a consumer dispatcher that republishes retries through the stack's
// publisher with the configured retry budget and logger.
func (s *Stack) Dispatcher(h cbus.IntegrationEventHandler, opts ...redelivery.Option) (*redelivery.Dispatcher, error) {
	base := []redelivery.Option{
		redelivery.WithMaxRetries(s.Config.Consumer.MaxRetries),
		redelivery.WithLogger(s.Logger),
	}

	return redelivery.New(h, s.Publisher, append(base, opts...)...)
}

// Close shuts down the bus and releases the transport.
func (s *Stack) Close() error {
	err := s.Bus.Close()
	if s.cleanup != nil {
		s.cleanup()
	}

	return err
}

// NewLogger returns a JSON slog logger at the named level (debug, info, warn, error).
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
