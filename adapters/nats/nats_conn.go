package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
	berr "github.com/next-trace/scg-contracts/contract/errors"
)

const (
	defaultReconnectWait = 2 * time.Second
	defaultFlushTimeout  = 5 * time.Second
)

// Config configures a connection-backed NATS adapter.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ConnTimeout   time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
	// FlushTimeout bounds the wait for the server to acknowledge a publish.
	FlushTimeout time.Duration
	Logger       *slog.Logger
}

type natsClient struct {
	nc    *nats.Conn
	flush time.Duration
}

// Publish sends one message and waits for the server round trip. The event id
// doubles as Nats-Msg-Id so JetStream streams drop redelivered duplicates.
func (c natsClient) Publish(subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if id := headers[cbus.HeaderEventID]; id != "" {
		msg.Header.Set(nats.MsgIdHdr, id+"-"+headers[cbus.HeaderRetryCount])
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.FlushTimeout(c.flush)
}

func connOptions(cfg Config, logger *slog.Logger) []nats.Option {
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}

	opts := []nats.Option{
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats async error", "err", err)
		}),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	return opts
}

// NewWithNATS dials cfg.URL and returns an Adapter and a cleanup that drains the connection.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	nc, err := nats.Connect(cfg.URL, connOptions(cfg, logger)...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect %s: %w", berr.ErrPublishFailed, cfg.URL, err)
	}

	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = defaultFlushTimeout
	}

	ad := New(natsClient{nc: nc, flush: flush})
	ad.SubjectPrefix = cfg.SubjectPrefix

	cleanup := func() {
		if nc.IsClosed() {
			return
		}

		if err := nc.Drain(); err != nil {
			logger.Warn("nats drain", "err", err)
			nc.Close()
		}
	}

	return ad, cleanup, nil
}
