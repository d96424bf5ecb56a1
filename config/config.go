// Package config loads the publishing stack configuration from YAML, an optional
// .env file and SCG_* environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// Transports accepted in Config.Transport.
const (
	TransportKafka    = "kafka"
	TransportKafkaGo  = "kafka-go"
	TransportNATS     = "nats"
	TransportRabbitMQ = "rabbitmq"
	TransportAzQueue  = "azqueue"
	TransportMemory   = "memory"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	Transport   string `yaml:"transport"`
	LogLevel    string `yaml:"log_level"`

	// TracePropagation injects W3C trace context headers on publish.
	TracePropagation bool `yaml:"trace_propagation"`

	Kafka    KafkaConfig    `yaml:"kafka"`
	NATS     NATSConfig     `yaml:"nats"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	AzQueue  AzQueueConfig  `yaml:"azqueue"`
	Events   EventsConfig   `yaml:"events"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	ClientID string   `yaml:"client_id"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	ConnTimeout   time.Duration `yaml:"conn_timeout"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type AzQueueConfig struct {
	ConnectionString string `yaml:"connection_string"`
	QueuePrefix      string `yaml:"queue_prefix"`
}

type EventsConfig struct {
	// TTL, when positive, expires raised events this long after they occurred.
	TTL time.Duration `yaml:"ttl"`
}

type ConsumerConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Transport: TransportMemory,
		LogLevel:  "info",
		Consumer:  ConsumerConfig{MaxRetries: 5},
	}
}

// Load reads path (skipped when empty), then envFiles (".env" when none are given;
// missing files are ignored), applies SCG_* overrides and validates the result.
// Variables already set in the process environment are never replaced by env files.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, errors.Join(berr.ErrInvalidConfig, err))
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("load env file %s: %w", f, errors.Join(berr.ErrInvalidConfig, err))
		}
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServiceName, "SCG_SERVICE_NAME")
	setString(&c.Transport, "SCG_TRANSPORT")
	setString(&c.LogLevel, "SCG_LOG_LEVEL")
	setString(&c.Kafka.ClientID, "SCG_KAFKA_CLIENT_ID")
	setString(&c.NATS.URL, "SCG_NATS_URL")
	setString(&c.NATS.SubjectPrefix, "SCG_NATS_SUBJECT_PREFIX")
	setString(&c.RabbitMQ.URL, "SCG_RABBITMQ_URL")
	setString(&c.RabbitMQ.Exchange, "SCG_RABBITMQ_EXCHANGE")
	setString(&c.AzQueue.ConnectionString, "SCG_AZQUEUE_CONNECTION_STRING")
	setString(&c.AzQueue.QueuePrefix, "SCG_AZQUEUE_QUEUE_PREFIX")

	if v := os.Getenv("SCG_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	if v := os.Getenv("SCG_TRACE_PROPAGATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envErr("SCG_TRACE_PROPAGATION", err)
		}

		c.TracePropagation = b
	}

	if v := os.Getenv("SCG_EVENT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("SCG_EVENT_TTL", err)
		}

		c.Events.TTL = d
	}

	if v := os.Getenv("SCG_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envErr("SCG_MAX_RETRIES", err)
		}

		c.Consumer.MaxRetries = n
	}

	return nil
}

// Validate checks that the configuration can build a publisher.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ServiceName) == "" {
		errs = append(errs, errors.New("service_name is required"))
	}

	switch c.Transport {
	case TransportKafka, TransportKafkaGo:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required"))
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required"))
		}
	case TransportRabbitMQ:
		if c.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("rabbitmq.url is required"))
		}
	case TransportAzQueue:
		if c.AzQueue.ConnectionString == "" {
			errs = append(errs, errors.New("azqueue.connection_string is required"))
		}
	case TransportMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	if c.Events.TTL < 0 {
		errs = append(errs, errors.New("events.ttl must not be negative"))
	}

	if c.Consumer.MaxRetries < 0 {
		errs = append(errs, errors.New("consumer.max_retries must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("config: %w", errors.Join(append([]error{berr.ErrInvalidConfig}, errs...)...))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string

	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func envErr(key string, err error) error {
	return fmt.Errorf("env %s: %w", key, errors.Join(berr.ErrInvalidConfig, err))
}
