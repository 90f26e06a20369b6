// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Kafka holds the broker settings shared by both services.
type Kafka struct {
	Brokers  []string `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic    string   `env:"TOPIC" envDefault:"orders.events"`
	Disabled bool     `env:"DISABLED" envDefault:"false"`
}

// Publisher tunes the resilient publisher.
type Publisher struct {
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"200ms"`
	FlushTimeout time.Duration `env:"FLUSH_TIMEOUT" envDefault:"10s"`
	QueueSize    int           `env:"QUEUE_SIZE" envDefault:"1000"`
}

// Consumer tunes the resilient consumer loop.
type Consumer struct {
	GroupID         string        `env:"GROUP_ID" envDefault:"order-service"`
	PollTimeout     time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"5"`
	RetryBackoff    time.Duration `env:"RETRY_BACKOFF" envDefault:"2s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	StartFromLatest bool          `env:"START_FROM_LATEST" envDefault:"false"`
}

// MaxPublishDuration is the longest one publish can take: every attempt
// waits the full flush timeout and the linear backoff runs between them.
func (p Publisher) MaxPublishDuration() time.Duration {
	retries := max(p.MaxRetries, 0)
	attempts := time.Duration(retries + 1)
	backoffSteps := time.Duration(retries * (retries + 1) / 2)
	return attempts*p.FlushTimeout + backoffSteps*p.RetryBackoff
}

// idempotencyLockMargin covers request handling around the publish.
const idempotencyLockMargin = 10 * time.Second

// Cart is the writer service configuration.
type Cart struct {
	HTTPAddr  string    `env:"HTTP_ADDR" envDefault:":8000"`
	LogLevel  string    `env:"LOG_LEVEL" envDefault:"info"`
	RedisAddr string    `env:"REDIS_ADDR"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	Publisher Publisher `envPrefix:"PUBLISHER_"`
}

// Order is the reader service configuration.
type Order struct {
	HTTPAddr string   `env:"HTTP_ADDR" envDefault:":8001"`
	GRPCAddr string   `env:"GRPC_ADDR" envDefault:":9001"`
	LogLevel string   `env:"LOG_LEVEL" envDefault:"info"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Consumer Consumer `envPrefix:"CONSUMER_"`
}

// IdempotencyLockTTL is how long an in-flight write holds its
// Idempotency-Key. It outlives the slowest possible publish.
func (c Cart) IdempotencyLockTTL() time.Duration {
	return c.Publisher.MaxPublishDuration() + idempotencyLockMargin
}

// LoadCart reads the writer service configuration.
func LoadCart() (Cart, error) {
	var cfg Cart
	if err := parseEnv(&cfg); err != nil {
		return Cart{}, err
	}
	if cfg.Publisher.MaxRetries < 0 {
		return Cart{}, fmt.Errorf("config: PUBLISHER_MAX_RETRIES must not be negative")
	}
	return cfg, nil
}

// LoadOrder reads the reader service configuration.
func LoadOrder() (Order, error) {
	var cfg Order
	if err := parseEnv(&cfg); err != nil {
		return Order{}, err
	}
	if cfg.Consumer.MaxRetries < 1 {
		return Order{}, fmt.Errorf("config: CONSUMER_MAX_RETRIES must be at least 1")
	}
	if cfg.Consumer.PollTimeout <= 0 {
		return Order{}, fmt.Errorf("config: CONSUMER_POLL_TIMEOUT must be positive")
	}
	return cfg, nil
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
