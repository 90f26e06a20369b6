// Package publisher delivers order events to Kafka with bounded retry.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nsridhar76/go-ordersync/internal/messaging"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
)

// Config tunes retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number before each retry.
	RetryBackoff time.Duration
	// FlushTimeout bounds the wait for acknowledgment per attempt.
	FlushTimeout time.Duration
}

// DefaultConfig mirrors the producer settings of the writer service.
var DefaultConfig = Config{
	MaxRetries:   3,
	RetryBackoff: 200 * time.Millisecond,
	FlushTimeout: 10 * time.Second,
}

// Publisher sends one message at a time and returns once it is acknowledged.
// It is safe for concurrent use: each attempt holds the producer
// exclusively from Produce until Flush returns, so a flush only ever
// reports on the caller's own message. The producer must not be shared
// with another Publisher.
type Publisher struct {
	producer messaging.Producer
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	sleep    func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithSleep replaces the backoff sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Publisher) { p.sleep = fn }
}

// New returns a publisher writing through producer.
func New(producer messaging.Producer, cfg Config, opts ...Option) *Publisher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig.FlushTimeout
	}
	p := &Publisher{
		producer: producer,
		cfg:      cfg,
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues the message and waits for acknowledgment, retrying
// buffer-full and broker failures up to MaxRetries times with linear
// backoff. A flush timeout fails immediately.
func (p *Publisher) Publish(ctx context.Context, key string, payload []byte) error {
	attempts := p.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := p.attempt(ctx, key, payload)
		if err == nil {
			p.metrics.PublishAttempt("ok")
			return nil
		}

		var terminal *Error
		if errors.As(err, &terminal) {
			p.metrics.PublishAttempt(terminal.Kind.String())
			return p.fail(terminal.Kind, attempt, terminal.Err)
		}

		lastErr = err
		p.metrics.PublishAttempt("error")
		p.logger.Warn("publish attempt failed",
			slog.String("key", key),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)

		if attempt < attempts {
			if err := p.sleep(ctx, p.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
				return p.fail(KindFailed, attempt, err)
			}
		}
	}

	switch {
	case errors.Is(lastErr, messaging.ErrBufferFull):
		return p.fail(KindQueueFull, attempts, lastErr)
	case errors.Is(lastErr, messaging.ErrBrokerUnreachable):
		return p.fail(KindBrokersUnavailable, attempts, lastErr)
	default:
		return p.fail(KindFailed, attempts, lastErr)
	}
}

// attempt runs one produce and flush. Retryable failures are returned as
// plain errors; terminal ones as *Error.
func (p *Publisher) attempt(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindFailed, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.producer.Produce([]byte(key), payload); err != nil {
		return fmt.Errorf("produce: %w", err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.cfg.FlushTimeout)
	defer cancel()

	remaining, err := p.producer.Flush(flushCtx)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if remaining > 0 {
		if ctx.Err() != nil {
			return &Error{Kind: KindFailed, Err: ctx.Err()}
		}
		return &Error{
			Kind: KindDeliveryTimeout,
			Err:  fmt.Errorf("%d message(s) pending after %s", remaining, p.cfg.FlushTimeout),
		}
	}
	return nil
}

func (p *Publisher) fail(kind Kind, attempts int, err error) error {
	p.metrics.PublishFailure(kind.String())
	p.logger.Error("publish failed",
		slog.String("kind", kind.String()),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
	return &Error{Kind: kind, Attempts: attempts, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
