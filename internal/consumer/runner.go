// Package consumer runs the long-lived loop that reads order events from
// Kafka and hands them to the reconciliation handler.
//
// The loop has two levels. The inner loop owns one subscription and polls
// it until cancelled or until the broker reports an error it cannot
// absorb. The outer supervisor restarts the inner loop after such errors,
// waiting RetryBackoff between attempts, and gives up for good after
// MaxRetries consecutive failures.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsridhar76/go-ordersync/internal/messaging"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
)

// State is the supervisor state.
type State int32

const (
	StateRunning State = iota
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler applies one decoded event.
type Handler interface {
	Handle(ctx context.Context, topic string, evt messaging.Event) error
}

// Config tunes the loop.
type Config struct {
	Topic           string
	PollTimeout     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig matches the reader service defaults.
var DefaultConfig = Config{
	Topic:           "orders.events",
	PollTimeout:     time.Second,
	MaxRetries:      5,
	RetryBackoff:    2 * time.Second,
	ShutdownTimeout: 5 * time.Second,
}

// Runner is the reconnect supervisor around the poll loop.
type Runner struct {
	subscriber messaging.Subscriber
	handler    Handler
	cfg        Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	onState    func(State)

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// OnStateChange registers fn to be called on every state transition.
// fn runs on the consumer goroutine and must not block.
func OnStateChange(fn func(State)) Option {
	return func(r *Runner) { r.onState = fn }
}

// NewRunner returns a runner that starts in StateRunning.
func NewRunner(sub messaging.Subscriber, handler Handler, cfg Config, opts ...Option) *Runner {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig.PollTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	r := &Runner{
		subscriber: sub,
		handler:    handler,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("topic", cfg.Topic))
	return r
}

// State returns the current supervisor state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	if State(r.state.Swap(int32(s))) == s {
		return
	}
	if r.onState != nil {
		r.onState(s)
	}
}

// Start runs the loop on a new goroutine. It is a no-op while a previous
// Start is still running.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		r.Run(ctx)
	}()
}

// Stop signals the loop and waits up to ShutdownTimeout for it to exit.
// It returns an error when the loop is still running after the wait.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if r.cfg.ShutdownTimeout <= 0 {
		<-done
		return nil
	}
	t := time.NewTimer(r.cfg.ShutdownTimeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		return fmt.Errorf("consumer did not stop within %s", r.cfg.ShutdownTimeout)
	}
}

// Run supervises the poll loop until ctx is cancelled or MaxRetries
// consecutive inner-loop failures occur. It always ends in StateStopped.
func (r *Runner) Run(ctx context.Context) {
	defer r.setState(StateStopped)

	retries := 0
	for ctx.Err() == nil && retries < r.cfg.MaxRetries {
		r.setState(StateRunning)

		err := r.consume(ctx)
		if err == nil {
			retries = 0
			continue
		}
		if ctx.Err() != nil {
			break
		}

		retries++
		r.metrics.ConsumerRestart()
		r.logger.Error("consumer error",
			slog.Int("attempt", retries),
			slog.Int("max_retries", r.cfg.MaxRetries),
			slog.String("error", err.Error()),
		)
		if retries >= r.cfg.MaxRetries {
			break
		}

		r.setState(StateReconnecting)
		r.logger.Info("reconnecting", slog.Duration("backoff", r.cfg.RetryBackoff))
		if !wait(ctx, r.cfg.RetryBackoff) {
			break
		}
	}

	if retries >= r.cfg.MaxRetries {
		r.logger.Error("consumer stopped permanently: max retries reached",
			slog.Int("max_retries", r.cfg.MaxRetries))
		return
	}
	r.logger.Info("consumer stopped")
}

// consume runs one subscription. It returns nil when ctx is cancelled.
func (r *Runner) consume(ctx context.Context) error {
	sub, err := r.subscriber.Subscribe(ctx, r.cfg.Topic)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			r.logger.Warn("close subscription", slog.String("error", cerr.Error()))
		}
	}()

	r.logger.Info("consumer subscribed")
	for ctx.Err() == nil {
		msg, err := sub.Poll(ctx, r.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, messaging.ErrTopicNotReady) {
				r.logger.Debug("topic not ready, waiting")
				wait(ctx, r.cfg.PollTimeout)
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if msg == nil {
			continue
		}
		r.dispatch(ctx, msg)
	}
	return nil
}

// dispatch decodes and handles one message. Failures are logged and the
// message is skipped; its offset still counts as processed.
func (r *Runner) dispatch(ctx context.Context, msg *messaging.Message) {
	logger := r.logger.With(
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	defer func() {
		if p := recover(); p != nil {
			r.metrics.Consumed("failed")
			logger.Error("panic while handling message", slog.Any("panic", p))
		}
	}()

	evt, err := messaging.Decode(msg.Value)
	if err != nil {
		r.metrics.Consumed("malformed")
		logger.Warn("skipping malformed message", slog.String("error", err.Error()))
		return
	}

	if err := r.handler.Handle(ctx, msg.Topic, evt); err != nil {
		r.metrics.Consumed("failed")
		logger.Error("failed to process message",
			slog.String("event_id", evt.Meta().EventID),
			slog.String("order_id", evt.Meta().OrderID),
			slog.String("error", err.Error()),
		)
		return
	}
	r.metrics.Consumed("applied")
}

// wait sleeps for d or until ctx is done. It reports whether the full
// duration elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
