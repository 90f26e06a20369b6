// Command cartsvc is the writer service: it creates orders, updates their
// status and publishes each change to Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-ordersync/internal/api/cartapi"
	"github.com/nsridhar76/go-ordersync/internal/cart"
	"github.com/nsridhar76/go-ordersync/internal/config"
	"github.com/nsridhar76/go-ordersync/internal/logging"
	"github.com/nsridhar76/go-ordersync/internal/messaging/kafka"
	"github.com/nsridhar76/go-ordersync/internal/messaging/noop"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
	"github.com/nsridhar76/go-ordersync/internal/publisher"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cartsvc failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCart()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var events cart.EventPublisher
	if cfg.Kafka.Disabled {
		logger.Warn("kafka disabled, events are not published")
		events = noop.Publisher{}
	} else {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:   cfg.Kafka.Brokers,
			Topic:     cfg.Kafka.Topic,
			QueueSize: cfg.Publisher.QueueSize,
		})
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("close kafka producer", slog.String("error", err.Error()))
			}
		}()

		pub := publisher.New(producer, publisher.Config{
			MaxRetries:   cfg.Publisher.MaxRetries,
			RetryBackoff: cfg.Publisher.RetryBackoff,
			FlushTimeout: cfg.Publisher.FlushTimeout,
		}, publisher.WithLogger(logger), publisher.WithMetrics(m))
		events = publisher.NewOrderEvents(pub)
		logger.Info("kafka publisher ready",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic))
	}

	opts := cartapi.RouterOptions{Gatherer: reg, Logger: logger}
	if cfg.RedisAddr != "" {
		rdb, err := newRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts.Redis = rdb
		opts.IdempotencyLockTTL = cfg.IdempotencyLockTTL()
		logger.Info("idempotency enabled",
			slog.String("redis", cfg.RedisAddr),
			slog.Duration("lock_ttl", opts.IdempotencyLockTTL))
	}

	svc := cart.NewService(cart.NewMemoryStore(), events, cart.WithLogger(logger))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           cartapi.NewRouter(cartapi.NewHandlers(svc, logger), opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}
