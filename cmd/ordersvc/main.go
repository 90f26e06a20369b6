// Command ordersvc is the reader service: it consumes order events from
// Kafka into an in-memory view and serves read queries over HTTP. The
// consumer state is exposed through the gRPC health protocol.
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
	"golang.org/x/sync/errgroup"

	"github.com/nsridhar76/go-ordersync/internal/api/orderapi"
	"github.com/nsridhar76/go-ordersync/internal/config"
	"github.com/nsridhar76/go-ordersync/internal/consumer"
	"github.com/nsridhar76/go-ordersync/internal/health"
	"github.com/nsridhar76/go-ordersync/internal/logging"
	"github.com/nsridhar76/go-ordersync/internal/messaging/kafka"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
	"github.com/nsridhar76/go-ordersync/internal/orderstore"
	"github.com/nsridhar76/go-ordersync/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ordersvc failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadOrder()
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

	store := orderstore.New()
	handler := reconcile.NewHandler(store, reconcile.WithLogger(logger), reconcile.WithMetrics(m))

	healthSrv, err := health.NewServer(cfg.GRPCAddr, consumer.StateRunning, logger)
	if err != nil {
		return err
	}

	subscriber := kafka.NewSubscriber(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Consumer.GroupID,
		StartFromLatest: cfg.Consumer.StartFromLatest,
	})
	runner := consumer.NewRunner(subscriber, handler, consumer.Config{
		Topic:           cfg.Kafka.Topic,
		PollTimeout:     cfg.Consumer.PollTimeout,
		MaxRetries:      cfg.Consumer.MaxRetries,
		RetryBackoff:    cfg.Consumer.RetryBackoff,
		ShutdownTimeout: cfg.Consumer.ShutdownTimeout,
	},
		consumer.WithLogger(logger),
		consumer.WithMetrics(m),
		consumer.OnStateChange(healthSrv.ObserveConsumer),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           orderapi.NewRouter(orderapi.NewHandlers(store, runner.State), reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	runner.Start(gctx)
	logger.Info("consumer started",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("topic", cfg.Kafka.Topic),
		slog.String("group_id", cfg.Consumer.GroupID))

	g.Go(func() error {
		return healthSrv.Serve(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		herr := srv.Shutdown(shutdownCtx)

		if err := runner.Stop(); err != nil {
			logger.Warn("consumer stop", slog.String("error", err.Error()))
		}
		if herr != nil {
			return fmt.Errorf("http shutdown: %w", herr)
		}
		return nil
	})

	return g.Wait()
}
