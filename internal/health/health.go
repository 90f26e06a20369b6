// Package health exposes the order service through the standard gRPC
// health protocol. The consumer loop state drives the status of the
// ConsumerService entry, so orchestrators can tell a reader that has
// given up on Kafka from one that is still catching up.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nsridhar76/go-ordersync/internal/consumer"
)

// ConsumerService is the health service name reporting the consumer loop.
const ConsumerService = "orders.consumer"

// ServingStatus maps a consumer state to a health status. Only a running
// loop is serving.
func ServingStatus(s consumer.State) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if s == consumer.StateRunning {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

// Server is a gRPC server carrying only the health service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// NewServer listens on addr. The overall status starts SERVING and the
// consumer status starts as initial.
func NewServer(addr string, initial consumer.State, logger *slog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ConsumerService, ServingStatus(initial))

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ObserveConsumer updates the consumer status. It matches the signature
// of consumer.OnStateChange.
func (s *Server) ObserveConsumer(state consumer.State) {
	s.logger.Info("consumer state changed", slog.String("state", state.String()))
	s.health.SetServingStatus(ConsumerService, ServingStatus(state))
}

// Serve blocks until ctx is cancelled, then marks every service
// NOT_SERVING and stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("grpc health server listening", slog.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve grpc: %w", err)
	case err := <-serveErr:
		if err == nil {
			return nil
		}
		return fmt.Errorf("serve grpc: %w", err)
	}
}
