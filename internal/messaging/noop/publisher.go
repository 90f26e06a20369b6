package noop

import (
	"context"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// Publisher is a no-op cart.EventPublisher used when Kafka is disabled.
// Writes succeed locally and nothing reaches the reader service.
type Publisher struct{}

func (Publisher) PublishOrderCreated(_ context.Context, _ *domain.Order) error { return nil }

func (Publisher) PublishOrderStatusUpdated(_ context.Context, _ string, _ domain.OrderStatus) error {
	return nil
}
