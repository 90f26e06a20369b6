package publisher

import (
	"context"
	"fmt"

	"github.com/nsridhar76/go-ordersync/internal/domain"
	"github.com/nsridhar76/go-ordersync/internal/messaging"
)

// OrderEvents publishes order domain events keyed by order id so every
// event of one order lands on the same partition.
type OrderEvents struct {
	publisher *Publisher
}

// NewOrderEvents wraps p.
func NewOrderEvents(p *Publisher) *OrderEvents {
	return &OrderEvents{publisher: p}
}

// PublishOrderCreated publishes ORDER_CREATED with the full order snapshot.
func (o *OrderEvents) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return o.publish(ctx, messaging.NewOrderCreated(*order))
}

// PublishOrderStatusUpdated publishes ORDER_STATUS_UPDATED.
func (o *OrderEvents) PublishOrderStatusUpdated(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return o.publish(ctx, messaging.NewOrderStatusUpdated(orderID, status))
}

func (o *OrderEvents) publish(ctx context.Context, evt messaging.Event) error {
	payload, err := messaging.Encode(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Meta().EventType, err)
	}
	return o.publisher.Publish(ctx, evt.Meta().OrderID, payload)
}
