// Package messaging defines the order domain events, their JSON envelope
// and the transport contracts used to move them through Kafka.
package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// EventType discriminates the envelope payload.
type EventType string

// Event type constants for order domain events.
const (
	EventOrderCreated       EventType = "ORDER_CREATED"
	EventOrderStatusUpdated EventType = "ORDER_STATUS_UPDATED"
)

// Header holds the fields every event carries.
type Header struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
}

// Event is the closed set of order events: OrderCreated and OrderStatusUpdated.
type Event interface {
	Meta() Header
	sealed()
}

// OrderCreated carries the full order snapshot at creation time.
type OrderCreated struct {
	Header
	Order domain.Order `json:"order"`
}

func (e OrderCreated) Meta() Header { return e.Header }
func (OrderCreated) sealed()        {}

// OrderStatusUpdated carries the new status of an existing order.
type OrderStatusUpdated struct {
	Header
	Status domain.OrderStatus `json:"status"`
}

func (e OrderStatusUpdated) Meta() Header { return e.Header }
func (OrderStatusUpdated) sealed()        {}

// NewOrderCreated builds an ORDER_CREATED event for order.
func NewOrderCreated(order domain.Order) OrderCreated {
	return OrderCreated{
		Header: newHeader(EventOrderCreated, order.OrderID),
		Order:  order.Clone(),
	}
}

// NewOrderStatusUpdated builds an ORDER_STATUS_UPDATED event.
func NewOrderStatusUpdated(orderID string, status domain.OrderStatus) OrderStatusUpdated {
	return OrderStatusUpdated{
		Header: newHeader(EventOrderStatusUpdated, orderID),
		Status: status,
	}
}

func newHeader(t EventType, orderID string) Header {
	return Header{
		EventID:   uuid.NewString(),
		EventType: t,
		Timestamp: time.Now().UTC(),
		OrderID:   orderID,
	}
}
