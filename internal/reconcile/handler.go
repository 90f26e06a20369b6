// Package reconcile applies order events to the order store.
//
// Events arrive at least once and in any order. The handler makes the
// stored state converge anyway:
//   - a repeated ORDER_CREATED is ignored once the order exists
//   - an ORDER_STATUS_UPDATED for an unknown order is buffered and applied
//     when the order is created (the latest buffered status wins)
//   - a status update that would not change the stored status is a no-op
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/nsridhar76/go-ordersync/internal/messaging"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
	"github.com/nsridhar76/go-ordersync/internal/orderstore"
)

// ShippingRate is the share of the order total charged for shipping.
const ShippingRate = 0.02

// Outcome describes what applying one event did to the store.
type Outcome int

const (
	Created Outcome = iota + 1
	DuplicateCreate
	Buffered
	StatusApplied
	StatusUnchanged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case DuplicateCreate:
		return "duplicate_create"
	case Buffered:
		return "buffered"
	case StatusApplied:
		return "status_applied"
	case StatusUnchanged:
		return "status_unchanged"
	default:
		return "unknown"
	}
}

// Handler is the only writer of the store.
type Handler struct {
	store   *orderstore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler returns a handler writing to store.
func NewHandler(store *orderstore.Store, opts ...Option) *Handler {
	h := &Handler{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle applies evt received on topic. It satisfies the consumer loop's handler contract.
func (h *Handler) Handle(_ context.Context, topic string, evt messaging.Event) error {
	outcome, err := h.Apply(topic, evt)
	if err != nil {
		return err
	}

	meta := evt.Meta()
	h.metrics.Reconciled(outcome.String())
	h.logger.Debug("order event applied",
		slog.String("event_id", meta.EventID),
		slog.String("event_type", string(meta.EventType)),
		slog.String("order_id", meta.OrderID),
		slog.String("outcome", outcome.String()),
	)
	return nil
}

// Apply records the arrival of evt on topic and reconciles it into the store.
// The arrival is recorded even when applying fails.
func (h *Handler) Apply(topic string, evt messaging.Event) (Outcome, error) {
	id := evt.Meta().OrderID
	h.store.TrackArrival(topic, id)

	switch e := evt.(type) {
	case messaging.OrderCreated:
		return h.applyCreated(id, e)
	case messaging.OrderStatusUpdated:
		return h.applyStatusUpdated(id, e), nil
	default:
		return 0, fmt.Errorf("reconcile: unhandled event type %T", evt)
	}
}

func (h *Handler) applyCreated(id string, e messaging.OrderCreated) (Outcome, error) {
	if h.store.Exists(id) {
		return DuplicateCreate, nil
	}

	shipping, err := ShippingCost(e.Order.TotalAmount)
	if err != nil {
		return 0, fmt.Errorf("reconcile %s: %w", id, err)
	}

	order := e.Order.Clone()
	if status, ok := h.store.TakePending(id); ok {
		order.Status = status
	}

	h.store.Put(id, orderstore.Record{Order: order, ShippingCost: shipping})
	return Created, nil
}

func (h *Handler) applyStatusUpdated(id string, e messaging.OrderStatusUpdated) Outcome {
	rec, ok := h.store.Get(id)
	if !ok {
		h.store.SetPending(id, e.Status)
		return Buffered
	}
	if rec.Order.Status == e.Status {
		return StatusUnchanged
	}
	h.store.SetStatus(id, e.Status)
	return StatusApplied
}

// ShippingCost returns total*ShippingRate rounded to cents.
func ShippingCost(total float64) (float64, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return 0, fmt.Errorf("shipping cost: invalid order total %v", total)
	}
	return math.Round(total*ShippingRate*100) / 100, nil
}
