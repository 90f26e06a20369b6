// Package cart is the writer side: it creates orders with generated line
// items, changes their status and publishes every change as an event.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// ErrPublish marks a write that was rejected because its event could not
// be published. The cause is wrapped alongside it.
var ErrPublish = errors.New("event not published")

// EventPublisher publishes order events. publisher.OrderEvents and
// noop.Publisher implement it.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderStatusUpdated(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// Service owns the writer store. Writes are serialized so the existence
// check, the publish and the store update of one request are not
// interleaved with another request for the same id.
type Service struct {
	store     *MemoryStore
	publisher EventPublisher
	logger    *slog.Logger
	rnd       *rand.Rand
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRand sets the source used to generate customers and line items.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

// WithClock sets the order date source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service storing orders in store and publishing
// through pub.
func NewService(store *MemoryStore, pub EventPublisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: pub,
		logger:    slog.Default(),
		rnd:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder generates an order with numItems random items under the
// normalized id, publishes ORDER_CREATED and then stores it. Nothing is
// stored when the publish fails.
func (s *Service) CreateOrder(ctx context.Context, rawID string, numItems int) (string, error) {
	if !domain.ValidOrderID(rawID) {
		return "", fmt.Errorf("%w: orderId must be digits or 'ORD-<digits>'", domain.ErrInvalidOrder)
	}
	if numItems < 1 {
		return "", fmt.Errorf("%w: numberOfItems must be at least 1", domain.ErrInvalidOrder)
	}
	id := domain.NormalizeOrderID(rawID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists(id) {
		return "", fmt.Errorf("order %s: %w", id, domain.ErrOrderAlreadyExists)
	}

	order := s.generate(id, numItems)
	if err := s.publisher.PublishOrderCreated(ctx, &order); err != nil {
		return "", fmt.Errorf("%w: order %s: %w", ErrPublish, id, err)
	}
	s.store.Add(order)

	s.logger.Info("order created",
		slog.String("order_id", id),
		slog.Int("items", len(order.Items)),
		slog.Float64("total", order.TotalAmount),
		slog.String("currency", string(order.Currency)),
	)
	return id, nil
}

// UpdateOrderStatus publishes ORDER_STATUS_UPDATED for an existing order
// and then stores the new status.
func (s *Service) UpdateOrderStatus(ctx context.Context, rawID string, status domain.OrderStatus) error {
	if !domain.ValidOrderID(rawID) {
		return fmt.Errorf("%w: orderId must be digits or 'ORD-<digits>'", domain.ErrInvalidOrder)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidOrder, status)
	}
	id := domain.NormalizeOrderID(rawID)

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	if err := s.publisher.PublishOrderStatusUpdated(ctx, id, status); err != nil {
		return fmt.Errorf("%w: status of order %s: %w", ErrPublish, id, err)
	}
	order.Status = status
	s.store.Update(order)

	s.logger.Info("order status updated",
		slog.String("order_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

// Get returns the writer's copy of an order.
func (s *Service) Get(rawID string) (domain.Order, bool) {
	return s.store.Get(domain.NormalizeOrderID(rawID))
}

func (s *Service) generate(id string, numItems int) domain.Order {
	items := make([]domain.OrderItem, 0, numItems)
	var total float64
	for range numItems {
		item := domain.OrderItem{
			ItemID:   fmt.Sprintf("ITEM-%03d", s.rnd.IntN(999)+1),
			Quantity: s.rnd.IntN(10) + 1,
			Price:    round2(10 + s.rnd.Float64()*90),
		}
		items = append(items, item)
		total += round2(float64(item.Quantity) * item.Price)
	}

	return domain.Order{
		OrderID:     id,
		CustomerID:  fmt.Sprintf("CUST-%05d", s.rnd.IntN(99999)+1),
		OrderDate:   s.now().UTC(),
		Items:       items,
		TotalAmount: round2(total),
		Currency:    domain.Currencies[s.rnd.IntN(len(domain.Currencies))],
		Status:      domain.StatusNew,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
