package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordersync/internal/domain"
	"github.com/nsridhar76/go-ordersync/internal/messaging"
	"github.com/nsridhar76/go-ordersync/internal/metrics"
	"github.com/nsridhar76/go-ordersync/internal/orderstore"
)

const topic = "orders.events"

func makeOrder(id string, total float64, status domain.OrderStatus) domain.Order {
	return domain.Order{
		OrderID:     id,
		CustomerID:  "CUST-00001",
		OrderDate:   time.Now().UTC(),
		Items:       []domain.OrderItem{{ItemID: "ITEM-001", Quantity: 1, Price: total}},
		TotalAmount: total,
		Currency:    domain.CurrencyUSD,
		Status:      status,
	}
}

func created(id string, total float64) messaging.OrderCreated {
	return messaging.NewOrderCreated(makeOrder(id, total, domain.StatusNew))
}

func TestHandler_CreatedStoresOrderAndShipping(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	outcome, err := h.Apply(topic, created("ORD-10", 100))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	rec, ok := store.Get("ORD-10")
	require.True(t, ok)
	assert.Equal(t, 2.0, rec.ShippingCost)
	assert.Equal(t, "ORD-10", rec.Order.OrderID)
	assert.Equal(t, []string{"ORD-10"}, store.ArrivalsFor(topic))
}

func TestHandler_DuplicateCreateIsIgnored(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)
	evt := created("ORD-40", 100)

	_, err := h.Apply(topic, evt)
	require.NoError(t, err)
	require.True(t, store.SetStatus("ORD-40", domain.StatusShipped))

	outcome, err := h.Apply(topic, evt)
	require.NoError(t, err)
	assert.Equal(t, DuplicateCreate, outcome)

	rec, _ := store.Get("ORD-40")
	assert.Equal(t, domain.StatusShipped, rec.Order.Status, "redelivered create must not reset state")
	assert.Equal(t, []string{"ORD-40", "ORD-40"}, store.ArrivalsFor(topic))
}

func TestHandler_StatusUpdateAfterCreate(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	_, err := h.Apply(topic, created("ORD-20", 50))
	require.NoError(t, err)

	outcome, err := h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-20", domain.StatusShipped))
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, outcome)

	rec, _ := store.Get("ORD-20")
	assert.Equal(t, domain.StatusShipped, rec.Order.Status)
	assert.Equal(t, []string{"ORD-20", "ORD-20"}, store.ArrivalsFor(topic))
}

func TestHandler_StatusUpdateBeforeCreateConverges(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	outcome, err := h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-30", domain.StatusConfirmed))
	require.NoError(t, err)
	assert.Equal(t, Buffered, outcome)
	assert.False(t, store.Exists("ORD-30"))

	_, err = h.Apply(topic, created("ORD-30", 10))
	require.NoError(t, err)

	rec, ok := store.Get("ORD-30")
	require.True(t, ok)
	assert.Equal(t, domain.StatusConfirmed, rec.Order.Status)
	assert.Equal(t, 0.2, rec.ShippingCost)
	assert.Zero(t, store.PendingCount())
	assert.Equal(t, []string{"ORD-30", "ORD-30"}, store.ArrivalsFor(topic))
}

func TestHandler_PendingLastWriteWins(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	_, _ = h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-31", domain.StatusProcessing))
	_, _ = h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-31", domain.StatusPending))
	_, err := h.Apply(topic, created("ORD-31", 10))
	require.NoError(t, err)

	rec, _ := store.Get("ORD-31")
	assert.Equal(t, domain.StatusPending, rec.Order.Status)
}

func TestHandler_EqualStatusIsNoop(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	_, _ = h.Apply(topic, created("ORD-50", 80))
	before, _ := store.Get("ORD-50")

	outcome, err := h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-50", domain.StatusNew))
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, outcome)

	after, _ := store.Get("ORD-50")
	assert.Equal(t, before, after)
}

func TestHandler_ShippingIndependentOfArrivalOrder(t *testing.T) {
	inOrder := orderstore.New()
	reordered := orderstore.New()
	create := created("ORD-60", 123.45)
	update := messaging.NewOrderStatusUpdated("ORD-60", domain.StatusShipped)

	h1 := NewHandler(inOrder)
	_, _ = h1.Apply(topic, create)
	_, _ = h1.Apply(topic, update)

	h2 := NewHandler(reordered)
	_, _ = h2.Apply(topic, update)
	_, _ = h2.Apply(topic, create)

	a, _ := inOrder.Get("ORD-60")
	b, _ := reordered.Get("ORD-60")
	assert.Equal(t, a, b)
	assert.Equal(t, 2.47, a.ShippingCost)
}

func TestHandler_InvalidTotalIsNotApplied(t *testing.T) {
	store := orderstore.New()
	h := NewHandler(store)

	_, _ = h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-70", domain.StatusShipped))
	outcome, err := h.Apply(topic, created("ORD-70", -5))
	require.Error(t, err)
	assert.Zero(t, outcome)

	assert.False(t, store.Exists("ORD-70"))
	assert.Equal(t, 1, store.PendingCount(), "buffered status survives a failed create")
	assert.Equal(t, []string{"ORD-70", "ORD-70"}, store.ArrivalsFor(topic))
}

type unknownEvent struct{ messaging.OrderStatusUpdated }

func TestHandler_UnknownEventType(t *testing.T) {
	h := NewHandler(orderstore.New())
	_, err := h.Apply(topic, unknownEvent{messaging.NewOrderStatusUpdated("ORD-1", domain.StatusNew)})
	assert.Error(t, err)
}

func TestHandler_HandleRecordsOutcome(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := NewHandler(orderstore.New(), WithMetrics(m))

	require.NoError(t, h.Handle(context.Background(), topic, created("ORD-80", 10)))
	require.NoError(t, h.Handle(context.Background(), topic, created("ORD-80", 10)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileOutcomes.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileOutcomes.WithLabelValues("duplicate_create")))

	assert.Error(t, h.Handle(context.Background(), topic, created("ORD-81", -1)))
}

func TestShippingCost(t *testing.T) {
	tests := []struct {
		total float64
		want  float64
	}{
		{100, 2},
		{0, 0},
		{10, 0.2},
		{59.97, 1.2},
		{1234.56, 24.69},
	}
	for _, tt := range tests {
		got, err := ShippingCost(tt.total)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "total %v", tt.total)
	}

	_, err := ShippingCost(-0.01)
	assert.Error(t, err)
}
