package orderapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordersync/internal/consumer"
	"github.com/nsridhar76/go-ordersync/internal/domain"
	"github.com/nsridhar76/go-ordersync/internal/messaging"
	"github.com/nsridhar76/go-ordersync/internal/orderstore"
	"github.com/nsridhar76/go-ordersync/internal/reconcile"
)

const topic = "orders.events"

func seededStore(t *testing.T) *orderstore.Store {
	t.Helper()
	store := orderstore.New()
	h := reconcile.NewHandler(store, reconcile.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))

	order := domain.Order{
		OrderID:     "ORD-123",
		CustomerID:  "CUST-00001",
		OrderDate:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Items:       []domain.OrderItem{{ItemID: "ITEM-001", Quantity: 2, Price: 50.25}},
		TotalAmount: 100.50,
		Currency:    domain.CurrencyEUR,
		Status:      domain.StatusNew,
	}
	_, err := h.Apply(topic, messaging.NewOrderCreated(order))
	require.NoError(t, err)
	_, err = h.Apply(topic, messaging.NewOrderStatusUpdated("ORD-123", domain.StatusShipped))
	require.NoError(t, err)
	return store
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func newRouter(store *orderstore.Store, state func() consumer.State) http.Handler {
	return NewRouter(NewHandlers(store, state), nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestOrderDetails(t *testing.T) {
	h := newRouter(seededStore(t), nil)

	for _, id := range []string{"123", "ORD-123"} {
		rec := get(h, "/order-details?orderId="+id)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Order        domain.Order `json:"order"`
			ShippingCost float64      `json:"shippingCost"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ORD-123", body.Order.OrderID)
		assert.Equal(t, domain.StatusShipped, body.Order.Status)
		assert.Equal(t, 2.01, body.ShippingCost)
	}
}

func TestOrderDetails_Errors(t *testing.T) {
	h := newRouter(seededStore(t), nil)

	assert.Equal(t, http.StatusBadRequest, get(h, "/order-details").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/order-details?orderId=abc").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/order-details?orderId=999").Code)
}

func TestOrderIDsForTopic(t *testing.T) {
	h := newRouter(seededStore(t), nil)

	rec := get(h, "/getAllOrderIdsFromTopic?topicName="+topic)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"topicName":"orders.events","orderIds":["ORD-123","ORD-123"]}`, rec.Body.String())

	rec = get(h, "/getAllOrderIdsFromTopic?topicName=other")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"topicName":"other","orderIds":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(h, "/getAllOrderIdsFromTopic").Code)
}

func TestHealth(t *testing.T) {
	h := newRouter(orderstore.New(), func() consumer.State { return consumer.StateReconnecting })

	rec := get(h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","consumer":"reconnecting"}`, rec.Body.String())
}
