// Package orderapi is the read-only REST API of the order service.
package orderapi

import (
	"net/http"

	"github.com/nsridhar76/go-ordersync/internal/api/respond"
	"github.com/nsridhar76/go-ordersync/internal/consumer"
	"github.com/nsridhar76/go-ordersync/internal/domain"
	"github.com/nsridhar76/go-ordersync/internal/orderstore"
)

type Handlers struct {
	store         *orderstore.Store
	consumerState func() consumer.State
}

// NewHandlers serves reads from store. consumerState may be nil.
func NewHandlers(store *orderstore.Store, consumerState func() consumer.State) *Handlers {
	return &Handlers{store: store, consumerState: consumerState}
}

type topicOrdersResponse struct {
	TopicName string   `json:"topicName"`
	OrderIDs  []string `json:"orderIds"`
}

// OrderDetails returns the materialized order and its shipping cost.
func (h *Handlers) OrderDetails(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("orderId")
	if raw == "" {
		respond.Error(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if !domain.ValidOrderID(raw) {
		respond.Error(w, http.StatusBadRequest, "orderId must be a numeric string or start with 'ORD-'")
		return
	}

	rec, ok := h.store.Get(domain.NormalizeOrderID(raw))
	if !ok {
		respond.Error(w, http.StatusNotFound, "order not found")
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// OrderIDsForTopic lists the order ids seen on a topic in arrival order,
// duplicates included.
func (h *Handlers) OrderIDsForTopic(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topicName")
	if topic == "" {
		respond.Error(w, http.StatusBadRequest, "topicName is required")
		return
	}
	respond.JSON(w, http.StatusOK, topicOrdersResponse{
		TopicName: topic,
		OrderIDs:  h.store.ArrivalsFor(topic),
	})
}

// Health reports liveness together with the consumer loop state. It stays
// 200 while the consumer is down since reads are still served.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok"}
	if h.consumerState != nil {
		body["consumer"] = h.consumerState().String()
	}
	respond.JSON(w, http.StatusOK, body)
}
