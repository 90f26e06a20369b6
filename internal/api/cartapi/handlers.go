// Package cartapi is the REST API of the writer service.
package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nsridhar76/go-ordersync/internal/api/respond"
	"github.com/nsridhar76/go-ordersync/internal/cart"
	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// OrderWriter is the part of cart.Service the handlers use.
type OrderWriter interface {
	CreateOrder(ctx context.Context, rawID string, numItems int) (string, error)
	UpdateOrderStatus(ctx context.Context, rawID string, status domain.OrderStatus) error
}

type Handlers struct {
	orders OrderWriter
	logger *slog.Logger
}

func NewHandlers(orders OrderWriter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orders: orders, logger: logger}
}

type createOrderRequest struct {
	OrderID       string `json:"orderId"`
	NumberOfItems int    `json:"numberOfItems"`
}

type updateOrderRequest struct {
	OrderID string             `json:"orderId"`
	Status  domain.OrderStatus `json:"status"`
}

type orderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidOrderID(req.OrderID) {
		respond.Error(w, http.StatusBadRequest, "orderId must be digits or 'ORD-<digits>'")
		return
	}
	if req.NumberOfItems < 1 {
		respond.Error(w, http.StatusBadRequest, "numberOfItems must be greater than 0")
		return
	}

	id, err := h.orders.CreateOrder(r.Context(), req.OrderID, req.NumberOfItems)
	if err != nil {
		h.writeError(w, "create order", err)
		return
	}
	respond.JSON(w, http.StatusOK, orderResponse{
		Message: "order created and published successfully",
		OrderID: id,
	})
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidOrderID(req.OrderID) {
		respond.Error(w, http.StatusBadRequest, "orderId must be digits or 'ORD-<digits>'")
		return
	}
	if !req.Status.Valid() {
		respond.Error(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.orders.UpdateOrderStatus(r.Context(), req.OrderID, req.Status); err != nil {
		h.writeError(w, "update order", err)
		return
	}
	respond.JSON(w, http.StatusOK, orderResponse{
		Message: "order status updated and published successfully",
		OrderID: domain.NormalizeOrderID(req.OrderID),
	})
}

func (h *Handlers) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderAlreadyExists):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrPublish):
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		respond.Error(w, http.StatusServiceUnavailable, "failed to publish order event: "+err.Error())
	default:
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
}
