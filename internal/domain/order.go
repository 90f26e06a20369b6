// Package domain defines the order aggregate shared by the writer and reader services.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for writer-side precondition checks.
var (
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrder       = errors.New("invalid order")
)

// OrderStatus is the lifecycle status of an order. Any status may follow any other.
type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusCancelled  OrderStatus = "cancelled"
)

// Statuses lists every known OrderStatus.
var Statuses = []OrderStatus{
	StatusNew, StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Currency is an ISO 4217 code from a closed set.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyKRW Currency = "KRW"
	CurrencyCNY Currency = "CNY"
	CurrencyINR Currency = "INR"
	CurrencyBRL Currency = "BRL"
	CurrencyMXN Currency = "MXN"
	CurrencyARS Currency = "ARS"
	CurrencyCOP Currency = "COP"
)

// Currencies lists every supported Currency.
var Currencies = []Currency{
	CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyJPY, CurrencyKRW, CurrencyCNY,
	CurrencyINR, CurrencyBRL, CurrencyMXN, CurrencyARS, CurrencyCOP,
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// OrderItem is one line of an order.
type OrderItem struct {
	ItemID   string  `json:"itemId"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is the aggregate whose lifecycle is propagated between services.
type Order struct {
	OrderID     string      `json:"orderId"`
	CustomerID  string      `json:"customerId"`
	OrderDate   time.Time   `json:"orderDate"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Currency    Currency    `json:"currency"`
	Status      OrderStatus `json:"status"`
}

// Validate checks the shape of the order. It does not check the total
// against the items; the writer computes it and readers take it as given.
func (o *Order) Validate() error {
	switch {
	case o.OrderID == "":
		return fmt.Errorf("%w: orderId is required", ErrInvalidOrder)
	case o.CustomerID == "":
		return fmt.Errorf("%w: customerId is required", ErrInvalidOrder)
	case o.OrderDate.IsZero():
		return fmt.Errorf("%w: orderDate is required", ErrInvalidOrder)
	case len(o.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	case math.IsNaN(o.TotalAmount) || math.IsInf(o.TotalAmount, 0):
		return fmt.Errorf("%w: totalAmount must be finite", ErrInvalidOrder)
	case !o.Currency.Valid():
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidOrder, o.Currency)
	case !o.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, o.Status)
	}

	for i, item := range o.Items {
		if item.ItemID == "" {
			return fmt.Errorf("%w: items[%d].itemId is required", ErrInvalidOrder, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrInvalidOrder, i)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: items[%d].price must not be negative", ErrInvalidOrder, i)
		}
	}
	return nil
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	return o
}
