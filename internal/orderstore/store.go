// Package orderstore is the reader-side materialized view of orders.
//
// The store is volatile. Its full state can be rebuilt by replaying the
// order topic from the earliest offset. It holds no business rules; the
// reconciliation handler is its only writer and decides what to store.
package orderstore

import (
	"sync"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// Record is a materialized order plus values derived at creation time.
type Record struct {
	Order        domain.Order `json:"order"`
	ShippingCost float64      `json:"shippingCost"`
}

func (r Record) clone() Record {
	r.Order = r.Order.Clone()
	return r
}

// Store is safe for concurrent use. One lock guards the orders, the
// pending-status buffer and the arrival log together.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]Record
	pending  map[string]domain.OrderStatus
	arrivals map[string][]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		orders:   make(map[string]Record),
		pending:  make(map[string]domain.OrderStatus),
		arrivals: make(map[string][]string),
	}
}

// Put stores rec under id, replacing any previous record.
func (s *Store) Put(id string, rec Record) {
	rec = rec.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = rec
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Exists reports whether a record is stored for id.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[id]
	return ok
}

// SetStatus changes the status of a stored order. It returns false when id is unknown.
func (s *Store) SetStatus(id string, status domain.OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[id]
	if !ok {
		return false
	}
	rec.Order.Status = status
	s.orders[id] = rec
	return true
}

// SetPending buffers a status for an order that has not been created yet.
// A later call for the same id replaces the earlier value.
func (s *Store) SetPending(id string, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = status
}

// TakePending removes and returns the buffered status for id.
func (s *Store) TakePending(id string) (domain.OrderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return status, ok
}

// PendingCount returns how many orders have a buffered status.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// TrackArrival appends id to the arrival log of topic.
func (s *Store) TrackArrival(topic, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrivals[topic] = append(s.arrivals[topic], id)
}

// ArrivalsFor returns the ids seen on topic in arrival order, duplicates
// included. The result is never nil.
func (s *Store) ArrivalsFor(topic string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.arrivals[topic]...)
}
