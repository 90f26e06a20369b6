package cart

import (
	"sync"

	"github.com/nsridhar76/go-ordersync/internal/domain"
)

// MemoryStore is the writer's volatile view of the orders it created.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]domain.Order)}
}

// Add stores order, replacing any order with the same id.
func (s *MemoryStore) Add(order domain.Order) {
	order = order.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
}

// Get returns a copy of the order with id.
func (s *MemoryStore) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return order.Clone(), true
}

func (s *MemoryStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[id]
	return ok
}

// Update replaces a stored order. It reports false when the id is unknown.
func (s *MemoryStore) Update(order domain.Order) bool {
	order = order.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; !ok {
		return false
	}
	s.orders[order.OrderID] = order
	return true
}
