package store

import (
	"sync"

	"github.com/avelis/commodex/internal/domain"
)

// OrderStore is a thread-safe in-memory store for orders, with a primary
// index by order ID and a secondary index by company ID. Orders stay in
// the store after reaching a terminal status so trade history references
// remain resolvable.
type OrderStore struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	companyOrders map[string][]*domain.Order // company ID → orders (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[string]*domain.Order),
		companyOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order to the store and appends it to the company's
// secondary index.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderID] = o
	s.companyOrders[o.CompanyID] = append(s.companyOrders[o.CompanyID], o)
}

// Get retrieves an order by ID. It returns domain.ErrOrderNotFound if
// the order does not exist.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByCompany returns a company's orders newest first. If status is
// non-nil, only orders matching that status are included. limit ≤ 0
// means no limit.
func (s *OrderStore) ListByCompany(companyID string, status *domain.OrderStatus, limit int) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.companyOrders[companyID]
	out := make([]*domain.Order, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
