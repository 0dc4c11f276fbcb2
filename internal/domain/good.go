package domain

import (
	"sort"
	"sync"
)

// Good describes a tradeable commodity and its pricing parameters.
type Good struct {
	ID         string
	Name       string
	BasePrice  int64   // reference anchor in minor currency units
	Elasticity float64 // sensitivity of price to the demand/supply ratio
}

// GoodRegistry tracks the goods known to the market in a thread-safe
// manner. Goods are registered once at session start from configuration;
// lookups are read-heavy and served under a read lock.
type GoodRegistry struct {
	mu    sync.RWMutex
	goods map[string]*Good
}

// NewGoodRegistry creates an empty GoodRegistry.
func NewGoodRegistry() *GoodRegistry {
	return &GoodRegistry{
		goods: make(map[string]*Good),
	}
}

// Register adds a good to the registry. Registering the same ID twice
// returns ErrGoodAlreadyExists.
func (r *GoodRegistry) Register(g *Good) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.goods[g.ID]; ok {
		return ErrGoodAlreadyExists
	}
	r.goods[g.ID] = g
	return nil
}

// Get returns the good with the given ID.
func (r *GoodRegistry) Get(id string) (*Good, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goods[id]
	if !ok {
		return nil, ErrGoodNotFound
	}
	return g, nil
}

// Exists returns true if the good has been registered.
func (r *GoodRegistry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.goods[id]
	return ok
}

// List returns all registered goods sorted by ID.
func (r *GoodRegistry) List() []*Good {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Good, 0, len(r.goods))
	for _, g := range r.goods {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
