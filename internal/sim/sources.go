package sim

import (
	"sync"

	"github.com/avelis/commodex/internal/domain"
)

// OrderRequest is an externally submitted order waiting to enter the
// market at the next tick boundary.
type OrderRequest struct {
	CompanyID string
	GoodID    string
	Side      domain.OrderSide
	Price     int64
	Quantity  int64
	ExpiresIn int64 // ticks until expiry, 0 = never
}

// OrderSource feeds externally generated orders (production bots,
// scripted agents) into the tick loop. Drain is called once per tick
// and must return every request accumulated since the previous call.
type OrderSource interface {
	Drain(tick int64) []OrderRequest
}

// SupplyDemand is the aggregate signal for one good this tick.
type SupplyDemand struct {
	Supply int64 `json:"supply"`
	Demand int64 `json:"demand"`
}

// DemandSource supplies per-good supply/demand aggregates, typically
// from production and consumption subsystems outside the market core.
type DemandSource interface {
	Signals(tick int64) map[string]SupplyDemand
}

// QueueOrderSource is a thread-safe OrderSource backed by a slice.
// Producers push requests at any time; the tick loop drains them.
type QueueOrderSource struct {
	mu      sync.Mutex
	pending []OrderRequest
}

// NewQueueOrderSource creates an empty queue.
func NewQueueOrderSource() *QueueOrderSource {
	return &QueueOrderSource{}
}

// Push enqueues a request for the next tick.
func (q *QueueOrderSource) Push(req OrderRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, req)
}

// Drain returns and clears the pending requests.
func (q *QueueOrderSource) Drain(int64) []OrderRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// DemandFunc adapts a function to the DemandSource interface.
type DemandFunc func(tick int64) map[string]SupplyDemand

// Signals calls f.
func (f DemandFunc) Signals(tick int64) map[string]SupplyDemand {
	return f(tick)
}

// StaticDemand returns a DemandSource that reports the same signals
// every tick. Useful for tests and bootstrapping.
func StaticDemand(signals map[string]SupplyDemand) DemandSource {
	return DemandFunc(func(int64) map[string]SupplyDemand {
		return signals
	})
}
