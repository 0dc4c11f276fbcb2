package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/avelis/commodex/internal/domain"
)

// PricePoint is one (tick, price) observation in a good's history.
type PricePoint struct {
	Tick  int64 `json:"tick"`
	Price int64 `json:"price"`
}

// PriceSnapshot is a read-side copy of a good's price state.
type PriceSnapshot struct {
	GoodID       string       `json:"good_id"`
	CurrentPrice int64        `json:"current_price"`
	BasePrice    int64        `json:"base_price"`
	Volatility   float64      `json:"volatility"`
	History      []PricePoint `json:"history,omitempty"`
}

// EquilibriumPrice computes the supply/demand equilibrium price for a
// good. The log-ratio adjustment is clamped to ±50% of base so a wildly
// skewed signal cannot more than halve or one-and-a-half the price in a
// single tick. Zero or negative signals fall back to a neutral ratio on
// the missing side. The result is rounded and floored at 1. Pure
// function, safe to run off the tick thread.
func EquilibriumPrice(basePrice, supply, demand int64, elasticity float64) int64 {
	if supply <= 0 {
		supply = 1
	}
	if demand <= 0 {
		demand = 1
	}
	adj := math.Log(float64(demand)/float64(supply)) * elasticity
	if adj > 0.5 {
		adj = 0.5
	} else if adj < -0.5 {
		adj = -0.5
	}
	return floorRound(float64(basePrice) * (1 + adj))
}

func floorRound(p float64) int64 {
	rounded := int64(math.Round(p))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// PriceTracker owns the price state for a single good: current price,
// base anchor, bounded history and derived volatility. Updated once per
// tick by the economy manager.
type PriceTracker struct {
	mu         sync.RWMutex
	goodID     string
	basePrice  int64
	elasticity float64
	current    int64
	volatility float64
	history    []PricePoint
	retention  int
}

// NewPriceTracker creates a tracker anchored at the good's base price.
func NewPriceTracker(good *domain.Good, retention int) *PriceTracker {
	if retention < 2 {
		retention = 2
	}
	return &PriceTracker{
		goodID:     good.ID,
		basePrice:  good.BasePrice,
		elasticity: good.Elasticity,
		current:    good.BasePrice,
		retention:  retention,
	}
}

// GoodID returns the good this tracker prices.
func (t *PriceTracker) GoodID() string {
	return t.goodID
}

// Params returns the inputs needed to compute this good's equilibrium
// price externally (base price and elasticity).
func (t *PriceTracker) Params() (basePrice int64, elasticity float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.basePrice, t.elasticity
}

// Current returns the good's current price.
func (t *PriceTracker) Current() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Apply records the tick's price update. When a trade happened this
// tick the new price blends the equilibrium with the last trade price
// (80/20); otherwise the equilibrium is taken as-is. The result is
// floored at 1, appended to the bounded history, and volatility is
// recomputed over the retained window.
func (t *PriceTracker) Apply(tick, equilibrium, lastTradePrice int64, traded bool) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	price := equilibrium
	if traded {
		price = floorRound(0.8*float64(equilibrium) + 0.2*float64(lastTradePrice))
	}
	if price < 1 {
		price = 1
	}
	t.current = price
	t.appendLocked(tick, price)
	t.volatility = returnStdDev(t.history)
	return price
}

// HealthCheck force-corrects a price that has drifted more than
// threshold (a ratio, 1.0 = 100%) away from base: above-base prices
// snap to base×aboveFactor, below-base to base×belowFactor. This is a
// circuit breaker against runaway supply/demand feedback, not an error
// path. Returns the corrected price and whether a correction fired.
func (t *PriceTracker) HealthCheck(tick int64, threshold, aboveFactor, belowFactor float64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	deviation := math.Abs(float64(t.current-t.basePrice)) / float64(t.basePrice)
	if deviation <= threshold {
		return t.current, false
	}

	factor := belowFactor
	if t.current > t.basePrice {
		factor = aboveFactor
	}
	t.current = floorRound(float64(t.basePrice) * factor)
	t.appendLocked(tick, t.current)
	t.volatility = returnStdDev(t.history)
	return t.current, true
}

func (t *PriceTracker) appendLocked(tick, price int64) {
	t.history = append(t.history, PricePoint{Tick: tick, Price: price})
	if len(t.history) > t.retention {
		kept := t.history[len(t.history)-t.retention:]
		out := make([]PricePoint, t.retention)
		copy(out, kept)
		t.history = out
	}
}

// History returns up to limit most recent price points, oldest first.
// limit ≤ 0 returns the full retained window.
func (t *PriceTracker) History(limit int) []PricePoint {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit <= 0 || limit > len(t.history) {
		limit = len(t.history)
	}
	out := make([]PricePoint, limit)
	copy(out, t.history[len(t.history)-limit:])
	return out
}

// Volatility returns the standard deviation of per-tick returns over
// the retained history.
func (t *PriceTracker) Volatility() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.volatility
}

// Snapshot returns a copy of the tracker's state without history.
func (t *PriceTracker) Snapshot() PriceSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return PriceSnapshot{
		GoodID:       t.goodID,
		CurrentPrice: t.current,
		BasePrice:    t.basePrice,
		Volatility:   t.volatility,
	}
}

// returnStdDev computes the standard deviation of per-step returns
// (p[i]-p[i-1])/p[i-1] over the history window.
func returnStdDev(history []PricePoint) float64 {
	if len(history) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := float64(history[i-1].Price)
		if prev == 0 {
			continue
		}
		returns = append(returns, (float64(history[i].Price)-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// PriceBoard is a thread-safe map of good ID → PriceTracker.
type PriceBoard struct {
	mu       sync.RWMutex
	trackers map[string]*PriceTracker
}

// NewPriceBoard creates an empty PriceBoard.
func NewPriceBoard() *PriceBoard {
	return &PriceBoard{
		trackers: make(map[string]*PriceTracker),
	}
}

// Register adds a tracker for the good, replacing any existing one.
func (b *PriceBoard) Register(good *domain.Good, retention int) *PriceTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := NewPriceTracker(good, retention)
	b.trackers[good.ID] = t
	return t
}

// Get returns the tracker for the good, or ErrGoodNotFound.
func (b *PriceBoard) Get(goodID string) (*PriceTracker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trackers[goodID]
	if !ok {
		return nil, domain.ErrGoodNotFound
	}
	return t, nil
}

// CurrentPrice returns the good's current price, or 0 when unknown.
// Convenient as a valuation function for inventory snapshots.
func (b *PriceBoard) CurrentPrice(goodID string) int64 {
	t, err := b.Get(goodID)
	if err != nil {
		return 0
	}
	return t.Current()
}

// All returns every registered tracker, ordered by good ID.
func (b *PriceBoard) All() []*PriceTracker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*PriceTracker, 0, len(b.trackers))
	for _, t := range b.trackers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].goodID < out[j].goodID })
	return out
}
