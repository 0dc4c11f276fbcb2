package store

import (
	"sync"

	"github.com/avelis/commodex/internal/domain"
)

// TradeStore is a thread-safe, append-only store of executed trades,
// chronological per good and globally, trimmed oldest-first to a bounded
// retention window.
type TradeStore struct {
	mu        sync.RWMutex
	retention int
	byGood    map[string][]*domain.Trade
	all       []*domain.Trade
}

// NewTradeStore creates an empty TradeStore retaining up to retention
// trades per good (and the same bound on the global list).
func NewTradeStore(retention int) *TradeStore {
	if retention < 1 {
		retention = 1
	}
	return &TradeStore{
		retention: retention,
		byGood:    make(map[string][]*domain.Trade),
	}
}

// Append adds a trade, trimming the oldest entries beyond the retention
// window.
func (s *TradeStore) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byGood[t.GoodID] = trim(append(s.byGood[t.GoodID], t), s.retention)
	s.all = trim(append(s.all, t), s.retention)
}

// ByGood returns up to limit most recent trades for a good, oldest first.
// limit ≤ 0 returns the full retained window.
func (s *TradeStore) ByGood(goodID string, limit int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.byGood[goodID], limit)
}

// All returns up to limit most recent trades across all goods, oldest
// first. limit ≤ 0 returns the full retained window.
func (s *TradeStore) All(limit int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.all, limit)
}

func trim(trades []*domain.Trade, retention int) []*domain.Trade {
	if len(trades) <= retention {
		return trades
	}
	// Copy down so the backing array doesn't grow without bound.
	kept := trades[len(trades)-retention:]
	out := make([]*domain.Trade, retention)
	copy(out, kept)
	return out
}

func tail(trades []*domain.Trade, limit int) []*domain.Trade {
	if limit <= 0 || limit > len(trades) {
		limit = len(trades)
	}
	out := make([]*domain.Trade, limit)
	copy(out, trades[len(trades)-limit:])
	return out
}
