package store

import (
	"fmt"
	"testing"

	"github.com/avelis/commodex/internal/domain"
)

func newTestTrade(id, goodID string, tick int64) *domain.Trade {
	return &domain.Trade{
		TradeID:  id,
		GoodID:   goodID,
		Price:    100,
		Quantity: 1,
		Tick:     tick,
	}
}

func TestTradeStore_AppendAndByGood(t *testing.T) {
	s := NewTradeStore(100)
	s.Append(newTestTrade("t1", "grain", 1))
	s.Append(newTestTrade("t2", "iron", 1))
	s.Append(newTestTrade("t3", "grain", 2))

	grain := s.ByGood("grain", 0)
	if len(grain) != 2 {
		t.Fatalf("len(grain trades) = %d, want 2", len(grain))
	}
	if grain[0].TradeID != "t1" || grain[1].TradeID != "t3" {
		t.Errorf("grain trades out of order: %s, %s", grain[0].TradeID, grain[1].TradeID)
	}

	all := s.All(0)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
}

func TestTradeStore_Limit(t *testing.T) {
	s := NewTradeStore(100)
	for i := int64(0); i < 10; i++ {
		s.Append(newTestTrade(fmt.Sprintf("t%d", i), "grain", i))
	}

	recent := s.ByGood("grain", 3)
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	// Most recent three, oldest first.
	if recent[0].Tick != 7 || recent[2].Tick != 9 {
		t.Errorf("recent window = [%d..%d], want [7..9]", recent[0].Tick, recent[2].Tick)
	}
}

func TestTradeStore_RetentionTrimsOldestFirst(t *testing.T) {
	s := NewTradeStore(5)
	for i := int64(0); i < 20; i++ {
		s.Append(newTestTrade(fmt.Sprintf("t%d", i), "grain", i))
	}

	grain := s.ByGood("grain", 0)
	if len(grain) != 5 {
		t.Fatalf("len(grain) = %d, want 5 after trimming", len(grain))
	}
	if grain[0].Tick != 15 {
		t.Errorf("oldest retained tick = %d, want 15", grain[0].Tick)
	}
	if len(s.All(0)) != 5 {
		t.Errorf("len(all) = %d, want 5 after trimming", len(s.All(0)))
	}
}

func TestTradeStore_EmptyGood(t *testing.T) {
	s := NewTradeStore(10)
	if got := s.ByGood("nothing", 5); len(got) != 0 {
		t.Errorf("ByGood on empty store returned %d trades", len(got))
	}
}
