package sim

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/engine"
	"github.com/avelis/commodex/internal/ledger"
)

// TickStats aggregates what happened in one tick.
type TickStats struct {
	Tick          int64         `json:"tick"`
	TradeCount    int           `json:"trade_count"`
	Volume        int64         `json:"volume"`
	Turnover      int64         `json:"turnover"`
	ExpiredOrders int           `json:"expired_orders"`
	AvgVolatility float64       `json:"avg_volatility"`
	Duration      time.Duration `json:"duration_ns"`
}

// String renders a compact human-readable summary for log lines.
func (s TickStats) String() string {
	return fmt.Sprintf("tick %d: %d trades, volume %s, turnover %s cents",
		s.Tick, s.TradeCount, humanize.Comma(s.Volume), humanize.Comma(s.Turnover))
}

// TickSummary is the per-tick event published to downstream consumers.
// It is delta-oriented: trades, price changes, and ledger changes for
// this tick only. Late joiners get a MarketSnapshot instead.
type TickSummary struct {
	Tick    int64                  `json:"tick"`
	Trades  []*domain.Trade        `json:"trades,omitempty"`
	Prices  []engine.PriceSnapshot `json:"prices"`
	Changes []ledger.ChangeEvent   `json:"changes,omitempty"`
	Stats   TickStats              `json:"stats"`
}

// DepthSnapshot is the aggregated top-of-book for one good.
type DepthSnapshot struct {
	GoodID string              `json:"good_id"`
	Bids   []engine.PriceLevel `json:"bids"`
	Asks   []engine.PriceLevel `json:"asks"`
}

// MarketSnapshot is the immutable full-state view swapped in at the end
// of each tick. Readers always see a complete, consistent tick.
type MarketSnapshot struct {
	Tick   int64                    `json:"tick"`
	Prices []engine.PriceSnapshot   `json:"prices"`
	Depth  map[string]DepthSnapshot `json:"depth"`
	Stats  TickStats                `json:"stats"`
}

// Publisher receives tick summaries for fan-out. Delivery is
// best-effort; implementations must not block the tick loop.
type Publisher interface {
	Publish(summary *TickSummary)
}
