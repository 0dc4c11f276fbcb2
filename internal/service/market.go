package service

import (
	"fmt"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/engine"
	"github.com/avelis/commodex/internal/sim"
	"github.com/avelis/commodex/internal/store"
)

// ValidOrderStatuses lists all valid order status values for filtering.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusOpen:      true,
	domain.OrderStatusPartial:   true,
	domain.OrderStatusFilled:    true,
	domain.OrderStatusCancelled: true,
	domain.OrderStatusExpired:   true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	CompanyID string
	GoodID    string
	Side      domain.OrderSide
	Price     int64
	Quantity  int64
	ExpiresIn int64 // ticks until expiry, 0 = never
}

// MarketService handles order submission, cancellation and the
// read-side market projections.
type MarketService struct {
	manager *sim.Manager
	goods   *domain.GoodRegistry
	board   *engine.PriceBoard
	trades  *store.TradeStore
}

// NewMarketService creates a new MarketService with the given
// dependencies. Order reads go through the manager so callers only see
// copies taken under the tick lock, never the live book orders.
func NewMarketService(
	manager *sim.Manager,
	goods *domain.GoodRegistry,
	board *engine.PriceBoard,
	trades *store.TradeStore,
) *MarketService {
	return &MarketService{
		manager: manager,
		goods:   goods,
		board:   board,
		trades:  trades,
	}
}

// SubmitOrder validates the request and places the order on the book.
// Sell orders reserve the offered stock immediately; buy orders are
// checked against available cash but reserve nothing.
func (s *MarketService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if !companyIDRegex.MatchString(req.CompanyID) {
		return nil, &domain.ValidationError{
			Message: "company_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.ExpiresIn < 0 {
		return nil, &domain.ValidationError{
			Message: "expires_in must be >= 0 ticks",
		}
	}

	switch req.Side {
	case domain.OrderSideBuy:
		return s.manager.SubmitBuyOrder(req.CompanyID, req.GoodID, req.Quantity, req.Price, req.ExpiresIn)
	case domain.OrderSideSell:
		return s.manager.SubmitSellOrder(req.CompanyID, req.GoodID, req.Quantity, req.Price, req.ExpiresIn)
	default:
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
}

// GetOrder retrieves a point-in-time copy of an order by ID.
func (s *MarketService) GetOrder(orderID string) (*domain.Order, error) {
	return s.manager.GetOrder(orderID)
}

// CancelOrder cancels companyID's order, releasing any reservation.
func (s *MarketService) CancelOrder(orderID, companyID string) (*domain.Order, error) {
	return s.manager.CancelOrder(orderID, companyID)
}

// ListOrders returns a company's orders, newest first, optionally
// filtered by status.
func (s *MarketService) ListOrders(companyID string, status *domain.OrderStatus, limit int) ([]*domain.Order, error) {
	if status != nil && !ValidOrderStatuses[*status] {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: open, partial, filled, cancelled, expired", *status),
		}
	}
	if limit < 0 || limit > 1000 {
		return nil, &domain.ValidationError{
			Message: "limit must be between 0 and 1000",
		}
	}
	return s.manager.ListOrders(companyID, status, limit), nil
}

// GoodView is a configured good together with its current price.
type GoodView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BasePrice    int64   `json:"base_price"`
	Elasticity   float64 `json:"elasticity"`
	CurrentPrice int64   `json:"current_price"`
}

// ListGoods returns all configured goods with their current prices,
// sorted by id.
func (s *MarketService) ListGoods() []GoodView {
	goods := s.goods.List()
	out := make([]GoodView, len(goods))
	for i, g := range goods {
		out[i] = GoodView{
			ID:           g.ID,
			Name:         g.Name,
			BasePrice:    g.BasePrice,
			Elasticity:   g.Elasticity,
			CurrentPrice: s.board.CurrentPrice(g.ID),
		}
	}
	return out
}

// GetDepth returns the aggregated order book for a good as of the last
// completed tick.
func (s *MarketService) GetDepth(goodID string) (sim.DepthSnapshot, error) {
	if !s.goods.Exists(goodID) {
		return sim.DepthSnapshot{}, domain.ErrGoodNotFound
	}
	snap := s.manager.Snapshot()
	depth, ok := snap.Depth[goodID]
	if !ok {
		// Registered after the last tick; an empty book is correct.
		return sim.DepthSnapshot{GoodID: goodID}, nil
	}
	return depth, nil
}

// GetTradeHistory returns up to limit most recent trades for a good,
// oldest first.
func (s *MarketService) GetTradeHistory(goodID string, limit int) ([]*domain.Trade, error) {
	if !s.goods.Exists(goodID) {
		return nil, domain.ErrGoodNotFound
	}
	return s.trades.ByGood(goodID, limit), nil
}

// GetAllTrades returns up to limit most recent trades across all
// goods, oldest first.
func (s *MarketService) GetAllTrades(limit int) []*domain.Trade {
	return s.trades.All(limit)
}

// GetPriceHistory returns up to limit most recent price points for a
// good, oldest first, along with the current price state.
func (s *MarketService) GetPriceHistory(goodID string, limit int) (engine.PriceSnapshot, error) {
	tracker, err := s.board.Get(goodID)
	if err != nil {
		return engine.PriceSnapshot{}, err
	}
	snap := tracker.Snapshot()
	snap.History = tracker.History(limit)
	return snap, nil
}

// GetPrices returns the current price state for all goods as of the
// last completed tick.
func (s *MarketService) GetPrices() []engine.PriceSnapshot {
	return s.manager.Snapshot().Prices
}

// GetStats returns the last completed tick's statistics.
func (s *MarketService) GetStats() sim.TickStats {
	return s.manager.Snapshot().Stats
}
