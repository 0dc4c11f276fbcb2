package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/ledger"
	"github.com/avelis/commodex/internal/store"
)

// Matcher implements the per-tick continuous double auction with strict
// price-time priority. It consumes the order book and mutates the
// inventory ledger atomically per trade.
type Matcher struct {
	books  *Books
	ledger *ledger.Ledger
	orders *store.OrderStore
	trades *store.TradeStore
	log    zerolog.Logger
}

// NewMatcher creates a Matcher with the given dependencies.
func NewMatcher(
	books *Books,
	l *ledger.Ledger,
	orders *store.OrderStore,
	trades *store.TradeStore,
	log zerolog.Logger,
) *Matcher {
	return &Matcher{
		books:  books,
		ledger: l,
		orders: orders,
		trades: trades,
		log:    log,
	}
}

// MatchGood runs one matching pass for a single good. Buy orders are
// visited in priority order; for each, sell orders are walked ascending
// by price and the scan breaks as soon as an ask is priced above the
// bid, since no later ask can match either. Execution price is always
// the sell order's limit price. Trades settle through the ledger before
// any order quantity is touched, so a settlement failure leaves the
// book and ledger consistent; the offending order is flagged for review
// and pulled from the book instead.
//
// Returns the trades executed this pass in discovery order.
func (m *Matcher) MatchGood(book *OrderBook, tick int64) []*domain.Trade {
	bestBid, okBid := book.BestBid()
	bestAsk, okAsk := book.BestAsk()
	if !okBid || !okAsk || bestBid.Price < bestAsk.Price {
		return nil
	}

	var trades []*domain.Trade

	for _, bid := range book.BidEntries() {
		buy := bid.Order
		if buy.RemainingQuantity <= 0 || buy.IsTerminal() {
			continue
		}

		for _, ask := range book.AskEntries() {
			sell := ask.Order
			if sell.RemainingQuantity <= 0 || sell.IsTerminal() {
				continue
			}
			// Asks are price-ascending: once one is above the bid, the
			// rest are too.
			if sell.Price > buy.Price {
				break
			}
			if sell.CompanyID == buy.CompanyID {
				continue
			}

			qty := buy.RemainingQuantity
			if sell.RemainingQuantity < qty {
				qty = sell.RemainingQuantity
			}
			price := sell.Price // maker price: the sell order's limit
			tradeID := uuid.New().String()

			err := m.ledger.SettleTrade(buy.CompanyID, sell.CompanyID, book.GoodID(), qty, price, tick, tradeID)
			if err != nil {
				m.failCommit(book, buy, sell, err, tick)
				if errors.Is(err, domain.ErrInsufficientFunds) {
					// Buyer can't fund this fill; later asks only cost
					// more, so give up on this buy order.
					break
				}
				continue
			}

			buy.RemainingQuantity -= qty
			sell.RemainingQuantity -= qty
			advanceStatus(buy)
			advanceStatus(sell)

			trade := &domain.Trade{
				TradeID:     tradeID,
				BuyOrderID:  buy.OrderID,
				SellOrderID: sell.OrderID,
				BuyerID:     buy.CompanyID,
				SellerID:    sell.CompanyID,
				GoodID:      book.GoodID(),
				Price:       price,
				Quantity:    qty,
				TotalValue:  domain.TotalValue(price, qty),
				Tick:        tick,
			}
			trades = append(trades, trade)
			m.trades.Append(trade)

			if sell.Status == domain.OrderStatusFilled {
				book.Remove(sell.OrderID)
			}
			if buy.Status == domain.OrderStatusFilled {
				book.Remove(buy.OrderID)
				break
			}
		}
	}

	return trades
}

// advanceStatus moves an order along open → partial → filled based on
// its remaining quantity.
func advanceStatus(o *domain.Order) {
	if o.RemainingQuantity == 0 {
		o.Status = domain.OrderStatusFilled
	} else if o.RemainingQuantity < o.Quantity {
		o.Status = domain.OrderStatusPartial
	}
}

// failCommit handles a trade the ledger refused to settle. Given prior
// reservation this should not happen; the order on the failing side is
// flagged for manual review and removed from the book so quantities
// never desynchronize.
func (m *Matcher) failCommit(book *OrderBook, buy, sell *domain.Order, err error, tick int64) {
	failed := sell
	if errors.Is(err, domain.ErrInsufficientFunds) {
		failed = buy
	}
	failed.FlaggedForReview = true
	book.Remove(failed.OrderID)

	m.log.Error().
		Err(domain.ErrMatchCommitFailure).
		Str("cause", err.Error()).
		Str("good_id", book.GoodID()).
		Str("buy_order_id", buy.OrderID).
		Str("sell_order_id", sell.OrderID).
		Str("flagged_order_id", failed.OrderID).
		Int64("tick", tick).
		Msg("trade could not be applied to the ledger")
}

// Cancel cancels an open or partially filled order on behalf of
// companyID, removing it from its book and releasing the sale
// reservation for sell orders. Cancelling on behalf of another company
// returns domain.ErrUnauthorized; terminal orders return
// domain.ErrOrderNotCancellable. Cancellation never double-releases: a
// terminal order is rejected before any reservation is touched.
func (m *Matcher) Cancel(orderID, companyID string, tick int64) (*domain.Order, error) {
	order, err := m.orders.Get(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.CompanyID != companyID {
		return nil, domain.ErrUnauthorized
	}
	if !order.Cancellable() {
		return nil, domain.ErrOrderNotCancellable
	}

	book := m.books.GetOrCreate(order.GoodID)
	book.Remove(order.OrderID)
	remaining := order.RemainingQuantity
	order.RemainingQuantity = 0
	order.Status = domain.OrderStatusCancelled

	if order.Side == domain.OrderSideSell && remaining > 0 {
		if err := m.ledger.UnreserveForSale(order.CompanyID, order.GoodID, remaining, tick); err != nil {
			m.log.Error().Err(err).
				Str("order_id", order.OrderID).
				Msg("failed to release sale reservation on cancel")
		}
	}
	return order, nil
}

// ExpireOrders transitions every resting order on the book whose
// ExpiresTick has passed to expired, removing it and releasing sell
// reservations. Returns the expired orders.
func (m *Matcher) ExpireOrders(book *OrderBook, tick int64) []*domain.Order {
	expired := book.CollectExpired(tick)
	for _, order := range expired {
		book.Remove(order.OrderID)
		remaining := order.RemainingQuantity
		order.RemainingQuantity = 0
		order.Status = domain.OrderStatusExpired

		if order.Side == domain.OrderSideSell && remaining > 0 {
			if err := m.ledger.UnreserveForSale(order.CompanyID, order.GoodID, remaining, tick); err != nil {
				m.log.Error().Err(err).
					Str("order_id", order.OrderID).
					Msg("failed to release sale reservation on expiry")
			}
		}
	}
	return expired
}
