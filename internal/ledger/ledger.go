// Package ledger implements per-company cash and goods accounting with a
// three-way stock split (available / reserved-for-sale / reserved-for-
// production). All operations return domain errors for expected business
// failures; nothing here panics on routine insufficiency.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/avelis/commodex/internal/domain"
)

// Journal reasons.
const (
	ReasonAdd                 = "add_goods"
	ReasonConsume             = "consume_goods"
	ReasonReserveSale         = "reserve_for_sale"
	ReasonUnreserveSale       = "unreserve_for_sale"
	ReasonReserveProduction   = "reserve_for_production"
	ReasonUnreserveProduction = "unreserve_for_production"
	ReasonSale                = "complete_sale"
	ReasonPurchase            = "complete_purchase"
	ReasonCash                = "cash_adjustment"
	ReasonCompanyCreated      = "company_created"
)

// Ledger is the authoritative store of company inventories. It is mutated
// only by the tick thread (the economy manager holds its lock across a
// tick); the internal lock keeps read-side projections safe between ticks.
type Ledger struct {
	mu        sync.RWMutex
	companies map[string]*domain.CompanyInventory
	journal   *Journal
}

// New creates an empty Ledger with a journal of the given capacity.
func New(journalCapacity int) *Ledger {
	return &Ledger{
		companies: make(map[string]*domain.CompanyInventory),
		journal:   NewJournal(journalCapacity),
	}
}

// Journal exposes the audit journal.
func (l *Ledger) Journal() *Journal {
	return l.journal
}

// CreateCompany registers a company with starting cash and optional
// initial stocks (at zero acquisition cost). It returns
// domain.ErrCompanyAlreadyExists for duplicate IDs.
func (l *Ledger) CreateCompany(id, companyType string, startingCash int64, initialStocks map[string]int64, tick int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.companies[id]; exists {
		return domain.ErrCompanyAlreadyExists
	}

	inv := &domain.CompanyInventory{
		CompanyID:   id,
		CompanyType: companyType,
		Cash:        startingCash,
		Stocks:      make(map[string]*domain.GoodsStock),
		CreatedAt:   time.Now(),
	}
	for goodID, qty := range initialStocks {
		if qty <= 0 {
			continue
		}
		inv.Stocks[goodID] = &domain.GoodsStock{Quantity: qty, LastUpdateTick: tick}
	}
	l.companies[id] = inv

	l.journal.Append(ChangeEvent{
		CompanyID: id,
		CashDelta: startingCash,
		Reason:    ReasonCompanyCreated,
		Tick:      tick,
	})
	return nil
}

// Get retrieves a company's inventory. The returned pointer is the live
// record; callers outside the tick thread must not mutate it.
func (l *Ledger) Get(id string) (*domain.CompanyInventory, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	inv, ok := l.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	return inv, nil
}

// Exists returns true if a company with the given ID is registered.
func (l *Ledger) Exists(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.companies[id]
	return ok
}

// AddGoods increases a company's available quantity, recomputing AvgCost
// as the quantity-weighted average of held value and incoming value.
func (l *Ledger) AddGoods(companyID, goodID string, qty, unitCost, tick int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addGoodsLocked(companyID, goodID, qty, unitCost, tick, reason, "")
}

func (l *Ledger) addGoodsLocked(companyID, goodID string, qty, unitCost, tick int64, reason, tradeID string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	creditGoods(inv, goodID, qty, unitCost, tick)

	l.journal.Append(ChangeEvent{
		CompanyID: companyID,
		GoodID:    goodID,
		Qty:       qty,
		Reason:    reason,
		Tick:      tick,
		TradeID:   tradeID,
	})
	return nil
}

// creditGoods increases available quantity and folds the incoming value
// into the quantity-weighted average cost.
func creditGoods(inv *domain.CompanyInventory, goodID string, qty, unitCost, tick int64) {
	s := inv.Stock(goodID)
	held := s.TotalHeld()
	if held+qty > 0 {
		s.AvgCost = (float64(held)*s.AvgCost + float64(qty)*float64(unitCost)) / float64(held+qty)
	}
	s.Quantity += qty
	s.LastUpdateTick = tick
}

// ConsumeGoods removes qty units, drawing from the production reservation
// first and then from available quantity. Consumption is all-or-nothing:
// if the two buckets together hold less than qty, nothing is consumed.
func (l *Ledger) ConsumeGoods(companyID, goodID string, qty, tick int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	s := inv.Stock(goodID)
	if s.ReservedForProduction+s.Quantity < qty {
		return domain.ErrInsufficientStock
	}

	fromReserved := min64(s.ReservedForProduction, qty)
	s.ReservedForProduction -= fromReserved
	s.Quantity -= qty - fromReserved
	s.LastUpdateTick = tick

	l.journal.Append(ChangeEvent{
		CompanyID: companyID,
		GoodID:    goodID,
		Qty:       -qty,
		Reason:    reason,
		Tick:      tick,
	})
	return nil
}

// ReserveForSale moves qty units from available quantity into the
// for-sale reservation, where they back a resting sell order.
func (l *Ledger) ReserveForSale(companyID, goodID string, qty, tick int64) error {
	return l.moveStock(companyID, goodID, qty, tick, ReasonReserveSale, func(s *domain.GoodsStock) error {
		if s.Quantity < qty {
			return domain.ErrInsufficientStock
		}
		s.Quantity -= qty
		s.ReservedForSale += qty
		return nil
	})
}

// UnreserveForSale releases qty units from the for-sale reservation back
// to available quantity.
func (l *Ledger) UnreserveForSale(companyID, goodID string, qty, tick int64) error {
	return l.moveStock(companyID, goodID, qty, tick, ReasonUnreserveSale, func(s *domain.GoodsStock) error {
		if s.ReservedForSale < qty {
			return domain.ErrInsufficientReservation
		}
		s.ReservedForSale -= qty
		s.Quantity += qty
		return nil
	})
}

// ReserveForProduction moves qty units from available quantity into the
// production-input reservation.
func (l *Ledger) ReserveForProduction(companyID, goodID string, qty, tick int64) error {
	return l.moveStock(companyID, goodID, qty, tick, ReasonReserveProduction, func(s *domain.GoodsStock) error {
		if s.Quantity < qty {
			return domain.ErrInsufficientStock
		}
		s.Quantity -= qty
		s.ReservedForProduction += qty
		return nil
	})
}

// UnreserveForProduction releases qty units from the production
// reservation back to available quantity.
func (l *Ledger) UnreserveForProduction(companyID, goodID string, qty, tick int64) error {
	return l.moveStock(companyID, goodID, qty, tick, ReasonUnreserveProduction, func(s *domain.GoodsStock) error {
		if s.ReservedForProduction < qty {
			return domain.ErrInsufficientReservation
		}
		s.ReservedForProduction -= qty
		s.Quantity += qty
		return nil
	})
}

// moveStock applies a reservation move under the write lock and journals
// it. The move callback validates and mutates the stock entry.
func (l *Ledger) moveStock(companyID, goodID string, qty, tick int64, reason string, move func(*domain.GoodsStock) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	s := inv.Stock(goodID)
	if err := move(s); err != nil {
		return err
	}
	s.LastUpdateTick = tick

	l.journal.Append(ChangeEvent{
		CompanyID: companyID,
		GoodID:    goodID,
		Qty:       qty,
		Reason:    reason,
		Tick:      tick,
	})
	return nil
}

// CompleteSale settles the seller side of a trade: qty units leave the
// for-sale reservation and cash is credited at the execution price.
func (l *Ledger) CompleteSale(sellerID, goodID string, qty, price, tick int64, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completeSaleLocked(sellerID, goodID, qty, price, tick, tradeID)
}

func (l *Ledger) completeSaleLocked(sellerID, goodID string, qty, price, tick int64, tradeID string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[sellerID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	s := inv.Stock(goodID)
	if s.ReservedForSale < qty {
		return domain.ErrInsufficientReservation
	}

	total := domain.TotalValue(price, qty)
	s.ReservedForSale -= qty
	s.LastUpdateTick = tick
	inv.Cash += total

	l.journal.Append(ChangeEvent{
		CompanyID: sellerID,
		GoodID:    goodID,
		Qty:       -qty,
		CashDelta: total,
		Reason:    ReasonSale,
		Tick:      tick,
		TradeID:   tradeID,
	})
	return nil
}

// CompletePurchase settles the buyer side of a trade: cash is debited at
// the execution price and the goods are added at that acquisition cost.
func (l *Ledger) CompletePurchase(buyerID, goodID string, qty, price, tick int64, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completePurchaseLocked(buyerID, goodID, qty, price, tick, tradeID)
}

func (l *Ledger) completePurchaseLocked(buyerID, goodID string, qty, price, tick int64, tradeID string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[buyerID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	total := domain.TotalValue(price, qty)
	if inv.Cash < total {
		return domain.ErrInsufficientFunds
	}

	inv.Cash -= total
	creditGoods(inv, goodID, qty, price, tick)

	l.journal.Append(ChangeEvent{
		CompanyID: buyerID,
		GoodID:    goodID,
		Qty:       qty,
		CashDelta: -total,
		Reason:    ReasonPurchase,
		Tick:      tick,
		TradeID:   tradeID,
	})
	return nil
}

// SettleTrade atomically applies both sides of a matched trade. Both
// sides are validated before either is mutated, so a failed settlement
// leaves the ledger untouched.
func (l *Ledger) SettleTrade(buyerID, sellerID, goodID string, qty, price, tick int64, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if price <= 0 {
		return domain.ErrInvalidPrice
	}
	seller, ok := l.companies[sellerID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	buyer, ok := l.companies[buyerID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	if seller.Stock(goodID).ReservedForSale < qty {
		return domain.ErrInsufficientReservation
	}
	if buyer.Cash < domain.TotalValue(price, qty) {
		return domain.ErrInsufficientFunds
	}

	if err := l.completeSaleLocked(sellerID, goodID, qty, price, tick, tradeID); err != nil {
		return err
	}
	return l.completePurchaseLocked(buyerID, goodID, qty, price, tick, tradeID)
}

// AddCash credits (or, with a negative amount, debits) cash directly for
// non-trade flows such as subsidies. Negative results are permitted only
// through this entry point.
func (l *Ledger) AddCash(companyID string, amount, tick int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	inv.Cash += amount

	l.journal.Append(ChangeEvent{
		CompanyID: companyID,
		CashDelta: amount,
		Reason:    reason,
		Tick:      tick,
	})
	return nil
}

// DeductCash debits cash for non-trade flows (maintenance, taxes). It
// fails with domain.ErrInsufficientFunds if the balance would go negative.
func (l *Ledger) DeductCash(companyID string, amount, tick int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	inv, ok := l.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	if inv.Cash < amount {
		return domain.ErrInsufficientFunds
	}
	inv.Cash -= amount

	l.journal.Append(ChangeEvent{
		CompanyID: companyID,
		CashDelta: -amount,
		Reason:    reason,
		Tick:      tick,
	})
	return nil
}

// StockRow is a single good's position in an inventory snapshot.
type StockRow struct {
	GoodID                string  `json:"good_id"`
	Quantity              int64   `json:"quantity"`
	ReservedForSale       int64   `json:"reserved_for_sale"`
	ReservedForProduction int64   `json:"reserved_for_production"`
	AvgCost               float64 `json:"avg_cost"`
	MarketValue           int64   `json:"market_value"`
}

// InventorySnapshot is a read-side projection of a company's holdings.
type InventorySnapshot struct {
	CompanyID  string     `json:"company_id"`
	Cash       int64      `json:"cash"`
	Stocks     []StockRow `json:"stocks"`
	TotalValue int64      `json:"total_value"` // cash + market value of all held units
}

// Snapshot builds an inventory snapshot for a company, valuing total held
// units at the price returned by priceFn. Rows are sorted by good ID.
func (l *Ledger) Snapshot(companyID string, priceFn func(goodID string) int64) (*InventorySnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	inv, ok := l.companies[companyID]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}

	snap := &InventorySnapshot{
		CompanyID:  companyID,
		Cash:       inv.Cash,
		Stocks:     make([]StockRow, 0, len(inv.Stocks)),
		TotalValue: inv.Cash,
	}
	for goodID, s := range inv.Stocks {
		mv := domain.TotalValue(priceFn(goodID), s.TotalHeld())
		snap.Stocks = append(snap.Stocks, StockRow{
			GoodID:                goodID,
			Quantity:              s.Quantity,
			ReservedForSale:       s.ReservedForSale,
			ReservedForProduction: s.ReservedForProduction,
			AvgCost:               s.AvgCost,
			MarketValue:           mv,
		})
		snap.TotalValue += mv
	}
	sort.Slice(snap.Stocks, func(i, j int) bool { return snap.Stocks[i].GoodID < snap.Stocks[j].GoodID })
	return snap, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
