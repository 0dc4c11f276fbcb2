package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/engine"
	"github.com/avelis/commodex/internal/ledger"
	"github.com/avelis/commodex/internal/store"
)

// ManagerConfig holds the tunable constants of the tick loop.
type ManagerConfig struct {
	TickInterval        time.Duration
	HealthCheckInterval int64   // ticks between mean-reversion checks, 0 disables
	DeviationThreshold  float64 // ratio of base price, 1.0 = 100%
	AboveCorrection     float64 // forced price factor when above base
	BelowCorrection     float64 // forced price factor when below base
	PriceRetention      int     // price history points per good
	DepthLevels         int     // levels per side in snapshots
}

// Deps are the collaborators the manager orchestrates.
type Deps struct {
	Goods     *domain.GoodRegistry
	Ledger    *ledger.Ledger
	Books     *engine.Books
	Board     *engine.PriceBoard
	Orders    *store.OrderStore
	Trades    *store.TradeStore
	Pool      *WorkerPool
	Demand    DemandSource
	Publisher Publisher
	Log       zerolog.Logger
}

// Manager drives the per-tick market sequence: drain order sources,
// expire, match, update prices, health-check, publish. One mutex guards
// all market mutation, so each tick is a synchronous batch with exactly
// one writer; API submissions take the same lock between ticks. Reads
// go through the immutable snapshot swapped in at tick end.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	tick    int64
	sources []OrderSource

	goods     *domain.GoodRegistry
	ledger    *ledger.Ledger
	books     *engine.Books
	board     *engine.PriceBoard
	orders    *store.OrderStore
	trades    *store.TradeStore
	matcher   *engine.Matcher
	pool      *WorkerPool
	demand    DemandSource
	publisher Publisher

	// journalCursor is the Seq of the last change event published in a
	// tick summary; events after it belong to the next summary, even
	// when they were journaled between ticks.
	journalCursor int64

	snapshot atomic.Pointer[MarketSnapshot]
	log      zerolog.Logger
}

// NewManager wires a manager from its collaborators. The initial
// snapshot is empty but never nil.
func NewManager(cfg ManagerConfig, d Deps) *Manager {
	m := &Manager{
		cfg:       cfg,
		goods:     d.Goods,
		ledger:    d.Ledger,
		books:     d.Books,
		board:     d.Board,
		orders:    d.Orders,
		trades:    d.Trades,
		matcher:   engine.NewMatcher(d.Books, d.Ledger, d.Orders, d.Trades, d.Log),
		pool:      d.Pool,
		demand:    d.Demand,
		publisher: d.Publisher,
		log:       d.Log,
	}
	m.snapshot.Store(&MarketSnapshot{Depth: map[string]DepthSnapshot{}})
	return m
}

// SetPublisher installs the tick summary sink. Call before Run; the
// hub and manager reference each other, so one side is wired late.
func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// AddOrderSource registers a source drained at every tick.
func (m *Manager) AddOrderSource(src OrderSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, src)
}

// RegisterGood makes a good tradeable: registry entry, price tracker
// anchored at base price, and an empty order book.
func (m *Manager) RegisterGood(good *domain.Good) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.goods.Register(good); err != nil {
		return err
	}
	m.board.Register(good, m.cfg.PriceRetention)
	m.books.GetOrCreate(good.ID)
	return nil
}

// CreateCompany opens a ledger account at the current tick.
func (m *Manager) CreateCompany(id, companyType string, startingCash int64, initialStocks map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.CreateCompany(id, companyType, startingCash, initialStocks, m.tick)
}

// SubmitBuyOrder places a buy limit order. The buyer's cash is checked
// against the full order value at submission but not reserved; the
// binding check happens at settlement.
func (m *Manager) SubmitBuyOrder(companyID, goodID string, quantity, maxPrice, expiresIn int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, err := m.submitLocked(OrderRequest{
		CompanyID: companyID,
		GoodID:    goodID,
		Side:      domain.OrderSideBuy,
		Price:     maxPrice,
		Quantity:  quantity,
		ExpiresIn: expiresIn,
	})
	return copyOrder(order), err
}

// SubmitSellOrder places a sell limit order, reserving the quantity
// from the seller's stock so it cannot be consumed or double-sold while
// the order rests.
func (m *Manager) SubmitSellOrder(companyID, goodID string, quantity, minPrice, expiresIn int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, err := m.submitLocked(OrderRequest{
		CompanyID: companyID,
		GoodID:    goodID,
		Side:      domain.OrderSideSell,
		Price:     minPrice,
		Quantity:  quantity,
		ExpiresIn: expiresIn,
	})
	return copyOrder(order), err
}

func (m *Manager) submitLocked(req OrderRequest) (*domain.Order, error) {
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.Price <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if !m.goods.Exists(req.GoodID) {
		return nil, domain.ErrGoodNotFound
	}
	inv, err := m.ledger.Get(req.CompanyID)
	if err != nil {
		return nil, err
	}

	switch req.Side {
	case domain.OrderSideBuy:
		if inv.Cash < domain.TotalValue(req.Price, req.Quantity) {
			return nil, domain.ErrInsufficientFunds
		}
	case domain.OrderSideSell:
		if err := m.ledger.ReserveForSale(req.CompanyID, req.GoodID, req.Quantity, m.tick); err != nil {
			return nil, err
		}
	default:
		return nil, &domain.ValidationError{Message: "side must be buy or sell"}
	}

	order := &domain.Order{
		OrderID:           uuid.New().String(),
		CompanyID:         req.CompanyID,
		GoodID:            req.GoodID,
		Side:              req.Side,
		Price:             req.Price,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		Status:            domain.OrderStatusOpen,
		CreatedTick:       m.tick,
	}
	if req.ExpiresIn > 0 {
		order.ExpiresTick = m.tick + req.ExpiresIn
	}
	m.orders.Create(order)
	m.books.GetOrCreate(order.GoodID).Insert(order)
	return order, nil
}

// CancelOrder cancels companyID's order and releases any sale
// reservation.
func (m *Manager) CancelOrder(orderID, companyID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, err := m.matcher.Cancel(orderID, companyID, m.tick)
	return copyOrder(order), err
}

// GetOrder returns a copy of the order taken under the tick lock. The
// live order stays private to the tick thread; readers only ever see a
// value frozen at lookup time.
func (m *Manager) GetOrder(orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, err := m.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	return copyOrder(order), nil
}

// ListOrders returns copies of a company's orders, newest first,
// optionally filtered by status.
func (m *Manager) ListOrders(companyID string, status *domain.OrderStatus, limit int) []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := m.orders.ListByCompany(companyID, status, limit)
	out := make([]*domain.Order, len(live))
	for i, o := range live {
		out[i] = copyOrder(o)
	}
	return out
}

func copyOrder(o *domain.Order) *domain.Order {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

// Run drives the tick loop until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	m.log.Info().
		Dur("tick_interval", m.cfg.TickInterval).
		Int("goods", len(m.goods.List())).
		Msg("economy manager running")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Int64("tick", m.CurrentTick()).Msg("economy manager stopping")
			return nil
		case <-ticker.C:
			m.Step()
		}
	}
}

// Step executes one full tick synchronously and returns its stats.
func (m *Manager) Step() TickStats {
	start := time.Now()
	m.mu.Lock()

	m.tick++
	tick := m.tick

	for _, src := range m.sources {
		for _, req := range src.Drain(tick) {
			if _, err := m.submitLocked(req); err != nil {
				m.log.Debug().Err(err).
					Str("company_id", req.CompanyID).
					Str("good_id", req.GoodID).
					Msg("sourced order rejected")
			}
		}
	}

	var signals map[string]SupplyDemand
	if m.demand != nil {
		signals = m.demand.Signals(tick)
	}

	goods := m.goods.List()
	expired := 0
	var tickTrades []*domain.Trade
	lastPrice := make(map[string]int64)
	for _, good := range goods {
		book := m.books.GetOrCreate(good.ID)
		expired += len(m.matcher.ExpireOrders(book, tick))
		trades := m.matchSafely(book, tick)
		for _, tr := range trades {
			lastPrice[tr.GoodID] = tr.Price
		}
		tickTrades = append(tickTrades, trades...)
	}

	tasks := make([]priceTask, 0, len(goods))
	for _, good := range goods {
		sd := signals[good.ID]
		tasks = append(tasks, priceTask{
			goodID:     good.ID,
			basePrice:  good.BasePrice,
			elasticity: good.Elasticity,
			supply:     sd.Supply,
			demand:     sd.Demand,
		})
	}
	equilibria := m.pool.computeEquilibria(tasks)

	trackers := m.board.All()
	for _, tracker := range trackers {
		last, traded := lastPrice[tracker.GoodID()]
		tracker.Apply(tick, equilibria[tracker.GoodID()], last, traded)
	}

	if m.cfg.HealthCheckInterval > 0 && tick%m.cfg.HealthCheckInterval == 0 {
		for _, tracker := range trackers {
			price, corrected := tracker.HealthCheck(tick,
				m.cfg.DeviationThreshold, m.cfg.AboveCorrection, m.cfg.BelowCorrection)
			if corrected {
				m.log.Warn().
					Str("good_id", tracker.GoodID()).
					Int64("price", price).
					Int64("tick", tick).
					Msg("mean-reversion correction applied")
			}
		}
	}

	stats := m.buildStatsLocked(tick, tickTrades, expired, trackers, start)
	prices := make([]engine.PriceSnapshot, 0, len(trackers))
	for _, tracker := range trackers {
		prices = append(prices, tracker.Snapshot())
	}
	changes := m.ledger.Journal().EventsAfter(m.journalCursor)
	if n := len(changes); n > 0 {
		m.journalCursor = changes[n-1].Seq
	}
	summary := &TickSummary{
		Tick:    tick,
		Trades:  tickTrades,
		Prices:  prices,
		Changes: changes,
		Stats:   stats,
	}
	m.snapshot.Store(m.buildSnapshotLocked(tick, goods, prices, stats))
	m.mu.Unlock()

	if stats.TradeCount > 0 {
		m.log.Info().Msg(stats.String())
	} else {
		m.log.Debug().Msg(stats.String())
	}
	if m.publisher != nil {
		m.publisher.Publish(summary)
	}
	return stats
}

// matchSafely confines a matching panic to one good for one tick.
func (m *Manager) matchSafely(book *engine.OrderBook, tick int64) (trades []*domain.Trade) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("panic", r).
				Str("good_id", book.GoodID()).
				Int64("tick", tick).
				Msg("matching panicked, skipping good this tick")
		}
	}()
	return m.matcher.MatchGood(book, tick)
}

func (m *Manager) buildStatsLocked(tick int64, trades []*domain.Trade, expired int, trackers []*engine.PriceTracker, start time.Time) TickStats {
	stats := TickStats{
		Tick:          tick,
		TradeCount:    len(trades),
		ExpiredOrders: expired,
	}
	for _, tr := range trades {
		stats.Volume += tr.Quantity
		stats.Turnover += tr.TotalValue
	}
	if len(trackers) > 0 {
		var sum float64
		for _, tracker := range trackers {
			sum += tracker.Volatility()
		}
		stats.AvgVolatility = sum / float64(len(trackers))
	}
	stats.Duration = time.Since(start)
	return stats
}

func (m *Manager) buildSnapshotLocked(tick int64, goods []*domain.Good, prices []engine.PriceSnapshot, stats TickStats) *MarketSnapshot {
	depth := make(map[string]DepthSnapshot, len(goods))
	for _, good := range goods {
		book := m.books.GetOrCreate(good.ID)
		depth[good.ID] = DepthSnapshot{
			GoodID: good.ID,
			Bids:   book.TopBids(m.cfg.DepthLevels),
			Asks:   book.TopAsks(m.cfg.DepthLevels),
		}
	}
	return &MarketSnapshot{
		Tick:   tick,
		Prices: prices,
		Depth:  depth,
		Stats:  stats,
	}
}

// CurrentTick returns the last completed tick number.
func (m *Manager) CurrentTick() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick
}

// Snapshot returns the immutable view of the market as of the last
// completed tick.
func (m *Manager) Snapshot() *MarketSnapshot {
	return m.snapshot.Load()
}

// Inventory values a company's holdings at current market prices.
func (m *Manager) Inventory(companyID string) (*ledger.InventorySnapshot, error) {
	return m.ledger.Snapshot(companyID, m.board.CurrentPrice)
}
