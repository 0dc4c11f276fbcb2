package engine

import (
	"sync"

	"github.com/google/btree"

	"github.com/avelis/commodex/internal/domain"
)

// BookEntry represents a single order resting on the book.
type BookEntry struct {
	Price       int64
	CreatedTick int64
	Seq         uint64 // per-book insertion counter, breaks same-tick ties
	OrderID     string
	Order       *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"total_quantity"`
	OrderCount    int   `json:"order_count"`
}

// bidLess defines ordering for the bid side: price descending, then
// created tick ascending, then insertion sequence ascending. Min()
// returns the best bid (highest price, earliest submission).
func bidLess(a, b BookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.CreatedTick != b.CreatedTick {
		return a.CreatedTick < b.CreatedTick
	}
	return a.Seq < b.Seq
}

// askLess defines ordering for the ask side: price ascending, then the
// same time tie-break. Min() returns the best ask (lowest price,
// earliest submission).
func askLess(a, b BookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.CreatedTick != b.CreatedTick {
		return a.CreatedTick < b.CreatedTick
	}
	return a.Seq < b.Seq
}

// OrderBook maintains the buy and sell sides for a single good using
// B-trees with a secondary index for removal by order ID. Price-time
// priority falls out of the tree ordering.
type OrderBook struct {
	goodID string
	mu     sync.RWMutex
	seq    uint64
	bids   *btree.BTreeG[BookEntry]
	asks   *btree.BTreeG[BookEntry]
	index  map[string]BookEntry // order ID → entry
}

// NewOrderBook creates an order book for the given good.
func NewOrderBook(goodID string) *OrderBook {
	const degree = 32
	return &OrderBook{
		goodID: goodID,
		bids:   btree.NewG[BookEntry](degree, bidLess),
		asks:   btree.NewG[BookEntry](degree, askLess),
		index:  make(map[string]BookEntry),
	}
}

// GoodID returns the good this book trades.
func (ob *OrderBook) GoodID() string {
	return ob.goodID
}

// Insert adds an order to the side matching its Side field. The book
// assigns the insertion sequence number.
func (ob *OrderBook) Insert(o *domain.Order) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.seq++
	entry := BookEntry{
		Price:       o.Price,
		CreatedTick: o.CreatedTick,
		Seq:         ob.seq,
		OrderID:     o.OrderID,
		Order:       o,
	}
	if o.Side == domain.OrderSideBuy {
		ob.bids.ReplaceOrInsert(entry)
	} else {
		ob.asks.ReplaceOrInsert(entry)
	}
	ob.index[entry.OrderID] = entry
}

// Remove deletes an order from the book by order ID. It tries both
// sides since Delete is a no-op when the entry isn't found.
func (ob *OrderBook) Remove(orderID string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	entry, ok := ob.index[orderID]
	if !ok {
		return
	}
	delete(ob.index, orderID)
	ob.bids.Delete(entry)
	ob.asks.Delete(entry)
}

// Contains reports whether the order is resting on the book.
func (ob *OrderBook) Contains(orderID string) bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	_, ok := ob.index[orderID]
	return ok
}

// BestBid returns the highest-priority buy entry.
func (ob *OrderBook) BestBid() (BookEntry, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.Min()
}

// BestAsk returns the highest-priority sell entry.
func (ob *OrderBook) BestAsk() (BookEntry, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.asks.Min()
}

// BidEntries returns a snapshot of the buy side in priority order.
func (ob *OrderBook) BidEntries() []BookEntry {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return collect(ob.bids)
}

// AskEntries returns a snapshot of the sell side in priority order.
func (ob *OrderBook) AskEntries() []BookEntry {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return collect(ob.asks)
}

func collect(tree *btree.BTreeG[BookEntry]) []BookEntry {
	out := make([]BookEntry, 0, tree.Len())
	tree.Ascend(func(entry BookEntry) bool {
		out = append(out, entry)
		return true
	})
	return out
}

// TopBids returns up to n aggregated price levels from the buy side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated price levels from the sell side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return topLevels(ob.asks, n)
}

// topLevels iterates the B-tree in order and aggregates entries into at
// most n price levels with cumulative remaining quantity.
func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.Price {
			levels[len(levels)-1].TotalQuantity += entry.Order.RemainingQuantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Order.RemainingQuantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// CollectExpired returns the resting orders whose ExpiresTick has passed
// as of tick. Removal is the caller's job, so reservation release and
// status transitions stay in one place.
func (ob *OrderBook) CollectExpired(tick int64) []*domain.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var out []*domain.Order
	for _, entry := range ob.index {
		o := entry.Order
		if o.ExpiresTick > 0 && o.ExpiresTick <= tick {
			out = append(out, o)
		}
	}
	return out
}

// BidCount returns the number of individual buy orders on the book.
func (ob *OrderBook) BidCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.Len()
}

// AskCount returns the number of individual sell orders on the book.
func (ob *OrderBook) AskCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.asks.Len()
}

// Books is a thread-safe map of good ID → OrderBook.
type Books struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBooks creates an empty Books registry.
func NewBooks() *Books {
	return &Books{
		books: make(map[string]*OrderBook),
	}
}

// GetOrCreate returns the order book for the given good, creating one
// if it doesn't already exist.
func (b *Books) GetOrCreate(goodID string) *OrderBook {
	b.mu.RLock()
	book, ok := b.books[goodID]
	b.mu.RUnlock()
	if ok {
		return book
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = b.books[goodID]; ok {
		return book
	}
	book = NewOrderBook(goodID)
	b.books[goodID] = book
	return book
}

// All returns every order book currently registered.
func (b *Books) All() []*OrderBook {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*OrderBook, 0, len(b.books))
	for _, book := range b.books {
		out = append(out, book)
	}
	return out
}
