package domain

import "time"

// GoodsStock tracks a company's position in a single good as a three-way
// split: freely available units, units reserved by resting sell orders,
// and units reserved as production inputs. All three are non-negative at
// all times.
type GoodsStock struct {
	Quantity              int64
	ReservedForSale       int64
	ReservedForProduction int64
	AvgCost               float64 // quantity-weighted average acquisition cost
	LastUpdateTick        int64
}

// TotalHeld returns the total units held across all three buckets.
func (s *GoodsStock) TotalHeld() int64 {
	return s.Quantity + s.ReservedForSale + s.ReservedForProduction
}

// CompanyInventory holds a company's cash and per-good stock positions.
// One is created per company at registration and never destroyed during
// a session. Cash is in minor currency units and may go negative only
// through AddCash with a negative delta from calling code that permits
// it; the ledger's own debit operations reject negative results.
type CompanyInventory struct {
	CompanyID   string
	CompanyType string
	Cash        int64
	Stocks      map[string]*GoodsStock // good ID → stock
	CreatedAt   time.Time
}

// Stock returns the company's stock entry for a good, creating an empty
// one if the company has never held it.
func (c *CompanyInventory) Stock(goodID string) *GoodsStock {
	s, ok := c.Stocks[goodID]
	if !ok {
		s = &GoodsStock{}
		c.Stocks[goodID] = s
	}
	return s
}

// AvailableQuantity returns the unreserved quantity for the given good,
// or 0 if the company has no stock in that good.
func (c *CompanyInventory) AvailableQuantity(goodID string) int64 {
	s, ok := c.Stocks[goodID]
	if !ok {
		return 0
	}
	return s.Quantity
}
