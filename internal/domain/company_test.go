package domain

import (
	"testing"
	"time"
)

func TestGoodsStock_TotalHeld(t *testing.T) {
	s := &GoodsStock{Quantity: 10, ReservedForSale: 5, ReservedForProduction: 2}
	if got := s.TotalHeld(); got != 17 {
		t.Errorf("TotalHeld() = %d, want 17", got)
	}
}

func TestCompanyInventory_Stock_CreatesEntry(t *testing.T) {
	c := &CompanyInventory{
		CompanyID: "c1",
		Stocks:    make(map[string]*GoodsStock),
		CreatedAt: time.Now(),
	}

	s := c.Stock("grain")
	if s == nil {
		t.Fatal("Stock(grain) returned nil")
	}
	if s.TotalHeld() != 0 {
		t.Errorf("new stock TotalHeld() = %d, want 0", s.TotalHeld())
	}

	// Same pointer on second lookup.
	s.Quantity = 4
	if c.Stock("grain").Quantity != 4 {
		t.Error("Stock(grain) did not return the same entry")
	}
}

func TestCompanyInventory_AvailableQuantity(t *testing.T) {
	c := &CompanyInventory{
		Stocks: map[string]*GoodsStock{
			"grain": {Quantity: 500, ReservedForSale: 200},
			"iron":  {Quantity: 100},
		},
	}

	if got := c.AvailableQuantity("grain"); got != 500 {
		t.Errorf("AvailableQuantity(grain) = %d, want 500", got)
	}
	if got := c.AvailableQuantity("iron"); got != 100 {
		t.Errorf("AvailableQuantity(iron) = %d, want 100", got)
	}
	if got := c.AvailableQuantity("wool"); got != 0 {
		t.Errorf("AvailableQuantity(wool) = %d, want 0", got)
	}
}
