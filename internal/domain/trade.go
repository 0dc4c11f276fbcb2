package domain

// Trade represents a matched execution between a buy and a sell order.
// Trades are immutable once created and retained in a bounded,
// append-only history.
type Trade struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	BuyerID     string
	SellerID    string
	GoodID      string
	Price       int64
	Quantity    int64
	TotalValue  int64 // Price × Quantity
	Tick        int64
}
