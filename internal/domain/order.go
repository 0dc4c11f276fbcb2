package domain

// OrderSide indicates whether an order buys or sells a good.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents the lifecycle state of an order.
// Transitions are monotonic: open → partial → filled, or any
// non-terminal state → cancelled/expired. Terminal orders never
// mutate again.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Order represents a buy or sell instruction submitted by a company.
// Prices are in minor currency units per unit of the good.
type Order struct {
	OrderID           string
	CompanyID         string
	GoodID            string
	Side              OrderSide
	Price             int64
	Quantity          int64
	RemainingQuantity int64
	Status            OrderStatus
	CreatedTick       int64
	ExpiresTick       int64 // 0 means the order never expires

	// FlaggedForReview is set when a matched fill could not be applied
	// to the ledger. Flagged orders are pulled from the book and left
	// for operator inspection instead of desynchronizing quantities.
	FlaggedForReview bool
}

// FilledQuantity returns how many units have been executed so far.
func (o *Order) FilledQuantity() int64 {
	return o.Quantity - o.RemainingQuantity
}

// IsTerminal reports whether the order has reached a final state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// Cancellable reports whether the order may still be cancelled.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartial
}
