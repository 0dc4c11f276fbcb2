package domain

import "math"

// TotalValue multiplies a per-unit price by a quantity, saturating at
// math.MaxInt64 instead of wrapping. Order quantities and prices are
// validated as positive before they reach arithmetic, so saturation only
// guards against pathological inputs.
func TotalValue(price, quantity int64) int64 {
	if price == 0 || quantity == 0 {
		return 0
	}
	if price > math.MaxInt64/quantity {
		return math.MaxInt64
	}
	return price * quantity
}

// CentsToDollars converts a minor-currency-unit value to a float64 major
// unit amount for display fields.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100.0
}
