package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrCompanyAlreadyExists    = errors.New("company_already_exists")
	ErrGoodAlreadyExists       = errors.New("good_already_exists")
	ErrCompanyNotFound         = errors.New("company_not_found")
	ErrGoodNotFound            = errors.New("good_not_found")
	ErrOrderNotFound           = errors.New("order_not_found")
	ErrOrderNotCancellable     = errors.New("order_not_cancellable")
	ErrInsufficientFunds       = errors.New("insufficient_funds")
	ErrInsufficientStock       = errors.New("insufficient_stock")
	ErrInsufficientReservation = errors.New("insufficient_reservation")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidPrice            = errors.New("invalid_price")
	ErrUnauthorized            = errors.New("unauthorized")

	// ErrMatchCommitFailure indicates a matched trade could not be applied
	// to the ledger. It points at a reservation bug, never at a routine
	// business failure, and is logged at error level wherever it surfaces.
	ErrMatchCommitFailure = errors.New("match_commit_failure")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
