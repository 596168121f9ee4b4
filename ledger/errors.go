/*
errors.go - Centralized error types for the points ledger

PURPOSE:
  All error types in one place. The taxonomy mirrors how errors surface
  over HTTP:
  1. Validation errors - bad input, rejected before the store is touched
  2. Insufficient balance - an expected business outcome, not a fault
  3. Storage errors - store failures, wrapped with %w by implementations

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, ledger.ErrInsufficientBalance) { ... 400 ... }
    var verr *ledger.ValidationError
    if errors.As(err, &verr) { ... 400 naming verr.Field ... }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a spend request exceeds the
	// total points available across all grants. No mutation occurs.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrGrantNotFound is returned when a targeted update names a grant
	// the store does not have.
	ErrGrantNotFound = errors.New("grant not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a missing or malformed input field. It is
// raised before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientBalanceError carries the shortfall details of a rejected
// spend. It unwraps to ErrInsufficientBalance.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, shortfall %s",
		e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Shortfall is how many points the request was short by.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client
// input or an expected business rejection, as opposed to a fault.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrInsufficientBalance) || errors.As(err, &verr)
}
