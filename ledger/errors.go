/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All ledger error types in one place for consistency and discoverability.
  Consumers (coordinator, scan source, API) match with errors.Is and wrap
  with their own context.

ERROR CATEGORIES:
  1. Validation errors - bad input (non-positive amounts)
  2. Balance errors    - the no-overdraft invariant
  3. Flow errors       - duplicate in-flight submissions

SEE ALSO:
  - engine.go: Produces these errors
  - redeem/: Maps them to user-facing outcomes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an earn or redeem amount is not
	// strictly positive. Recovered locally, never fatal.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a redemption exceeds the
	// available balance. The ledger performs no mutation in that case.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRedemptionInFlight is returned when a redemption for the same
	// submission is already being applied. Prevents double-charging from
	// duplicate submissions.
	ErrRedemptionInFlight = errors.New("redemption already in flight")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Available Points
	Requested Points
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrRedemptionInFlight)
}
