/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All engine-level errors in one place. Upper layers (payroll, api) wrap
  these with employee/period context and map them to HTTP statuses.
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyRateTable is returned when a tax/grade/commission table has
	// no entries. A tenant must always have an active config version.
	ErrEmptyRateTable = errors.New("rate table has no entries")

	// ErrUnorderedBrackets is returned when table bounds are not strictly
	// ascending, or an unbounded bracket is not last.
	ErrUnorderedBrackets = errors.New("rate table brackets out of order")

	// ErrUnboundedBracketMissing is returned when the final tax bracket has
	// an upper bound, which would leave top income untaxed.
	ErrUnboundedBracketMissing = errors.New("final tax bracket must be unbounded")

	// ErrZeroWorkdays is returned when proration is attempted against a
	// contract with zero standard workdays.
	ErrZeroWorkdays = errors.New("contract has zero standard workdays")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ProrationError carries the timesheet figures that failed validation.
type ProrationError struct {
	StandardDays decimal.Decimal
	PaidDays     decimal.Decimal
}

func (e *ProrationError) Error() string {
	return fmt.Sprintf("invalid proration: %s paid days against %s standard days",
		e.PaidDays, e.StandardDays)
}

func (e *ProrationError) Unwrap() error { return ErrZeroWorkdays }

// IsConfigError reports whether the error is a tenant configuration problem
// (bad rate table) rather than bad per-employee input.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrEmptyRateTable) ||
		errors.Is(err, ErrUnorderedBrackets) ||
		errors.Is(err, ErrUnboundedBracketMissing)
}
