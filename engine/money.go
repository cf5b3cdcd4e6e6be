/*
Package engine provides the payroll calculation primitives.

PURPOSE:
  This package contains the pure, deterministic arithmetic that payroll
  computation is built from: money values, progressive tax tables, capped
  insurance contributions, KPI grade tiers, and tiered sales commission.
  Nothing in this package performs I/O; everything is a function of its
  inputs, which is what makes payroll slips reproducible from snapshots.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A currency amount backed by decimal.Decimal
  - Rate: A fractional rate (e.g. 0.08 for an 8% contribution)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 arithmetic
  2. Rounding at the edges: intermediate math is exact; amounts are
     rounded to currency precision only when a line item is emitted
  3. Determinism: same inputs, same slip, forever

SEE ALSO:
  - tax.go: Progressive tax brackets
  - insurance.go: Contribution schemes
  - grade.go: KPI grade tiers
  - commission.go: Sales commission tiers
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

// Money is a currency amount. The currency itself is a tenant-level concern;
// the engine only guarantees decimal arithmetic and consistent rounding.
type Money struct {
	Value decimal.Decimal
}

// CurrencyPrecision is the number of decimal places kept on emitted amounts.
const CurrencyPrecision = 2

func NewMoney(value float64) Money          { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money     { return Money{Value: decimal.NewFromInt(value)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

// ParseMoney parses a decimal string. Invalid input yields zero, matching
// how amounts hydrated from storage are treated.
func ParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                 { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool      { return m.Value.LessThan(o.Value) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Round returns the amount rounded half-up to currency precision.
// Call this when emitting a line item, not during intermediate math.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(CurrencyPrecision)}
}

// FloorZero clamps negative amounts to zero. Taxable income and similar
// derived bases must never go below zero.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return Zero()
	}
	return m
}

func (m Money) String() string { return m.Value.StringFixed(CurrencyPrecision) }

// MarshalJSON writes the amount as a decimal string, so snapshots stay
// exact across round-trips.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Value.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Value = d
	return nil
}

// Float64 is for DTO serialization only; never feed the result back into
// a calculation.
func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// =============================================================================
// RATE - Fractional rate
// =============================================================================

// Rate is a fraction such as a contribution or commission rate.
type Rate struct {
	Value decimal.Decimal
}

func NewRate(value float64) Rate { return Rate{Value: decimal.NewFromFloat(value)} }

// RateFromPercent converts 8.5 to 0.085.
func RateFromPercent(pct float64) Rate {
	return Rate{Value: decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100))}
}

func (r Rate) ApplyTo(m Money) Money { return m.Mul(r.Value) }
func (r Rate) IsZero() bool          { return r.Value.IsZero() }

func (r Rate) String() string { return r.Value.String() }
