/*
tax.go - Progressive personal income tax

PURPOSE:
  Computes personal income tax from a bracket table using marginal rates:
  each slice of taxable income is taxed at its own bracket's rate, the way
  statutory PIT schedules work.

TAXABLE INCOME:
  The engine does not decide what is taxable - callers derive the taxable
  base (gross minus employee insurance, personal deduction, dependent
  deductions, non-taxable allowances) and hand it in. A negative base must
  be floored to zero before calling Compute.

BRACKET TABLE SHAPE:
  Brackets are ordered by UpTo ascending. UpTo is the inclusive upper bound
  of the slice; the final bracket has UpTo == nil (unbounded). Bands are
  contiguous: each bracket's slice starts where the previous one ended.

EXAMPLE:
  table := TaxTable{Brackets: []TaxBracket{
      {UpTo: money(5_000_000),  Rate: RateFromPercent(5)},
      {UpTo: money(10_000_000), Rate: RateFromPercent(10)},
      {UpTo: nil,               Rate: RateFromPercent(15)},
  }}
  tax, _ := table.Compute(money(12_000_000))
  // 5m*5% + 5m*10% + 2m*15% = 1,050,000
*/
package engine

// =============================================================================
// TAX TABLE
// =============================================================================

// TaxBracket is one marginal band. UpTo is the inclusive upper bound of the
// band; nil means unbounded (must be the last bracket).
type TaxBracket struct {
	UpTo *Money
	Rate Rate
}

// TaxTable is a progressive tax schedule plus the standard deductions that
// shrink the taxable base before the schedule applies.
type TaxTable struct {
	// Deducted from gross for every taxpayer.
	PersonalDeduction Money

	// Deducted per registered dependent.
	DependentDeduction Money

	Brackets []TaxBracket
}

// Validate checks the structural invariants: at least one bracket, bounds
// strictly ascending, only the last bracket unbounded.
func (t TaxTable) Validate() error {
	if len(t.Brackets) == 0 {
		return ErrEmptyRateTable
	}
	var prev *Money
	for i, b := range t.Brackets {
		last := i == len(t.Brackets)-1
		if b.UpTo == nil {
			if !last {
				return ErrUnorderedBrackets
			}
			continue
		}
		if last {
			// Bounded final bracket: income above it would be untaxed.
			return ErrUnboundedBracketMissing
		}
		if prev != nil && !b.UpTo.GreaterThan(*prev) {
			return ErrUnorderedBrackets
		}
		upTo := *b.UpTo
		prev = &upTo
	}
	return nil
}

// TaxableBase derives the taxable income for the schedule:
// gross minus employee insurance, non-taxable income, the personal
// deduction and per-dependent deductions, floored at zero.
func (t TaxTable) TaxableBase(gross, employeeInsurance, nonTaxable Money, dependents int) Money {
	base := gross.Sub(employeeInsurance).Sub(nonTaxable).Sub(t.PersonalDeduction)
	for i := 0; i < dependents; i++ {
		base = base.Sub(t.DependentDeduction)
	}
	return base.FloorZero()
}

// Compute applies the marginal schedule to a taxable base.
func (t TaxTable) Compute(taxable Money) (Money, error) {
	if err := t.Validate(); err != nil {
		return Zero(), err
	}
	if !taxable.IsPositive() {
		return Zero(), nil
	}

	tax := Zero()
	lower := Zero()
	for _, b := range t.Brackets {
		var slice Money
		if b.UpTo == nil {
			slice = taxable.Sub(lower)
		} else {
			upper := taxable.Min(*b.UpTo)
			slice = upper.Sub(lower)
		}
		if slice.IsPositive() {
			tax = tax.Add(b.Rate.ApplyTo(slice))
		}
		if b.UpTo == nil || !taxable.GreaterThan(*b.UpTo) {
			break
		}
		lower = *b.UpTo
	}
	return tax.Round(), nil
}

// MarginalRate returns the rate of the band the taxable base falls into.
// Useful for slip display ("taxed at up to 15%").
func (t TaxTable) MarginalRate(taxable Money) Rate {
	if !taxable.IsPositive() {
		return Rate{}
	}
	for _, b := range t.Brackets {
		if b.UpTo == nil || !taxable.GreaterThan(*b.UpTo) {
			return b.Rate
		}
	}
	return Rate{}
}
