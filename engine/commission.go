/*
commission.go - Tiered sales commission

PURPOSE:
  Computes the monthly sales commission from revenue tiers. Unlike the tax
  schedule, commission is flat-per-tier: the highest tier the revenue
  reaches sets a single rate that applies to the WHOLE revenue. Reaching a
  new tier re-prices everything, which is how sales comp plans usually
  reward crossing a threshold.

EXAMPLE:
  table := CommissionTable{Tiers: []CommissionTier{
      {MinRevenue: money(0),           Rate: RateFromPercent(1)},
      {MinRevenue: money(100_000_000), Rate: RateFromPercent(2)},
      {MinRevenue: money(500_000_000), Rate: RateFromPercent(3)},
  }}
  table.Compute(money(120_000_000)) // 120m * 2% = 2,400,000
*/
package engine

// CommissionTier is one revenue threshold.
type CommissionTier struct {
	MinRevenue Money
	Rate       Rate
}

// CommissionTable maps monthly revenue to a commission rate.
type CommissionTable struct {
	Tiers []CommissionTier
}

// Validate checks tiers exist and MinRevenue is strictly ascending.
func (c CommissionTable) Validate() error {
	if len(c.Tiers) == 0 {
		return ErrEmptyRateTable
	}
	for i := 1; i < len(c.Tiers); i++ {
		if !c.Tiers[i].MinRevenue.GreaterThan(c.Tiers[i-1].MinRevenue) {
			return ErrUnorderedBrackets
		}
	}
	return nil
}

// RateFor returns the rate of the highest tier the revenue reaches.
// Revenue below the lowest tier earns nothing.
func (c CommissionTable) RateFor(revenue Money) Rate {
	var rate Rate
	for _, tier := range c.Tiers {
		if revenue.GreaterThan(tier.MinRevenue) || revenue.Value.Equal(tier.MinRevenue.Value) {
			rate = tier.Rate
		}
	}
	return rate
}

// Compute returns the commission for a month's revenue.
func (c CommissionTable) Compute(revenue Money) Money {
	if !revenue.IsPositive() {
		return Zero()
	}
	rate := c.RateFor(revenue)
	if rate.IsZero() {
		return Zero()
	}
	return rate.ApplyTo(revenue).Round()
}
