/*
grade.go - KPI grade tiers

PURPOSE:
  Maps a monthly KPI assessment score (0-100) to a grade and a bonus
  multiplier. The multiplier scales the contract's KPI bonus base:

      kpi bonus = bonus base * multiplier(score)

TIER SHAPE:
  Tiers are ordered by MinScore ascending; a score selects the highest tier
  whose MinScore it reaches. A score below the lowest tier earns no grade
  and a zero multiplier - an unassessed or failing month pays no KPI bonus.
*/
package engine

import "github.com/shopspring/decimal"

// GradeTier is one band of the grade table.
type GradeTier struct {
	Grade      string // e.g. "A", "B", "C"
	MinScore   decimal.Decimal
	Multiplier decimal.Decimal // e.g. 1.2 for 120% of bonus base
}

// GradeTable maps scores to grades for one tenant config version.
type GradeTable struct {
	Tiers []GradeTier
}

// Validate checks tiers exist and MinScore is strictly ascending.
func (g GradeTable) Validate() error {
	if len(g.Tiers) == 0 {
		return ErrEmptyRateTable
	}
	for i := 1; i < len(g.Tiers); i++ {
		if !g.Tiers[i].MinScore.GreaterThan(g.Tiers[i-1].MinScore) {
			return ErrUnorderedBrackets
		}
	}
	return nil
}

// Lookup returns the grade and multiplier for a score. A score below every
// tier returns ("", 0).
func (g GradeTable) Lookup(score decimal.Decimal) (string, decimal.Decimal) {
	grade := ""
	mult := decimal.Zero
	for _, tier := range g.Tiers {
		if score.GreaterThanOrEqual(tier.MinScore) {
			grade = tier.Grade
			mult = tier.Multiplier
		}
	}
	return grade, mult
}

// Bonus computes the KPI bonus for a score against a bonus base.
func (g GradeTable) Bonus(bonusBase Money, score decimal.Decimal) (string, Money) {
	grade, mult := g.Lookup(score)
	if mult.IsZero() {
		return grade, Zero()
	}
	return grade, bonusBase.Mul(mult).Round()
}
