/*
adjustment.go - One-off payroll inputs

PURPOSE:
  Adjustments are the per-employee, per-month inputs that don't come from
  the contract: one-off allowances, penalties, salary advances and travel
  expense claims. Revenue is the sales figure feeding commission.

SIGN CONVENTION:
  Amounts are stored positive; the Kind decides which side of the slip the
  amount lands on. Allowances add to gross, penalties and advances deduct
  from net, travel expenses reimburse into net outside the taxable base.
*/
package payroll

import (
	"context"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// =============================================================================
// ADJUSTMENT
// =============================================================================

type AdjustmentKind string

const (
	AdjustAllowance     AdjustmentKind = "allowance"      // one-off earning
	AdjustPenalty       AdjustmentKind = "penalty"        // net deduction
	AdjustAdvance       AdjustmentKind = "advance"        // salary advance repayment
	AdjustTravelExpense AdjustmentKind = "travel_expense" // non-taxable reimbursement
)

type Adjustment struct {
	ID         string
	CompanyID  hrm.CompanyID
	EmployeeID hrm.EmployeeID
	Month      engine.Month
	Kind       AdjustmentKind

	Amount engine.Money // always positive
	Reason string

	// Only meaningful for allowances; penalties/advances/expenses never
	// enter the taxable base.
	Taxable bool

	CreatedBy string
	CreatedAt engine.TimePoint
}

// SumByKind splits a month's adjustments into calculator buckets.
type AdjustmentSums struct {
	TaxableAllowances    engine.Money
	NonTaxableAllowances engine.Money
	Penalties            engine.Money
	Advances             engine.Money
	TravelExpenses       engine.Money
}

func SumAdjustments(adjs []Adjustment) AdjustmentSums {
	sums := AdjustmentSums{
		TaxableAllowances:    engine.Zero(),
		NonTaxableAllowances: engine.Zero(),
		Penalties:            engine.Zero(),
		Advances:             engine.Zero(),
		TravelExpenses:       engine.Zero(),
	}
	for _, a := range adjs {
		switch a.Kind {
		case AdjustAllowance:
			if a.Taxable {
				sums.TaxableAllowances = sums.TaxableAllowances.Add(a.Amount)
			} else {
				sums.NonTaxableAllowances = sums.NonTaxableAllowances.Add(a.Amount)
			}
		case AdjustPenalty:
			sums.Penalties = sums.Penalties.Add(a.Amount)
		case AdjustAdvance:
			sums.Advances = sums.Advances.Add(a.Amount)
		case AdjustTravelExpense:
			sums.TravelExpenses = sums.TravelExpenses.Add(a.Amount)
		}
	}
	return sums
}

type AdjustmentStore interface {
	SaveAdjustment(ctx context.Context, a Adjustment) error
	ListAdjustments(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) ([]Adjustment, error)
	DeleteAdjustment(ctx context.Context, companyID hrm.CompanyID, id string) error
}

// =============================================================================
// REVENUE - Sales figure feeding commission
// =============================================================================

type Revenue struct {
	ID         string
	CompanyID  hrm.CompanyID
	EmployeeID hrm.EmployeeID
	Month      engine.Month
	Amount     engine.Money
	Source     string // e.g. "crm-import", "manual"
	UpdatedAt  engine.TimePoint
}

type RevenueStore interface {
	// SaveRevenue upserts; one row per employee per month.
	SaveRevenue(ctx context.Context, r Revenue) error
	GetRevenue(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*Revenue, error)
}
