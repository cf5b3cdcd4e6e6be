/*
slip.go - The computed payroll result for one employee, one month

PURPOSE:
  A Slip is the per-employee-per-month record payroll produces: ordered
  line items, the derived totals, and the snapshot of everything the
  calculation read. Slips are replaced wholesale on recomputation (one row
  per employee per month, enforced by the store) until the period
  finalizes, after which they are immutable.

LINE ITEMS:
  Each line carries a component code, a human label, a kind and a rounded
  amount. Earnings and deductions are what the employee sees; employer
  lines exist for cost reporting and never touch net pay.
*/
package payroll

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// =============================================================================
// COMPONENT CODES
// =============================================================================

type ComponentKind string

const (
	KindEarning   ComponentKind = "earning"
	KindDeduction ComponentKind = "deduction"
	KindEmployer  ComponentKind = "employer" // employer-side cost, not in net
)

// Component codes used by the calculator. Stable across config versions;
// labels may vary.
const (
	CompBaseSalary    = "base_salary"
	CompOvertime      = "overtime"
	CompAllowance     = "allowance"
	CompKPIBonus      = "kpi_bonus"
	CompCommission    = "commission"
	CompInsuranceEmp  = "insurance_employee"
	CompIncomeTax     = "income_tax"
	CompPenalty       = "penalty"
	CompAdvance       = "advance"
	CompTravelExpense = "travel_expense"
	CompInsuranceCo   = "insurance_employer"
)

// LineItem is one printed row of the slip.
type LineItem struct {
	Code   string        `json:"code"`
	Label  string        `json:"label"`
	Kind   ComponentKind `json:"kind"`
	Amount engine.Money  `json:"amount"`
}

// =============================================================================
// SLIP
// =============================================================================

type SlipStatus string

const (
	SlipComputed  SlipStatus = "computed"
	SlipFinalized SlipStatus = "finalized"
)

type Slip struct {
	ID         string
	CompanyID  hrm.CompanyID
	EmployeeID hrm.EmployeeID
	Month      engine.Month
	Status     SlipStatus

	Lines []LineItem

	// Derived totals, all rounded.
	Gross             engine.Money
	TaxableIncome     engine.Money
	IncomeTax         engine.Money
	EmployeeInsurance engine.Money
	Deductions        engine.Money // insurance + tax + penalties + advances
	Net               engine.Money
	EmployerCost      engine.Money // gross + employer insurance

	KPIGrade string

	// Snapshot is the serialized Snapshot the slip was computed from.
	SnapshotJSON string

	ComputedAt time.Time
}

// EarningsTotal sums earning lines. Equals Gross plus travel
// reimbursements, which are paid out but excluded from gross.
func (s Slip) EarningsTotal() engine.Money {
	total := engine.Zero()
	for _, l := range s.Lines {
		if l.Kind == KindEarning {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// DeductionsTotal sums deduction lines.
func (s Slip) DeductionsTotal() engine.Money {
	total := engine.Zero()
	for _, l := range s.Lines {
		if l.Kind == KindDeduction {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// Line returns the first line with the given code, if any.
func (s Slip) Line(code string) (LineItem, bool) {
	for _, l := range s.Lines {
		if l.Code == code {
			return l, true
		}
	}
	return LineItem{}, false
}

// =============================================================================
// STORE
// =============================================================================

type SlipStore interface {
	// SaveSlip upserts; one row per employee per month.
	SaveSlip(ctx context.Context, s Slip) error
	GetSlip(ctx context.Context, companyID hrm.CompanyID, id string) (*Slip, error)
	GetSlipByEmployee(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*Slip, error)
	ListSlips(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]Slip, error)

	// MarkSlipsFinalized flips every slip of the month to finalized.
	MarkSlipsFinalized(ctx context.Context, companyID hrm.CompanyID, month engine.Month) error
}
