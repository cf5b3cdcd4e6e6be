/*
contract.go - Employment contracts

PURPOSE:
  The contract is the pay agreement payroll computes from: base salary,
  insurance salary, KPI bonus base, commission eligibility, standard
  monthly workdays and recurring allowance lines.

EFFECTIVE DATING:
  Contracts are effective-dated and never edited in place once a slip has
  been computed from them - a raise is a NEW contract row effective from
  the new month. ActiveAt picks the governing contract for a month: the
  latest contract effective on or before month end that has not expired
  before month start.
*/
package hrm

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// CONTRACT
// =============================================================================

type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractTerminated ContractStatus = "terminated"
)

type Contract struct {
	ID         string
	CompanyID  CompanyID
	EmployeeID EmployeeID
	Status     ContractStatus

	// Monthly base salary for full attendance.
	BaseSalary engine.Money

	// Base used for statutory insurance contributions. Often lower than
	// BaseSalary; the scheme cap is applied on top.
	InsuranceSalary engine.Money

	// Base the KPI grade multiplier applies to. Zero = no KPI bonus.
	KPIBonusBase engine.Money

	// Whether sales commission applies to this employee.
	CommissionEligible bool

	// Expected workdays per month; proration denominator.
	StandardWorkdays decimal.Decimal

	// Overtime premium, e.g. 1.5 for 150% of hourly rate.
	OvertimeMultiplier decimal.Decimal

	// Hours per workday, for the hourly-rate derivation. Usually 8.
	HoursPerDay decimal.Decimal

	// Recurring monthly allowances (lunch, phone, housing...).
	Allowances []ContractAllowance

	EffectiveFrom engine.Month
	EffectiveTo   *engine.Month // nil = open-ended
}

// ContractAllowance is a recurring monthly allowance line.
type ContractAllowance struct {
	Code    string // e.g. "lunch", "phone"
	Label   string
	Amount  engine.Money
	Taxable bool
}

// ActiveIn reports whether the contract governs the given month.
func (c Contract) ActiveIn(month engine.Month) bool {
	if c.Status == ContractTerminated && c.EffectiveTo == nil {
		return false
	}
	if month.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && month.After(*c.EffectiveTo) {
		return false
	}
	return true
}

// HourlyRate derives the hourly rate from base salary, standard workdays
// and hours per day. Returns zero when the contract is degenerate.
func (c Contract) HourlyRate() engine.Money {
	if c.StandardWorkdays.IsZero() || c.HoursPerDay.IsZero() {
		return engine.Zero()
	}
	return c.BaseSalary.Div(c.StandardWorkdays).Div(c.HoursPerDay)
}

// TotalAllowances sums the recurring allowance lines, split by taxability.
func (c Contract) TotalAllowances() (taxable, nonTaxable engine.Money) {
	taxable, nonTaxable = engine.Zero(), engine.Zero()
	for _, a := range c.Allowances {
		if a.Taxable {
			taxable = taxable.Add(a.Amount)
		} else {
			nonTaxable = nonTaxable.Add(a.Amount)
		}
	}
	return taxable, nonTaxable
}

// ActiveContract selects the governing contract for a month: the active
// contract with the latest EffectiveFrom. Returns nil when none governs.
func ActiveContract(contracts []Contract, month engine.Month) *Contract {
	var chosen *Contract
	for i := range contracts {
		c := &contracts[i]
		if !c.ActiveIn(month) {
			continue
		}
		if chosen == nil || chosen.EffectiveFrom.Before(c.EffectiveFrom) {
			chosen = c
		}
	}
	return chosen
}

// =============================================================================
// STORE
// =============================================================================

type ContractStore interface {
	SaveContract(ctx context.Context, c Contract) error
	GetContract(ctx context.Context, companyID CompanyID, id string) (*Contract, error)
	ListContracts(ctx context.Context, companyID CompanyID, employeeID EmployeeID) ([]Contract, error)
}
