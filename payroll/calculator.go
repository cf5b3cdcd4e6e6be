/*
calculator.go - The slip computation

PURPOSE:
  Turns one employee's month of inputs into a Slip. The computation is a
  pure function of CalcInput: no I/O, no clock reads, no store access.
  Callers (the Recalculator, the audit replay path) gather the inputs;
  the Calculator only does arithmetic and line assembly.

COMPUTATION ORDER:
  1. Prorated base     = base salary * paidDays / standardDays
  2. Overtime          = hourly rate * OT hours * multiplier
  3. Allowances        = contract recurring + one-off, split by taxability
  4. KPI bonus         = bonus base * grade multiplier (approved score only)
  5. Commission        = tier rate * whole revenue (eligible contracts only)
  6. Gross             = sum of 1..5
  7. Insurance         = scheme rates on min(insurance salary, cap)
  8. Income tax        = marginal schedule on the taxable base
  9. Net               = gross - employee insurance - tax - penalties
                         - advances + travel expenses
 10. Employer cost     = gross + employer insurance

ROUNDING:
  Each emitted line is rounded to currency precision; totals are sums of
  rounded lines, so the printed slip is internally consistent.
*/
package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// CalcInput is everything one slip computation reads.
type CalcInput struct {
	CompanyID  hrm.CompanyID
	EmployeeID hrm.EmployeeID
	Month      engine.Month

	Contract hrm.Contract

	// Nil means no attendance recorded: zero paid days, zero overtime.
	Timesheet *hrm.Timesheet

	// Nil means no approved assessment: no KPI bonus this month.
	KPIScore *decimal.Decimal

	Revenue    engine.Money
	Dependents int

	Adjustments []Adjustment

	Config Config
}

// Calculator computes slips. Stateless; the zero value is ready to use.
type Calculator struct{}

// Compute builds the slip for one employee month.
func (Calculator) Compute(input CalcInput, now time.Time) (*Slip, error) {
	if input.Contract.StandardWorkdays.IsZero() || input.Contract.StandardWorkdays.IsNegative() {
		return nil, &engine.ProrationError{StandardDays: input.Contract.StandardWorkdays}
	}
	if err := input.Config.Validate(); err != nil {
		return nil, err
	}
	if input.Timesheet != nil {
		if err := input.Timesheet.Validate(); err != nil {
			return nil, err
		}
	}

	slip := &Slip{
		ID:         uuid.NewString(),
		CompanyID:  input.CompanyID,
		EmployeeID: input.EmployeeID,
		Month:      input.Month,
		Status:     SlipComputed,
		ComputedAt: now,
	}

	addLine := func(code, label string, kind ComponentKind, amount engine.Money) engine.Money {
		amount = amount.Round()
		if amount.IsZero() && code != CompBaseSalary {
			return amount
		}
		slip.Lines = append(slip.Lines, LineItem{Code: code, Label: label, Kind: kind, Amount: amount})
		return amount
	}

	// ---- Step 1: prorated base salary ----
	paidDays := decimal.Zero
	otHours := decimal.Zero
	standardDays := input.Contract.StandardWorkdays
	if input.Timesheet != nil {
		paidDays = input.Timesheet.PaidDays
		otHours = input.Timesheet.OvertimeHours
		if input.Timesheet.StandardDays.IsPositive() {
			standardDays = input.Timesheet.StandardDays
		}
	}
	base := addLine(CompBaseSalary, "Base salary", KindEarning,
		input.Contract.BaseSalary.Mul(paidDays).Div(standardDays))

	// ---- Step 2: overtime ----
	overtime := engine.Zero()
	if otHours.IsPositive() {
		overtime = addLine(CompOvertime, "Overtime", KindEarning,
			input.Contract.HourlyRate().Mul(otHours).Mul(input.Contract.OvertimeMultiplier))
	}

	// ---- Step 3: allowances, contract recurring + one-off ----
	sums := SumAdjustments(input.Adjustments)
	contractTaxable, contractNonTaxable := input.Contract.TotalAllowances()
	taxableAllowances := contractTaxable.Add(sums.TaxableAllowances).Round()
	nonTaxableAllowances := contractNonTaxable.Add(sums.NonTaxableAllowances).Round()
	allowances := addLine(CompAllowance, "Allowances", KindEarning,
		taxableAllowances.Add(nonTaxableAllowances))

	// ---- Step 4: KPI bonus ----
	kpiBonus := engine.Zero()
	if input.KPIScore != nil && input.Contract.KPIBonusBase.IsPositive() {
		grade, bonus := input.Config.Grades.Bonus(input.Contract.KPIBonusBase, *input.KPIScore)
		slip.KPIGrade = grade
		if bonus.IsPositive() {
			kpiBonus = addLine(CompKPIBonus, "KPI bonus ("+grade+")", KindEarning, bonus)
		}
	}

	// ---- Step 5: commission ----
	commission := engine.Zero()
	if input.Contract.CommissionEligible {
		commission = addLine(CompCommission, "Sales commission", KindEarning,
			input.Config.Commission.Compute(input.Revenue))
	}

	// ---- Step 6: gross ----
	slip.Gross = base.Add(overtime).Add(allowances).Add(kpiBonus).Add(commission)

	// ---- Step 7: insurance ----
	ins := input.Config.Insurance.Compute(input.Contract.InsuranceSalary)
	slip.EmployeeInsurance = addLine(CompInsuranceEmp, "Insurance (employee)", KindDeduction,
		ins.EmployeeTotal())
	employerInsurance := addLine(CompInsuranceCo, "Insurance (employer)", KindEmployer,
		ins.EmployerTotal())

	// ---- Step 8: income tax ----
	slip.TaxableIncome = input.Config.Tax.TaxableBase(
		slip.Gross, slip.EmployeeInsurance, nonTaxableAllowances, input.Dependents)
	tax, err := input.Config.Tax.Compute(slip.TaxableIncome)
	if err != nil {
		return nil, err
	}
	slip.IncomeTax = addLine(CompIncomeTax, "Personal income tax", KindDeduction, tax)

	// ---- Step 9: net ----
	penalties := addLine(CompPenalty, "Penalties", KindDeduction, sums.Penalties)
	advances := addLine(CompAdvance, "Salary advance", KindDeduction, sums.Advances)
	travel := addLine(CompTravelExpense, "Travel expenses", KindEarning, sums.TravelExpenses)

	// Travel reimbursements land in net but stay outside gross and the
	// taxable base.
	slip.Deductions = slip.EmployeeInsurance.Add(slip.IncomeTax).Add(penalties).Add(advances)
	slip.Net = slip.Gross.Sub(slip.Deductions).Add(travel)

	// ---- Step 10: employer cost ----
	slip.EmployerCost = slip.Gross.Add(employerInsurance)

	snapshot, err := BuildSnapshot(input).Marshal()
	if err != nil {
		return nil, err
	}
	slip.SnapshotJSON = snapshot

	return slip, nil
}
