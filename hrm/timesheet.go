/*
timesheet.go - Monthly attendance record

PURPOSE:
  One row per employee per month: how many days were actually paid, how
  many were unpaid leave, and overtime hours. The slip calculator prorates
  base salary by PaidDays / contract.StandardWorkdays.

MISSING TIMESHEET:
  A missing timesheet is computed as zero paid days, not refused. Late
  attendance data arrives constantly; the recalculation pipeline picks it
  up when it lands.
*/
package hrm

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
)

// Timesheet is the per-month attendance summary for one employee.
type Timesheet struct {
	ID         string
	CompanyID  CompanyID
	EmployeeID EmployeeID
	Month      engine.Month

	// Workdays in the month per the tenant calendar (captured at entry so
	// old timesheets survive calendar edits).
	StandardDays decimal.Decimal

	// Days actually paid (attendance + paid leave).
	PaidDays decimal.Decimal

	// Unpaid leave days, for display and audit. PaidDays already excludes
	// them.
	UnpaidLeaveDays decimal.Decimal

	// Overtime hours worked in the month.
	OvertimeHours decimal.Decimal

	UpdatedBy string
	UpdatedAt engine.TimePoint
}

// Validate enforces the attendance invariants.
func (t Timesheet) Validate() error {
	if t.StandardDays.IsZero() || t.StandardDays.IsNegative() {
		return &engine.ProrationError{StandardDays: t.StandardDays, PaidDays: t.PaidDays}
	}
	if t.PaidDays.IsNegative() || t.PaidDays.GreaterThan(t.StandardDays) {
		return &engine.ProrationError{StandardDays: t.StandardDays, PaidDays: t.PaidDays}
	}
	if t.OvertimeHours.IsNegative() {
		return &engine.ProrationError{StandardDays: t.StandardDays, PaidDays: t.PaidDays}
	}
	return nil
}

// AttendanceRatio returns PaidDays / StandardDays as a decimal factor.
func (t Timesheet) AttendanceRatio() decimal.Decimal {
	if t.StandardDays.IsZero() {
		return decimal.Zero
	}
	return t.PaidDays.Div(t.StandardDays)
}

type TimesheetStore interface {
	// SaveTimesheet upserts; one row per employee per month.
	SaveTimesheet(ctx context.Context, ts Timesheet) error
	GetTimesheet(ctx context.Context, companyID CompanyID, employeeID EmployeeID, month engine.Month) (*Timesheet, error)
	ListTimesheets(ctx context.Context, companyID CompanyID, month engine.Month) ([]Timesheet, error)
}
