/*
Package hrm holds employee master data: employees, contracts, dependents
and timesheets. These are the mutable source records that payroll
computation reads from; the payroll package freezes what it used into each
slip's snapshot so that later edits here never rewrite history.

Every record is tenant-scoped by CompanyID. Store interfaces are defined
next to the types and implemented by store/sqlite.
*/
package hrm

import (
	"context"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID string
type EmployeeID string

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeOnLeave    EmployeeStatus = "on_leave"
	EmployeeTerminated EmployeeStatus = "terminated"
)

type Employee struct {
	ID        EmployeeID
	CompanyID CompanyID
	Code      string // tenant-visible staff code, unique per company
	Name      string
	Email     string
	Status    EmployeeStatus
	JoinDate  engine.TimePoint
	LeaveDate *engine.TimePoint // set when terminated

	CreatedAt engine.TimePoint
}

// PayrollEligible reports whether the employee should receive a slip for
// the given month: joined on or before month end, not yet left before
// month start.
func (e Employee) PayrollEligible(month engine.Month) bool {
	if e.JoinDate.After(month.End()) {
		return false
	}
	if e.LeaveDate != nil && e.LeaveDate.Before(month.Start()) {
		return false
	}
	return true
}

// =============================================================================
// DEPENDENT - feeds the per-dependent tax deduction
// =============================================================================

type Dependent struct {
	ID         string
	CompanyID  CompanyID
	EmployeeID EmployeeID
	Name       string
	Relation   string // "child", "parent", "spouse"

	// Registration window for tax purposes.
	EffectiveFrom engine.Month
	EffectiveTo   *engine.Month // nil = still registered
}

// ActiveIn reports whether the dependent counts for the given month.
func (d Dependent) ActiveIn(month engine.Month) bool {
	if month.Before(d.EffectiveFrom) {
		return false
	}
	if d.EffectiveTo != nil && month.After(*d.EffectiveTo) {
		return false
	}
	return true
}

// CountActive returns how many dependents count for the month.
func CountActive(deps []Dependent, month engine.Month) int {
	n := 0
	for _, d := range deps {
		if d.ActiveIn(month) {
			n++
		}
	}
	return n
}

// =============================================================================
// STORES
// =============================================================================

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, companyID CompanyID, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context, companyID CompanyID) ([]Employee, error)
}

type DependentStore interface {
	SaveDependent(ctx context.Context, dep Dependent) error
	ListDependents(ctx context.Context, companyID CompanyID, employeeID EmployeeID) ([]Dependent, error)
	DeleteDependent(ctx context.Context, companyID CompanyID, id string) error
}
