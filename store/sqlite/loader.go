/*
loader.go - Input assembly for recalculation

Implements payroll.SourceLoader: gathers the live contract, timesheet,
assessment, revenue, dependents and adjustments of one employee month
into a payroll.CalcInput. The Recalculator computes from the result and
never touches the tables directly.
*/
package sqlite

import (
	"context"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/payroll"
)

// LoadPeriod returns the period row for a company month, nil when absent.
func (s *Store) LoadPeriod(ctx context.Context, companyID hrm.CompanyID, month engine.Month) (*payroll.Period, error) {
	return s.GetPeriod(ctx, companyID, month)
}

// ListEligibleEmployees returns the employees payable in the month:
// joined on or before month end, not left before month start.
func (s *Store) ListEligibleEmployees(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]hrm.EmployeeID, error) {
	employees, err := s.ListEmployees(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var ids []hrm.EmployeeID
	for _, emp := range employees {
		if emp.PayrollEligible(month) {
			ids = append(ids, emp.ID)
		}
	}
	return ids, nil
}

// LoadInput assembles the full CalcInput for one employee month.
func (s *Store) LoadInput(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*payroll.CalcInput, error) {
	contracts, err := s.ListContracts(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	contract := hrm.ActiveContract(contracts, month)
	if contract == nil {
		return nil, payroll.ErrNoActiveContract
	}

	config, err := s.ActiveConfig(ctx, companyID)
	if err != nil {
		return nil, err
	}

	input := &payroll.CalcInput{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Month:      month,
		Contract:   *contract,
		Revenue:    engine.Zero(),
		Config:     *config,
	}

	input.Timesheet, err = s.GetTimesheet(ctx, companyID, employeeID, month)
	if err != nil {
		return nil, err
	}

	assessment, err := s.GetAssessment(ctx, companyID, employeeID, month)
	if err != nil {
		return nil, err
	}
	if assessment != nil {
		if score, ok := assessment.PayrollScore(); ok {
			input.KPIScore = &score
		}
	}

	revenue, err := s.GetRevenue(ctx, companyID, employeeID, month)
	if err != nil {
		return nil, err
	}
	if revenue != nil {
		input.Revenue = revenue.Amount
	}

	deps, err := s.ListDependents(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	input.Dependents = hrm.CountActive(deps, month)

	input.Adjustments, err = s.ListAdjustments(ctx, companyID, employeeID, month)
	if err != nil {
		return nil, err
	}

	return input, nil
}
