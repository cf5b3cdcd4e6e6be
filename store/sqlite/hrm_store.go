/*
hrm_store.go - Employee master data persistence

Implements hrm.EmployeeStore, hrm.DependentStore, hrm.ContractStore and
hrm.TimesheetStore. Contract allowance lines are stored as a JSON column;
everything decimal goes through TEXT to keep exact values.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// =============================================================================
// EMPLOYEE STORE (hrm.EmployeeStore interface)
// =============================================================================

// SaveEmployee upserts an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp hrm.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var leaveDate sql.NullString
	if emp.LeaveDate != nil {
		leaveDate = nullString(emp.LeaveDate.String())
	}
	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = engine.Today()
	}

	query := `
		INSERT INTO employees (id, company_id, code, name, email, status, join_date, leave_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			email = excluded.email,
			status = excluded.status,
			join_date = excluded.join_date,
			leave_date = excluded.leave_date
	`

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), string(emp.CompanyID), emp.Code, emp.Name, emp.Email,
		string(emp.Status), emp.JoinDate.String(), leaveDate, createdAt.String(),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("employee code %q already in use: %w", emp.Code, err)
	}
	return err
}

// GetEmployee retrieves an employee by ID within a tenant.
func (s *Store) GetEmployee(ctx context.Context, companyID hrm.CompanyID, id hrm.EmployeeID) (*hrm.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, code, name, email, status, join_date, leave_date, created_at
		 FROM employees WHERE company_id = ? AND id = ?`,
		string(companyID), string(id),
	)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// ListEmployees returns all employees of a tenant.
func (s *Store) ListEmployees(ctx context.Context, companyID hrm.CompanyID) ([]hrm.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, code, name, email, status, join_date, leave_date, created_at
		 FROM employees WHERE company_id = ? ORDER BY code`,
		string(companyID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []hrm.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*hrm.Employee, error) {
	var emp hrm.Employee
	var email, leaveDate sql.NullString
	var joinDate, createdAt string

	err := row.Scan(&emp.ID, &emp.CompanyID, &emp.Code, &emp.Name, &email,
		&emp.Status, &joinDate, &leaveDate, &createdAt)
	if err != nil {
		return nil, err
	}

	emp.Email = email.String
	emp.JoinDate = parseDate(joinDate)
	emp.CreatedAt = parseDate(createdAt)
	if leaveDate.Valid {
		tp := parseDate(leaveDate.String)
		emp.LeaveDate = &tp
	}
	return &emp, nil
}

func parseDate(s string) engine.TimePoint {
	t, _ := time.Parse("2006-01-02", s)
	return engine.TimePoint{Time: t}
}

// =============================================================================
// DEPENDENT STORE (hrm.DependentStore interface)
// =============================================================================

// SaveDependent upserts a dependent registration.
func (s *Store) SaveDependent(ctx context.Context, dep hrm.Dependent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effectiveTo sql.NullString
	if dep.EffectiveTo != nil {
		effectiveTo = nullString(dep.EffectiveTo.String())
	}

	query := `
		INSERT INTO dependents (id, company_id, employee_id, name, relation, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			relation = excluded.relation,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to
	`

	_, err := s.db.ExecContext(ctx, query,
		dep.ID, string(dep.CompanyID), string(dep.EmployeeID),
		dep.Name, dep.Relation, dep.EffectiveFrom.String(), effectiveTo,
	)
	return err
}

// ListDependents returns an employee's dependents.
func (s *Store) ListDependents(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID) ([]hrm.Dependent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, employee_id, name, relation, effective_from, effective_to
		 FROM dependents WHERE company_id = ? AND employee_id = ? ORDER BY effective_from`,
		string(companyID), string(employeeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []hrm.Dependent
	for rows.Next() {
		var d hrm.Dependent
		var effectiveFrom string
		var effectiveTo sql.NullString
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.EmployeeID, &d.Name, &d.Relation,
			&effectiveFrom, &effectiveTo); err != nil {
			return nil, err
		}
		d.EffectiveFrom = parseMonth(effectiveFrom)
		if effectiveTo.Valid {
			m := parseMonth(effectiveTo.String)
			d.EffectiveTo = &m
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// DeleteDependent removes a dependent registration.
func (s *Store) DeleteDependent(ctx context.Context, companyID hrm.CompanyID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM dependents WHERE company_id = ? AND id = ?", string(companyID), id)
	return err
}

// =============================================================================
// CONTRACT STORE (hrm.ContractStore interface)
// =============================================================================

// SaveContract upserts a contract row.
func (s *Store) SaveContract(ctx context.Context, c hrm.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowancesJSON, err := json.Marshal(c.Allowances)
	if err != nil {
		return fmt.Errorf("failed to marshal allowances: %w", err)
	}
	var effectiveTo sql.NullString
	if c.EffectiveTo != nil {
		effectiveTo = nullString(c.EffectiveTo.String())
	}

	query := `
		INSERT INTO contracts (id, company_id, employee_id, status, base_salary, insurance_salary,
			kpi_bonus_base, commission_eligible, standard_workdays, overtime_multiplier,
			hours_per_day, allowances_json, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			base_salary = excluded.base_salary,
			insurance_salary = excluded.insurance_salary,
			kpi_bonus_base = excluded.kpi_bonus_base,
			commission_eligible = excluded.commission_eligible,
			standard_workdays = excluded.standard_workdays,
			overtime_multiplier = excluded.overtime_multiplier,
			hours_per_day = excluded.hours_per_day,
			allowances_json = excluded.allowances_json,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to
	`

	_, err = s.db.ExecContext(ctx, query,
		c.ID, string(c.CompanyID), string(c.EmployeeID), string(c.Status),
		c.BaseSalary.Value.String(), c.InsuranceSalary.Value.String(),
		c.KPIBonusBase.Value.String(), c.CommissionEligible,
		c.StandardWorkdays.String(), c.OvertimeMultiplier.String(),
		c.HoursPerDay.String(), string(allowancesJSON),
		c.EffectiveFrom.String(), effectiveTo,
	)
	return err
}

// GetContract retrieves a contract by ID within a tenant.
func (s *Store) GetContract(ctx context.Context, companyID hrm.CompanyID, id string) (*hrm.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		contractSelect+" WHERE company_id = ? AND id = ?", string(companyID), id)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContracts returns an employee's contract history.
func (s *Store) ListContracts(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID) ([]hrm.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		contractSelect+" WHERE company_id = ? AND employee_id = ? ORDER BY effective_from",
		string(companyID), string(employeeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []hrm.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

const contractSelect = `
	SELECT id, company_id, employee_id, status, base_salary, insurance_salary,
		kpi_bonus_base, commission_eligible, standard_workdays, overtime_multiplier,
		hours_per_day, allowances_json, effective_from, effective_to
	FROM contracts`

func scanContract(row rowScanner) (*hrm.Contract, error) {
	var c hrm.Contract
	var baseSalary, insuranceSalary, kpiBonusBase string
	var standardWorkdays, overtimeMultiplier, hoursPerDay string
	var allowancesJSON, effectiveTo sql.NullString
	var effectiveFrom string

	err := row.Scan(&c.ID, &c.CompanyID, &c.EmployeeID, &c.Status,
		&baseSalary, &insuranceSalary, &kpiBonusBase, &c.CommissionEligible,
		&standardWorkdays, &overtimeMultiplier, &hoursPerDay,
		&allowancesJSON, &effectiveFrom, &effectiveTo)
	if err != nil {
		return nil, err
	}

	c.BaseSalary = engine.ParseMoney(baseSalary)
	c.InsuranceSalary = engine.ParseMoney(insuranceSalary)
	c.KPIBonusBase = engine.ParseMoney(kpiBonusBase)
	c.StandardWorkdays = parseDecimal(standardWorkdays)
	c.OvertimeMultiplier = parseDecimal(overtimeMultiplier)
	c.HoursPerDay = parseDecimal(hoursPerDay)
	c.EffectiveFrom = parseMonth(effectiveFrom)
	if effectiveTo.Valid {
		m := parseMonth(effectiveTo.String)
		c.EffectiveTo = &m
	}
	if allowancesJSON.Valid && allowancesJSON.String != "" {
		// Written by this package; a parse failure is storage corruption.
		if err := json.Unmarshal([]byte(allowancesJSON.String), &c.Allowances); err != nil {
			return nil, fmt.Errorf("stored contract %s allowances: %w", c.ID, err)
		}
	}
	return &c, nil
}

// =============================================================================
// TIMESHEET STORE (hrm.TimesheetStore interface)
// =============================================================================

// SaveTimesheet upserts the month's attendance row for an employee.
func (s *Store) SaveTimesheet(ctx context.Context, ts hrm.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO timesheets (id, company_id, employee_id, month, standard_days, paid_days,
			unpaid_leave_days, overtime_hours, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id, month) DO UPDATE SET
			standard_days = excluded.standard_days,
			paid_days = excluded.paid_days,
			unpaid_leave_days = excluded.unpaid_leave_days,
			overtime_hours = excluded.overtime_hours,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		ts.ID, string(ts.CompanyID), string(ts.EmployeeID), ts.Month.String(),
		ts.StandardDays.String(), ts.PaidDays.String(),
		ts.UnpaidLeaveDays.String(), ts.OvertimeHours.String(),
		ts.UpdatedBy, engine.Today().String(),
	)
	return err
}

// GetTimesheet retrieves the attendance row for an employee month.
func (s *Store) GetTimesheet(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*hrm.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		timesheetSelect+" WHERE company_id = ? AND employee_id = ? AND month = ?",
		string(companyID), string(employeeID), month.String())
	ts, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// ListTimesheets returns all attendance rows of a month.
func (s *Store) ListTimesheets(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]hrm.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		timesheetSelect+" WHERE company_id = ? AND month = ? ORDER BY employee_id",
		string(companyID), month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []hrm.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, *ts)
	}
	return sheets, rows.Err()
}

const timesheetSelect = `
	SELECT id, company_id, employee_id, month, standard_days, paid_days,
		unpaid_leave_days, overtime_hours, updated_by, updated_at
	FROM timesheets`

func scanTimesheet(row rowScanner) (*hrm.Timesheet, error) {
	var ts hrm.Timesheet
	var month, standardDays, paidDays, unpaidDays, otHours, updatedAt string
	var updatedBy sql.NullString

	err := row.Scan(&ts.ID, &ts.CompanyID, &ts.EmployeeID, &month,
		&standardDays, &paidDays, &unpaidDays, &otHours, &updatedBy, &updatedAt)
	if err != nil {
		return nil, err
	}

	ts.Month = parseMonth(month)
	ts.StandardDays = parseDecimal(standardDays)
	ts.PaidDays = parseDecimal(paidDays)
	ts.UnpaidLeaveDays = parseDecimal(unpaidDays)
	ts.OvertimeHours = parseDecimal(otHours)
	ts.UpdatedBy = updatedBy.String
	ts.UpdatedAt = parseDate(updatedAt)
	return &ts, nil
}
