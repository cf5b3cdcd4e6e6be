/*
payroll_store.go - Period, adjustment, revenue and slip persistence

Implements payroll.PeriodStore, payroll.AdjustmentStore,
payroll.RevenueStore and payroll.SlipStore. Slip line items and the
frozen snapshot are stored as JSON columns; the totals are denormalized
for month listings and period aggregation.
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
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// PERIOD STORE (payroll.PeriodStore interface)
// =============================================================================

// SavePeriod upserts the period row for a company month.
func (s *Store) SavePeriod(ctx context.Context, p payroll.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deadline, finalizedAt sql.NullString
	if !p.InputDeadline.IsZero() {
		deadline = nullString(p.InputDeadline.UTC().Format(time.RFC3339))
	}
	if p.FinalizedAt != nil {
		finalizedAt = nullString(p.FinalizedAt.UTC().Format(time.RFC3339))
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO periods (id, company_id, month, status, input_deadline, slip_count,
			total_gross, total_net, total_employer_cost, total_tax,
			created_at, finalized_at, finalized_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, month) DO UPDATE SET
			status = excluded.status,
			input_deadline = excluded.input_deadline,
			slip_count = excluded.slip_count,
			total_gross = excluded.total_gross,
			total_net = excluded.total_net,
			total_employer_cost = excluded.total_employer_cost,
			total_tax = excluded.total_tax,
			finalized_at = excluded.finalized_at,
			finalized_by = excluded.finalized_by
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, string(p.CompanyID), p.Month.String(), string(p.Status), deadline,
		p.Totals.SlipCount, p.Totals.TotalGross.Value.String(),
		p.Totals.TotalNet.Value.String(), p.Totals.TotalEmployerCost.Value.String(),
		p.Totals.TotalTax.Value.String(),
		createdAt.Format(time.RFC3339), finalizedAt, p.FinalizedBy,
	)
	return err
}

// GetPeriod retrieves the period for a company month, nil when absent.
func (s *Store) GetPeriod(ctx context.Context, companyID hrm.CompanyID, month engine.Month) (*payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		periodSelect+" WHERE company_id = ? AND month = ?",
		string(companyID), month.String())
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPeriods returns a tenant's periods, newest month first.
func (s *Store) ListPeriods(ctx context.Context, companyID hrm.CompanyID) ([]payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		periodSelect+" WHERE company_id = ? ORDER BY month DESC", string(companyID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []payroll.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

const periodSelect = `
	SELECT id, company_id, month, status, input_deadline, slip_count,
		total_gross, total_net, total_employer_cost, total_tax,
		created_at, finalized_at, finalized_by
	FROM periods`

func scanPeriod(row rowScanner) (*payroll.Period, error) {
	var p payroll.Period
	var month, createdAt string
	var totalGross, totalNet, totalEmployerCost, totalTax string
	var deadline, finalizedAt, finalizedBy sql.NullString

	err := row.Scan(&p.ID, &p.CompanyID, &month, &p.Status, &deadline,
		&p.Totals.SlipCount, &totalGross, &totalNet, &totalEmployerCost, &totalTax,
		&createdAt, &finalizedAt, &finalizedBy)
	if err != nil {
		return nil, err
	}

	p.Month = parseMonth(month)
	p.Totals.TotalGross = engine.ParseMoney(totalGross)
	p.Totals.TotalNet = engine.ParseMoney(totalNet)
	p.Totals.TotalEmployerCost = engine.ParseMoney(totalEmployerCost)
	p.Totals.TotalTax = engine.ParseMoney(totalTax)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.FinalizedBy = finalizedBy.String
	if deadline.Valid {
		p.InputDeadline, _ = time.Parse(time.RFC3339, deadline.String)
	}
	if finalizedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finalizedAt.String)
		p.FinalizedAt = &t
	}
	return &p, nil
}

// =============================================================================
// ADJUSTMENT STORE (payroll.AdjustmentStore interface)
// =============================================================================

// SaveAdjustment inserts or updates a one-off adjustment.
func (s *Store) SaveAdjustment(ctx context.Context, a payroll.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = engine.Today()
	}

	query := `
		INSERT INTO adjustments (id, company_id, employee_id, month, kind, amount, reason,
			taxable, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			amount = excluded.amount,
			reason = excluded.reason,
			taxable = excluded.taxable
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, string(a.CompanyID), string(a.EmployeeID), a.Month.String(),
		string(a.Kind), a.Amount.Value.String(), a.Reason, a.Taxable,
		a.CreatedBy, createdAt.String(),
	)
	return err
}

// ListAdjustments returns an employee's adjustments for a month.
func (s *Store) ListAdjustments(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) ([]payroll.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, employee_id, month, kind, amount, reason, taxable, created_by, created_at
		 FROM adjustments WHERE company_id = ? AND employee_id = ? AND month = ?
		 ORDER BY created_at, id`,
		string(companyID), string(employeeID), month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adjs []payroll.Adjustment
	for rows.Next() {
		var a payroll.Adjustment
		var m, amount, createdAt string
		var reason, createdBy sql.NullString
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.EmployeeID, &m, &a.Kind,
			&amount, &reason, &a.Taxable, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		a.Month = parseMonth(m)
		a.Amount = engine.ParseMoney(amount)
		a.Reason = reason.String
		a.CreatedBy = createdBy.String
		a.CreatedAt = parseDate(createdAt)
		adjs = append(adjs, a)
	}
	return adjs, rows.Err()
}

// DeleteAdjustment removes an adjustment.
func (s *Store) DeleteAdjustment(ctx context.Context, companyID hrm.CompanyID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM adjustments WHERE company_id = ? AND id = ?", string(companyID), id)
	return err
}

// =============================================================================
// REVENUE STORE (payroll.RevenueStore interface)
// =============================================================================

// SaveRevenue upserts the month's revenue figure for an employee.
func (s *Store) SaveRevenue(ctx context.Context, r payroll.Revenue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO revenues (id, company_id, employee_id, month, amount, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id, month) DO UPDATE SET
			amount = excluded.amount,
			source = excluded.source,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.CompanyID), string(r.EmployeeID), r.Month.String(),
		r.Amount.Value.String(), r.Source, engine.Today().String(),
	)
	return err
}

// GetRevenue retrieves the revenue row for an employee month, nil when absent.
func (s *Store) GetRevenue(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*payroll.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r payroll.Revenue
	var m, amount, updatedAt string
	var source sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, employee_id, month, amount, source, updated_at
		 FROM revenues WHERE company_id = ? AND employee_id = ? AND month = ?`,
		string(companyID), string(employeeID), month.String(),
	).Scan(&r.ID, &r.CompanyID, &r.EmployeeID, &m, &amount, &source, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Month = parseMonth(m)
	r.Amount = engine.ParseMoney(amount)
	r.Source = source.String
	r.UpdatedAt = parseDate(updatedAt)
	return &r, nil
}

// =============================================================================
// SLIP STORE (payroll.SlipStore interface)
// =============================================================================

// SaveSlip upserts the month's slip for an employee. A recomputation
// replaces the previous slip wholesale.
func (s *Store) SaveSlip(ctx context.Context, slip payroll.Slip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linesJSON, err := json.Marshal(slip.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal slip lines: %w", err)
	}

	query := `
		INSERT INTO slips (id, company_id, employee_id, month, status, lines_json,
			gross, taxable_income, income_tax, employee_insurance, deductions, net,
			employer_cost, kpi_grade, snapshot_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id, month) DO UPDATE SET
			status = excluded.status,
			lines_json = excluded.lines_json,
			gross = excluded.gross,
			taxable_income = excluded.taxable_income,
			income_tax = excluded.income_tax,
			employee_insurance = excluded.employee_insurance,
			deductions = excluded.deductions,
			net = excluded.net,
			employer_cost = excluded.employer_cost,
			kpi_grade = excluded.kpi_grade,
			snapshot_json = excluded.snapshot_json,
			computed_at = excluded.computed_at
	`

	_, err = s.db.ExecContext(ctx, query,
		slip.ID, string(slip.CompanyID), string(slip.EmployeeID), slip.Month.String(),
		string(slip.Status), string(linesJSON),
		slip.Gross.Value.String(), slip.TaxableIncome.Value.String(),
		slip.IncomeTax.Value.String(), slip.EmployeeInsurance.Value.String(),
		slip.Deductions.Value.String(), slip.Net.Value.String(),
		slip.EmployerCost.Value.String(), slip.KPIGrade, slip.SnapshotJSON,
		slip.ComputedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetSlip retrieves a slip by ID within a tenant.
func (s *Store) GetSlip(ctx context.Context, companyID hrm.CompanyID, id string) (*payroll.Slip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		slipSelect+" WHERE company_id = ? AND id = ?", string(companyID), id)
	slip, err := scanSlip(row)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrSlipNotFound
	}
	if err != nil {
		return nil, err
	}
	return slip, nil
}

// GetSlipByEmployee retrieves the slip for an employee month, nil when absent.
func (s *Store) GetSlipByEmployee(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*payroll.Slip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		slipSelect+" WHERE company_id = ? AND employee_id = ? AND month = ?",
		string(companyID), string(employeeID), month.String())
	slip, err := scanSlip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return slip, nil
}

// ListSlips returns every slip of a month.
func (s *Store) ListSlips(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]payroll.Slip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		slipSelect+" WHERE company_id = ? AND month = ? ORDER BY employee_id",
		string(companyID), month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slips []payroll.Slip
	for rows.Next() {
		slip, err := scanSlip(rows)
		if err != nil {
			return nil, err
		}
		slips = append(slips, *slip)
	}
	return slips, rows.Err()
}

// MarkSlipsFinalized flips every slip of the month to finalized.
// Called inside period finalization.
func (s *Store) MarkSlipsFinalized(ctx context.Context, companyID hrm.CompanyID, month engine.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE slips SET status = ? WHERE company_id = ? AND month = ?",
		string(payroll.SlipFinalized), string(companyID), month.String())
	return err
}

const slipSelect = `
	SELECT id, company_id, employee_id, month, status, lines_json,
		gross, taxable_income, income_tax, employee_insurance, deductions, net,
		employer_cost, kpi_grade, snapshot_json, computed_at
	FROM slips`

func scanSlip(row rowScanner) (*payroll.Slip, error) {
	var slip payroll.Slip
	var month, linesJSON, computedAt string
	var gross, taxableIncome, incomeTax, employeeInsurance, deductions, net, employerCost string
	var kpiGrade sql.NullString

	err := row.Scan(&slip.ID, &slip.CompanyID, &slip.EmployeeID, &month, &slip.Status,
		&linesJSON, &gross, &taxableIncome, &incomeTax, &employeeInsurance,
		&deductions, &net, &employerCost, &kpiGrade, &slip.SnapshotJSON, &computedAt)
	if err != nil {
		return nil, err
	}

	slip.Month = parseMonth(month)
	slip.Gross = engine.ParseMoney(gross)
	slip.TaxableIncome = engine.ParseMoney(taxableIncome)
	slip.IncomeTax = engine.ParseMoney(incomeTax)
	slip.EmployeeInsurance = engine.ParseMoney(employeeInsurance)
	slip.Deductions = engine.ParseMoney(deductions)
	slip.Net = engine.ParseMoney(net)
	slip.EmployerCost = engine.ParseMoney(employerCost)
	slip.KPIGrade = kpiGrade.String
	slip.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	if linesJSON != "" {
		// Written by this package; a parse failure is storage corruption.
		if err := json.Unmarshal([]byte(linesJSON), &slip.Lines); err != nil {
			return nil, fmt.Errorf("stored slip %s lines: %w", slip.ID, err)
		}
	}
	return &slip, nil
}
