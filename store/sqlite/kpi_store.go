/*
kpi_store.go - Assessment persistence

Implements kpi.AssessmentStore. Criterion lines are stored as a JSON
column; the weighted total is denormalized for month listings.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/kpi"
)

// criterionRow is the stored shape of one assessment line.
type criterionRow struct {
	Name   string          `json:"name"`
	Weight decimal.Decimal `json:"weight"`
	Score  decimal.Decimal `json:"score"`
}

// SaveAssessment upserts the month's assessment for an employee.
func (s *Store) SaveAssessment(ctx context.Context, a kpi.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]criterionRow, 0, len(a.Criteria))
	for _, c := range a.Criteria {
		lines = append(lines, criterionRow{Name: c.Name, Weight: c.Weight, Score: c.Score})
	}
	criteriaJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
		INSERT INTO assessments (id, company_id, employee_id, month, status, criteria_json,
			total_score, reviewer_id, approved_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id, month) DO UPDATE SET
			status = excluded.status,
			criteria_json = excluded.criteria_json,
			total_score = excluded.total_score,
			reviewer_id = excluded.reviewer_id,
			approved_by = excluded.approved_by,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		a.ID, string(a.CompanyID), string(a.EmployeeID), a.Month.String(),
		string(a.Status), string(criteriaJSON), a.TotalScore.String(),
		a.ReviewerID, a.ApprovedBy, engine.Today().String(),
	)
	return err
}

// GetAssessment retrieves the assessment for an employee month.
func (s *Store) GetAssessment(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*kpi.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		assessmentSelect+" WHERE company_id = ? AND employee_id = ? AND month = ?",
		string(companyID), string(employeeID), month.String())
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssessments returns all assessments of a month.
func (s *Store) ListAssessments(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]kpi.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		assessmentSelect+" WHERE company_id = ? AND month = ? ORDER BY employee_id",
		string(companyID), month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []kpi.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, rows.Err()
}

const assessmentSelect = `
	SELECT id, company_id, employee_id, month, status, criteria_json,
		total_score, reviewer_id, approved_by, updated_at
	FROM assessments`

func scanAssessment(row rowScanner) (*kpi.Assessment, error) {
	var a kpi.Assessment
	var month, totalScore, updatedAt string
	var criteriaJSON, reviewerID, approvedBy sql.NullString

	err := row.Scan(&a.ID, &a.CompanyID, &a.EmployeeID, &month, &a.Status,
		&criteriaJSON, &totalScore, &reviewerID, &approvedBy, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Month = parseMonth(month)
	a.TotalScore = parseDecimal(totalScore)
	a.ReviewerID = reviewerID.String
	a.ApprovedBy = approvedBy.String
	a.UpdatedAt = parseDate(updatedAt)
	if criteriaJSON.Valid && criteriaJSON.String != "" {
		// Written by this package; a parse failure is storage corruption.
		var lines []criterionRow
		if err := json.Unmarshal([]byte(criteriaJSON.String), &lines); err != nil {
			return nil, fmt.Errorf("stored assessment %s criteria: %w", a.ID, err)
		}
		for _, l := range lines {
			a.Criteria = append(a.Criteria, kpi.Criterion{Name: l.Name, Weight: l.Weight, Score: l.Score})
		}
	}
	return &a, nil
}
