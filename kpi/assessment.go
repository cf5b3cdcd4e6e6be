/*
Package kpi implements monthly performance assessment. An assessment scores
an employee against weighted criteria; the approved total score feeds the
payroll KPI bonus through the tenant's grade table (engine.GradeTable).

LIFECYCLE:
  draft -> submitted -> approved
  Only approved assessments feed payroll. A missing or unapproved
  assessment means a zero KPI bonus for the month - payroll never waits.
*/
package kpi

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// =============================================================================
// ASSESSMENT
// =============================================================================

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusSubmitted AssessmentStatus = "submitted"
	StatusApproved  AssessmentStatus = "approved"
)

var (
	// ErrInvalidTransition is returned on an illegal status change.
	ErrInvalidTransition = errors.New("invalid assessment status transition")

	// ErrNoCriteria is returned when scoring an assessment with no lines.
	ErrNoCriteria = errors.New("assessment has no criteria")

	// ErrNotEditable is returned when saving over a submitted or approved
	// assessment.
	ErrNotEditable = errors.New("assessment is no longer editable")
)

// Assessment is one employee's monthly KPI scoring record.
type Assessment struct {
	ID         string
	CompanyID  hrm.CompanyID
	EmployeeID hrm.EmployeeID
	Month      engine.Month
	Status     AssessmentStatus

	Criteria []Criterion

	// Weighted total, recomputed on every save. 0-100 scale.
	TotalScore decimal.Decimal

	ReviewerID string
	ApprovedBy string
	UpdatedAt  engine.TimePoint
}

// Criterion is one scored line of an assessment.
type Criterion struct {
	Name   string
	Weight decimal.Decimal // relative weight, any positive scale
	Score  decimal.Decimal // 0-100
}

// ComputeScore returns the weighted average of the criterion scores.
func ComputeScore(criteria []Criterion) (decimal.Decimal, error) {
	if len(criteria) == 0 {
		return decimal.Zero, ErrNoCriteria
	}
	weighted := decimal.Zero
	totalWeight := decimal.Zero
	for _, c := range criteria {
		weighted = weighted.Add(c.Score.Mul(c.Weight))
		totalWeight = totalWeight.Add(c.Weight)
	}
	if totalWeight.IsZero() {
		return decimal.Zero, ErrNoCriteria
	}
	return weighted.Div(totalWeight), nil
}

// Rescore recomputes TotalScore from the criterion lines.
func (a *Assessment) Rescore() error {
	score, err := ComputeScore(a.Criteria)
	if err != nil {
		return err
	}
	a.TotalScore = score
	return nil
}

// Transition moves the assessment through its lifecycle. Approved is
// terminal; re-scoring an approved assessment requires a new record (the
// payroll snapshot already froze the old score anyway).
func (a *Assessment) Transition(to AssessmentStatus, actor string) error {
	allowed := map[AssessmentStatus][]AssessmentStatus{
		StatusDraft:     {StatusSubmitted},
		StatusSubmitted: {StatusApproved, StatusDraft},
	}
	for _, next := range allowed[a.Status] {
		if next == to {
			a.Status = to
			if to == StatusApproved {
				a.ApprovedBy = actor
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
}

// AcceptsEdit reports whether the criterion lines may still change.
// Submitted assessments must first transition back to draft; approved
// ones are frozen, since their score already fed (or will feed) a slip.
func (a Assessment) AcceptsEdit() error {
	if a.Status != StatusDraft {
		return fmt.Errorf("%w: status %s", ErrNotEditable, a.Status)
	}
	return nil
}

// PayrollScore returns the score payroll should use: the total score if
// approved, otherwise nothing.
func (a Assessment) PayrollScore() (decimal.Decimal, bool) {
	if a.Status != StatusApproved {
		return decimal.Zero, false
	}
	return a.TotalScore, true
}

// =============================================================================
// STORE
// =============================================================================

type AssessmentStore interface {
	// SaveAssessment upserts; one row per employee per month.
	SaveAssessment(ctx context.Context, a Assessment) error
	GetAssessment(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*Assessment, error)
	ListAssessments(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]Assessment, error)
}
