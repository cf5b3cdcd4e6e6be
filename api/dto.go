/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator before touching domain logic. Amounts
  travel as decimal strings so client rounding never leaks in.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: The config document JSON schemas
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/kpi"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES / DEPENDENTS
// =============================================================================

type EmployeeDTO struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status"`
	JoinDate  string `json:"join_date"`
	LeaveDate string `json:"leave_date,omitempty"`
}

type SaveEmployeeRequest struct {
	ID        string `json:"id"`
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Status    string `json:"status" validate:"omitempty,oneof=active on_leave terminated"`
	JoinDate  string `json:"join_date" validate:"required,datetime=2006-01-02"`
	LeaveDate string `json:"leave_date" validate:"omitempty,datetime=2006-01-02"`
}

type DependentDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	Name          string `json:"name"`
	Relation      string `json:"relation"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to,omitempty"`
}

type SaveDependentRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name" validate:"required"`
	Relation      string `json:"relation" validate:"required"`
	EffectiveFrom string `json:"effective_from" validate:"required,datetime=2006-01"`
	EffectiveTo   string `json:"effective_to" validate:"omitempty,datetime=2006-01"`
}

// =============================================================================
// CONTRACTS
// =============================================================================

type AllowanceDTO struct {
	Code    string `json:"code" validate:"required"`
	Label   string `json:"label"`
	Amount  string `json:"amount" validate:"required"`
	Taxable bool   `json:"taxable"`
}

type ContractDTO struct {
	ID                 string         `json:"id"`
	EmployeeID         string         `json:"employee_id"`
	Status             string         `json:"status"`
	BaseSalary         string         `json:"base_salary"`
	InsuranceSalary    string         `json:"insurance_salary"`
	KPIBonusBase       string         `json:"kpi_bonus_base"`
	CommissionEligible bool           `json:"commission_eligible"`
	StandardWorkdays   string         `json:"standard_workdays"`
	OvertimeMultiplier string         `json:"overtime_multiplier"`
	HoursPerDay        string         `json:"hours_per_day"`
	Allowances         []AllowanceDTO `json:"allowances,omitempty"`
	EffectiveFrom      string         `json:"effective_from"`
	EffectiveTo        string         `json:"effective_to,omitempty"`
}

type SaveContractRequest struct {
	ID                 string         `json:"id"`
	EmployeeID         string         `json:"employee_id" validate:"required"`
	BaseSalary         string         `json:"base_salary" validate:"required"`
	InsuranceSalary    string         `json:"insurance_salary" validate:"required"`
	KPIBonusBase       string         `json:"kpi_bonus_base"`
	CommissionEligible bool           `json:"commission_eligible"`
	StandardWorkdays   string         `json:"standard_workdays" validate:"required"`
	OvertimeMultiplier string         `json:"overtime_multiplier"`
	HoursPerDay        string         `json:"hours_per_day"`
	Allowances         []AllowanceDTO `json:"allowances" validate:"dive"`
	EffectiveFrom      string         `json:"effective_from" validate:"required,datetime=2006-01"`
	EffectiveTo        string         `json:"effective_to" validate:"omitempty,datetime=2006-01"`
}

// =============================================================================
// TIMESHEETS
// =============================================================================

type TimesheetDTO struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employee_id"`
	Month           string `json:"month"`
	StandardDays    string `json:"standard_days"`
	PaidDays        string `json:"paid_days"`
	UnpaidLeaveDays string `json:"unpaid_leave_days"`
	OvertimeHours   string `json:"overtime_hours"`
	UpdatedBy       string `json:"updated_by,omitempty"`
}

type SaveTimesheetRequest struct {
	EmployeeID      string `json:"employee_id" validate:"required"`
	Month           string `json:"month" validate:"required,datetime=2006-01"`
	StandardDays    string `json:"standard_days" validate:"required"`
	PaidDays        string `json:"paid_days" validate:"required"`
	UnpaidLeaveDays string `json:"unpaid_leave_days"`
	OvertimeHours   string `json:"overtime_hours"`
}

// =============================================================================
// KPI ASSESSMENTS
// =============================================================================

type CriterionDTO struct {
	Name   string `json:"name" validate:"required"`
	Weight string `json:"weight" validate:"required"`
	Score  string `json:"score" validate:"required"`
}

type AssessmentDTO struct {
	ID         string         `json:"id"`
	EmployeeID string         `json:"employee_id"`
	Month      string         `json:"month"`
	Status     string         `json:"status"`
	Criteria   []CriterionDTO `json:"criteria"`
	TotalScore string         `json:"total_score"`
	ReviewerID string         `json:"reviewer_id,omitempty"`
	ApprovedBy string         `json:"approved_by,omitempty"`
}

type SaveAssessmentRequest struct {
	EmployeeID string         `json:"employee_id" validate:"required"`
	Month      string         `json:"month" validate:"required,datetime=2006-01"`
	Criteria   []CriterionDTO `json:"criteria" validate:"required,min=1,dive"`
}

type TransitionAssessmentRequest struct {
	Status string `json:"status" validate:"required,oneof=draft submitted approved"`
}

// =============================================================================
// ADJUSTMENTS / REVENUE
// =============================================================================

type AdjustmentDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason,omitempty"`
	Taxable    bool   `json:"taxable"`
	CreatedBy  string `json:"created_by,omitempty"`
}

type SaveAdjustmentRequest struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id" validate:"required"`
	Month      string `json:"month" validate:"required,datetime=2006-01"`
	Kind       string `json:"kind" validate:"required,oneof=allowance penalty advance travel_expense"`
	Amount     string `json:"amount" validate:"required"`
	Reason     string `json:"reason"`
	Taxable    bool   `json:"taxable"`
}

type RevenueDTO struct {
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month"`
	Amount     string `json:"amount"`
	Source     string `json:"source,omitempty"`
}

type SaveRevenueRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Month      string `json:"month" validate:"required,datetime=2006-01"`
	Amount     string `json:"amount" validate:"required"`
	Source     string `json:"source"`
}

// =============================================================================
// PERIODS / SLIPS
// =============================================================================

type PeriodDTO struct {
	ID            string          `json:"id"`
	Month         string          `json:"month"`
	Status        string          `json:"status"`
	InputDeadline string          `json:"input_deadline,omitempty"`
	Totals        PeriodTotalsDTO `json:"totals"`
	FinalizedAt   string          `json:"finalized_at,omitempty"`
	FinalizedBy   string          `json:"finalized_by,omitempty"`
}

type PeriodTotalsDTO struct {
	SlipCount         int    `json:"slip_count"`
	TotalGross        string `json:"total_gross"`
	TotalNet          string `json:"total_net"`
	TotalEmployerCost string `json:"total_employer_cost"`
	TotalTax          string `json:"total_tax"`
}

type OpenPeriodRequest struct {
	Month         string `json:"month" validate:"required,datetime=2006-01"`
	InputDeadline string `json:"input_deadline" validate:"omitempty"`
}

type LineItemDTO struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
}

type SlipDTO struct {
	ID                string        `json:"id"`
	EmployeeID        string        `json:"employee_id"`
	Month             string        `json:"month"`
	Status            string        `json:"status"`
	Lines             []LineItemDTO `json:"lines"`
	Gross             string        `json:"gross"`
	TaxableIncome     string        `json:"taxable_income"`
	IncomeTax         string        `json:"income_tax"`
	EmployeeInsurance string        `json:"employee_insurance"`
	Deductions        string        `json:"deductions"`
	Net               string        `json:"net"`
	EmployerCost      string        `json:"employer_cost"`
	KPIGrade          string        `json:"kpi_grade,omitempty"`
	ComputedAt        string        `json:"computed_at"`

	// Populated only on single-slip fetches.
	Snapshot *payroll.Snapshot `json:"snapshot,omitempty"`
}

// =============================================================================
// CONFIG
// =============================================================================

type ConfigVersionDTO struct {
	Kind      string `json:"kind"`
	Version   int    `json:"version"`
	Document  any    `json:"document,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveConfigRequest carries one raw document; the kind comes from the URL.
// The document is validated by the factory before a version is assigned.
type SaveConfigRequest struct {
	Document map[string]any `json:"document" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e hrm.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(e.ID),
		Code:     e.Code,
		Name:     e.Name,
		Email:    e.Email,
		Status:   string(e.Status),
		JoinDate: e.JoinDate.String(),
	}
	if e.LeaveDate != nil {
		dto.LeaveDate = e.LeaveDate.String()
	}
	return dto
}

func toContractDTO(c hrm.Contract) ContractDTO {
	dto := ContractDTO{
		ID:                 c.ID,
		EmployeeID:         string(c.EmployeeID),
		Status:             string(c.Status),
		BaseSalary:         c.BaseSalary.String(),
		InsuranceSalary:    c.InsuranceSalary.String(),
		KPIBonusBase:       c.KPIBonusBase.String(),
		CommissionEligible: c.CommissionEligible,
		StandardWorkdays:   c.StandardWorkdays.String(),
		OvertimeMultiplier: c.OvertimeMultiplier.String(),
		HoursPerDay:        c.HoursPerDay.String(),
		EffectiveFrom:      c.EffectiveFrom.String(),
	}
	if c.EffectiveTo != nil {
		dto.EffectiveTo = c.EffectiveTo.String()
	}
	for _, a := range c.Allowances {
		dto.Allowances = append(dto.Allowances, AllowanceDTO{
			Code: a.Code, Label: a.Label, Amount: a.Amount.String(), Taxable: a.Taxable,
		})
	}
	return dto
}

func toTimesheetDTO(ts hrm.Timesheet) TimesheetDTO {
	return TimesheetDTO{
		ID:              ts.ID,
		EmployeeID:      string(ts.EmployeeID),
		Month:           ts.Month.String(),
		StandardDays:    ts.StandardDays.String(),
		PaidDays:        ts.PaidDays.String(),
		UnpaidLeaveDays: ts.UnpaidLeaveDays.String(),
		OvertimeHours:   ts.OvertimeHours.String(),
		UpdatedBy:       ts.UpdatedBy,
	}
}

func toAssessmentDTO(a kpi.Assessment) AssessmentDTO {
	dto := AssessmentDTO{
		ID:         a.ID,
		EmployeeID: string(a.EmployeeID),
		Month:      a.Month.String(),
		Status:     string(a.Status),
		TotalScore: a.TotalScore.String(),
		ReviewerID: a.ReviewerID,
		ApprovedBy: a.ApprovedBy,
	}
	for _, c := range a.Criteria {
		dto.Criteria = append(dto.Criteria, CriterionDTO{
			Name: c.Name, Weight: c.Weight.String(), Score: c.Score.String(),
		})
	}
	return dto
}

func toAdjustmentDTO(a payroll.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:         a.ID,
		EmployeeID: string(a.EmployeeID),
		Month:      a.Month.String(),
		Kind:       string(a.Kind),
		Amount:     a.Amount.String(),
		Reason:     a.Reason,
		Taxable:    a.Taxable,
		CreatedBy:  a.CreatedBy,
	}
}

func toPeriodDTO(p payroll.Period) PeriodDTO {
	dto := PeriodDTO{
		ID:     p.ID,
		Month:  p.Month.String(),
		Status: string(p.Status),
		Totals: PeriodTotalsDTO{
			SlipCount:         p.Totals.SlipCount,
			TotalGross:        p.Totals.TotalGross.String(),
			TotalNet:          p.Totals.TotalNet.String(),
			TotalEmployerCost: p.Totals.TotalEmployerCost.String(),
			TotalTax:          p.Totals.TotalTax.String(),
		},
		FinalizedBy: p.FinalizedBy,
	}
	if !p.InputDeadline.IsZero() {
		dto.InputDeadline = p.InputDeadline.UTC().Format(time.RFC3339)
	}
	if p.FinalizedAt != nil {
		dto.FinalizedAt = p.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toSlipDTO(s payroll.Slip, withSnapshot bool) SlipDTO {
	dto := SlipDTO{
		ID:                s.ID,
		EmployeeID:        string(s.EmployeeID),
		Month:             s.Month.String(),
		Status:            string(s.Status),
		Gross:             s.Gross.String(),
		TaxableIncome:     s.TaxableIncome.String(),
		IncomeTax:         s.IncomeTax.String(),
		EmployeeInsurance: s.EmployeeInsurance.String(),
		Deductions:        s.Deductions.String(),
		Net:               s.Net.String(),
		EmployerCost:      s.EmployerCost.String(),
		KPIGrade:          s.KPIGrade,
		ComputedAt:        s.ComputedAt.UTC().Format(time.RFC3339),
	}
	for _, l := range s.Lines {
		dto.Lines = append(dto.Lines, LineItemDTO{
			Code: l.Code, Label: l.Label, Kind: string(l.Kind), Amount: l.Amount.String(),
		})
	}
	if withSnapshot && s.SnapshotJSON != "" {
		if snap, err := payroll.ParseSnapshot(s.SnapshotJSON); err == nil {
			dto.Snapshot = &snap
		}
	}
	return dto
}

// parseMonthParam parses a YYYY-MM value from path or query.
func parseMonthParam(s string) (engine.Month, error) {
	return engine.ParseMonth(s)
}
