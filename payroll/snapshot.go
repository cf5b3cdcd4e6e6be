/*
snapshot.go - Frozen calculation inputs

PURPOSE:
  Every slip embeds a Snapshot: the config documents (with versions) and
  the source data the calculation read. Mutating a contract, timesheet or
  tax table afterwards changes FUTURE recomputations, never what a stored
  slip says it was computed from. This is the historical-accuracy
  guarantee: a slip from last March can always explain itself.

CONTENT:
  - Config: the four rate documents, verbatim, plus their versions
  - Input: contract terms, timesheet figures, KPI score, revenue,
    dependent count and every adjustment line

The snapshot is stored as JSON on the slip row. It is written once at
computation time and read back only for display/audit - recomputation
always re-reads live sources.
*/
package payroll

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/hrm"
)

// Snapshot is the full frozen state behind one slip.
type Snapshot struct {
	ConfigVersions ConfigVersions            `json:"config_versions"`
	Config         factory.PayrollConfigJSON `json:"config"`
	Input          InputSnapshot             `json:"input"`
}

// InputSnapshot mirrors CalcInput in a storage-stable shape.
type InputSnapshot struct {
	ContractID         string              `json:"contract_id"`
	BaseSalary         engine.Money        `json:"base_salary"`
	InsuranceSalary    engine.Money        `json:"insurance_salary"`
	KPIBonusBase       engine.Money        `json:"kpi_bonus_base"`
	CommissionEligible bool                `json:"commission_eligible"`
	StandardWorkdays   decimal.Decimal     `json:"standard_workdays"`
	OvertimeMultiplier decimal.Decimal     `json:"overtime_multiplier"`
	HoursPerDay        decimal.Decimal     `json:"hours_per_day"`
	Allowances         []AllowanceSnapshot `json:"allowances,omitempty"`

	Timesheet *TimesheetSnapshot `json:"timesheet,omitempty"`

	KPIScore    *decimal.Decimal `json:"kpi_score,omitempty"`
	KPIApproved bool             `json:"kpi_approved"`

	Revenue    engine.Money `json:"revenue"`
	Dependents int          `json:"dependents"`

	Adjustments []AdjustmentSnapshot `json:"adjustments,omitempty"`
}

type AllowanceSnapshot struct {
	Code    string       `json:"code"`
	Label   string       `json:"label"`
	Amount  engine.Money `json:"amount"`
	Taxable bool         `json:"taxable"`
}

type TimesheetSnapshot struct {
	StandardDays    decimal.Decimal `json:"standard_days"`
	PaidDays        decimal.Decimal `json:"paid_days"`
	UnpaidLeaveDays decimal.Decimal `json:"unpaid_leave_days"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
}

type AdjustmentSnapshot struct {
	ID      string         `json:"id"`
	Kind    AdjustmentKind `json:"kind"`
	Amount  engine.Money   `json:"amount"`
	Taxable bool           `json:"taxable"`
	Reason  string         `json:"reason,omitempty"`
}

// BuildSnapshot freezes a CalcInput and its config into a Snapshot.
func BuildSnapshot(input CalcInput) Snapshot {
	snap := Snapshot{
		ConfigVersions: input.Config.Versions,
		Config:         input.Config.Documents,
		Input: InputSnapshot{
			ContractID:         input.Contract.ID,
			BaseSalary:         input.Contract.BaseSalary,
			InsuranceSalary:    input.Contract.InsuranceSalary,
			KPIBonusBase:       input.Contract.KPIBonusBase,
			CommissionEligible: input.Contract.CommissionEligible,
			StandardWorkdays:   input.Contract.StandardWorkdays,
			OvertimeMultiplier: input.Contract.OvertimeMultiplier,
			HoursPerDay:        input.Contract.HoursPerDay,
			Revenue:            input.Revenue,
			Dependents:         input.Dependents,
		},
	}

	for _, a := range input.Contract.Allowances {
		snap.Input.Allowances = append(snap.Input.Allowances, AllowanceSnapshot{
			Code: a.Code, Label: a.Label, Amount: a.Amount, Taxable: a.Taxable,
		})
	}

	if input.Timesheet != nil {
		snap.Input.Timesheet = &TimesheetSnapshot{
			StandardDays:    input.Timesheet.StandardDays,
			PaidDays:        input.Timesheet.PaidDays,
			UnpaidLeaveDays: input.Timesheet.UnpaidLeaveDays,
			OvertimeHours:   input.Timesheet.OvertimeHours,
		}
	}

	if input.KPIScore != nil {
		score := *input.KPIScore
		snap.Input.KPIScore = &score
		snap.Input.KPIApproved = true
	}

	for _, a := range input.Adjustments {
		snap.Input.Adjustments = append(snap.Input.Adjustments, AdjustmentSnapshot{
			ID: a.ID, Kind: a.Kind, Amount: a.Amount, Taxable: a.Taxable, Reason: a.Reason,
		})
	}

	return snap
}

// Marshal serializes the snapshot for storage on the slip row.
func (s Snapshot) Marshal() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(b), nil
}

// ParseSnapshot reads a stored snapshot back.
func ParseSnapshot(doc string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return s, nil
}

// ReplayConfig rebuilds the engine tables from a snapshot's embedded
// documents. Lets an auditor recompute a historical slip exactly as it
// was, regardless of what config versions are active today.
func (s Snapshot) ReplayConfig() (Config, error) {
	tax, err := factory.TaxTableFromJSON(s.Config.Tax)
	if err != nil {
		return Config{}, err
	}
	grades, err := factory.GradeTableFromJSON(s.Config.Grades)
	if err != nil {
		return Config{}, err
	}
	commission, err := factory.CommissionFromJSON(s.Config.Commission)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Versions:   s.ConfigVersions,
		Tax:        tax,
		Insurance:  factory.InsuranceFromJSON(s.Config.Insurance),
		Grades:     grades,
		Commission: commission,
		Documents:  s.Config,
	}, nil
}

// ReplayInput rebuilds a CalcInput from the snapshot for audit recompute.
func (s Snapshot) ReplayInput(companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (CalcInput, error) {
	cfg, err := s.ReplayConfig()
	if err != nil {
		return CalcInput{}, err
	}

	contract := hrm.Contract{
		ID:                 s.Input.ContractID,
		CompanyID:          companyID,
		EmployeeID:         employeeID,
		BaseSalary:         s.Input.BaseSalary,
		InsuranceSalary:    s.Input.InsuranceSalary,
		KPIBonusBase:       s.Input.KPIBonusBase,
		CommissionEligible: s.Input.CommissionEligible,
		StandardWorkdays:   s.Input.StandardWorkdays,
		OvertimeMultiplier: s.Input.OvertimeMultiplier,
		HoursPerDay:        s.Input.HoursPerDay,
	}
	for _, a := range s.Input.Allowances {
		contract.Allowances = append(contract.Allowances, hrm.ContractAllowance{
			Code: a.Code, Label: a.Label, Amount: a.Amount, Taxable: a.Taxable,
		})
	}

	input := CalcInput{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Month:      month,
		Contract:   contract,
		Revenue:    s.Input.Revenue,
		Dependents: s.Input.Dependents,
		Config:     cfg,
	}

	if s.Input.Timesheet != nil {
		input.Timesheet = &hrm.Timesheet{
			CompanyID:       companyID,
			EmployeeID:      employeeID,
			Month:           month,
			StandardDays:    s.Input.Timesheet.StandardDays,
			PaidDays:        s.Input.Timesheet.PaidDays,
			UnpaidLeaveDays: s.Input.Timesheet.UnpaidLeaveDays,
			OvertimeHours:   s.Input.Timesheet.OvertimeHours,
		}
	}
	if s.Input.KPIScore != nil {
		score := *s.Input.KPIScore
		input.KPIScore = &score
	}
	for _, a := range s.Input.Adjustments {
		input.Adjustments = append(input.Adjustments, Adjustment{
			ID: a.ID, CompanyID: companyID, EmployeeID: employeeID, Month: month,
			Kind: a.Kind, Amount: a.Amount, Taxable: a.Taxable, Reason: a.Reason,
		})
	}

	return input, nil
}
