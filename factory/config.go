/*
Package factory provides JSON to Go payroll-config conversion.

PURPOSE:
  Converts JSON configuration documents into engine tables (TaxTable,
  InsuranceScheme, GradeTable, CommissionTable). This enables config
  changes without code changes - payroll admins define rate tables in
  JSON, the factory builds the proper Go structs, and each new document
  becomes a new immutable config version.

WHY JSON?
  - Non-developers can author rate tables
  - Database storage of versioned configs
  - Slip snapshots embed the exact document the calculation used

JSON SCHEMAS:
  Tax table:
    {
      "personal_deduction": 11000000,
      "dependent_deduction": 4400000,
      "brackets": [
        {"up_to": 5000000, "rate_percent": 5},
        {"up_to": 10000000, "rate_percent": 10},
        {"rate_percent": 15}
      ]
    }

  Insurance scheme:
    {
      "base_cap": 36000000,
      "social":       {"employee_percent": 8,   "employer_percent": 17.5},
      "health":       {"employee_percent": 1.5, "employer_percent": 3},
      "unemployment": {"employee_percent": 1,   "employer_percent": 1}
    }

  Grade table:
    {"tiers": [
      {"grade": "C", "min_score": 50, "multiplier": 0.5},
      {"grade": "B", "min_score": 70, "multiplier": 1.0},
      {"grade": "A", "min_score": 90, "multiplier": 1.5}
    ]}

  Commission table:
    {"tiers": [
      {"min_revenue": 0,         "rate_percent": 1},
      {"min_revenue": 100000000, "rate_percent": 2}
    ]}

Every Parse* validates the resulting table, so an invalid document is
rejected at config-save time, never at calculation time.
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigKind names the four versioned config documents.
type ConfigKind string

const (
	KindTaxTable        ConfigKind = "tax_table"
	KindInsurance       ConfigKind = "insurance"
	KindGradeTable      ConfigKind = "kpi_grades"
	KindCommissionTable ConfigKind = "commission"
)

// TaxTableJSON is the JSON form of engine.TaxTable.
type TaxTableJSON struct {
	PersonalDeduction  float64       `json:"personal_deduction"`
	DependentDeduction float64       `json:"dependent_deduction"`
	Brackets           []BracketJSON `json:"brackets"`
}

// BracketJSON is one marginal band. Omitting up_to makes it unbounded.
type BracketJSON struct {
	UpTo        *float64 `json:"up_to,omitempty"`
	RatePercent float64  `json:"rate_percent"`
}

// InsuranceJSON is the JSON form of engine.InsuranceScheme.
type InsuranceJSON struct {
	BaseCap      float64      `json:"base_cap,omitempty"`
	Social       SideRateJSON `json:"social"`
	Health       SideRateJSON `json:"health"`
	Unemployment SideRateJSON `json:"unemployment"`
}

type SideRateJSON struct {
	EmployeePercent float64 `json:"employee_percent"`
	EmployerPercent float64 `json:"employer_percent"`
}

// GradeTableJSON is the JSON form of engine.GradeTable.
type GradeTableJSON struct {
	Tiers []GradeTierJSON `json:"tiers"`
}

type GradeTierJSON struct {
	Grade      string  `json:"grade"`
	MinScore   float64 `json:"min_score"`
	Multiplier float64 `json:"multiplier"`
}

// CommissionJSON is the JSON form of engine.CommissionTable.
type CommissionJSON struct {
	Tiers []CommissionTierJSON `json:"tiers"`
}

type CommissionTierJSON struct {
	MinRevenue  float64 `json:"min_revenue"`
	RatePercent float64 `json:"rate_percent"`
}

// PayrollConfigJSON bundles all four documents. Slip snapshots embed one of
// these so the slip records exactly which rates it was computed with.
type PayrollConfigJSON struct {
	Tax        TaxTableJSON   `json:"tax"`
	Insurance  InsuranceJSON  `json:"insurance"`
	Grades     GradeTableJSON `json:"grades"`
	Commission CommissionJSON `json:"commission"`
}

// =============================================================================
// PARSING - JSON document -> engine table
// =============================================================================

func ParseTaxTable(doc string) (engine.TaxTable, TaxTableJSON, error) {
	var j TaxTableJSON
	if err := json.Unmarshal([]byte(doc), &j); err != nil {
		return engine.TaxTable{}, j, fmt.Errorf("invalid tax table document: %w", err)
	}
	table, err := TaxTableFromJSON(j)
	return table, j, err
}

func TaxTableFromJSON(j TaxTableJSON) (engine.TaxTable, error) {
	table := engine.TaxTable{
		PersonalDeduction:  engine.NewMoney(j.PersonalDeduction),
		DependentDeduction: engine.NewMoney(j.DependentDeduction),
	}
	for _, b := range j.Brackets {
		bracket := engine.TaxBracket{Rate: engine.RateFromPercent(b.RatePercent)}
		if b.UpTo != nil {
			upTo := engine.NewMoney(*b.UpTo)
			bracket.UpTo = &upTo
		}
		table.Brackets = append(table.Brackets, bracket)
	}
	if err := table.Validate(); err != nil {
		return engine.TaxTable{}, err
	}
	return table, nil
}

func ParseInsurance(doc string) (engine.InsuranceScheme, InsuranceJSON, error) {
	var j InsuranceJSON
	if err := json.Unmarshal([]byte(doc), &j); err != nil {
		return engine.InsuranceScheme{}, j, fmt.Errorf("invalid insurance document: %w", err)
	}
	return InsuranceFromJSON(j), j, nil
}

func InsuranceFromJSON(j InsuranceJSON) engine.InsuranceScheme {
	side := func(s SideRateJSON) engine.ContributionRate {
		return engine.ContributionRate{
			Employee: engine.RateFromPercent(s.EmployeePercent),
			Employer: engine.RateFromPercent(s.EmployerPercent),
		}
	}
	return engine.InsuranceScheme{
		BaseCap:      engine.NewMoney(j.BaseCap),
		Social:       side(j.Social),
		Health:       side(j.Health),
		Unemployment: side(j.Unemployment),
	}
}

func ParseGradeTable(doc string) (engine.GradeTable, GradeTableJSON, error) {
	var j GradeTableJSON
	if err := json.Unmarshal([]byte(doc), &j); err != nil {
		return engine.GradeTable{}, j, fmt.Errorf("invalid grade table document: %w", err)
	}
	table, err := GradeTableFromJSON(j)
	return table, j, err
}

func GradeTableFromJSON(j GradeTableJSON) (engine.GradeTable, error) {
	var table engine.GradeTable
	for _, t := range j.Tiers {
		table.Tiers = append(table.Tiers, engine.GradeTier{
			Grade:      t.Grade,
			MinScore:   decimal.NewFromFloat(t.MinScore),
			Multiplier: decimal.NewFromFloat(t.Multiplier),
		})
	}
	if err := table.Validate(); err != nil {
		return engine.GradeTable{}, err
	}
	return table, nil
}

func ParseCommission(doc string) (engine.CommissionTable, CommissionJSON, error) {
	var j CommissionJSON
	if err := json.Unmarshal([]byte(doc), &j); err != nil {
		return engine.CommissionTable{}, j, fmt.Errorf("invalid commission document: %w", err)
	}
	table, err := CommissionFromJSON(j)
	return table, j, err
}

func CommissionFromJSON(j CommissionJSON) (engine.CommissionTable, error) {
	var table engine.CommissionTable
	for _, t := range j.Tiers {
		table.Tiers = append(table.Tiers, engine.CommissionTier{
			MinRevenue: engine.NewMoney(t.MinRevenue),
			Rate:       engine.RateFromPercent(t.RatePercent),
		})
	}
	if err := table.Validate(); err != nil {
		return engine.CommissionTable{}, err
	}
	return table, nil
}

// ValidateDocument parses a document of the given kind, returning an error
// if it would not produce a usable table. Used at config-save time.
func ValidateDocument(kind ConfigKind, doc string) error {
	var err error
	switch kind {
	case KindTaxTable:
		_, _, err = ParseTaxTable(doc)
	case KindInsurance:
		_, _, err = ParseInsurance(doc)
	case KindGradeTable:
		_, _, err = ParseGradeTable(doc)
	case KindCommissionTable:
		_, _, err = ParseCommission(doc)
	default:
		err = fmt.Errorf("unknown config kind %q", kind)
	}
	return err
}
