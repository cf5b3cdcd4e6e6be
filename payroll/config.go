/*
config.go - The versioned configuration bundle a slip is computed against

PURPOSE:
  Bundles the four engine tables with the version numbers of the documents
  they were parsed from. The Recalculator fetches the ACTIVE bundle once
  per run; the Calculator records the versions and the raw documents into
  every slip's snapshot. Config edits create new versions - they never
  mutate existing ones, which is what keeps old slips reproducible.
*/
package payroll

import (
	"context"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/hrm"
)

// Config is the active payroll configuration for one tenant.
type Config struct {
	Versions ConfigVersions

	Tax        engine.TaxTable
	Insurance  engine.InsuranceScheme
	Grades     engine.GradeTable
	Commission engine.CommissionTable

	// Raw documents, embedded verbatim into slip snapshots.
	Documents factory.PayrollConfigJSON
}

// ConfigVersions records which document version each table came from.
type ConfigVersions struct {
	Tax        int `json:"tax"`
	Insurance  int `json:"insurance"`
	Grades     int `json:"grades"`
	Commission int `json:"commission"`
}

// Validate checks every table is usable. Insurance has no structural
// invariant beyond non-negative rates, which parsing already guarantees.
func (c Config) Validate() error {
	if err := c.Tax.Validate(); err != nil {
		return err
	}
	if err := c.Grades.Validate(); err != nil {
		return err
	}
	return c.Commission.Validate()
}

// ConfigProvider yields the active config bundle for a tenant.
// Implemented by store/sqlite from the versioned config rows.
type ConfigProvider interface {
	// ActiveConfig returns ErrNoActiveConfig when any of the four
	// documents is missing for the tenant.
	ActiveConfig(ctx context.Context, companyID hrm.CompanyID) (*Config, error)
}
