/*
insurance.go - Statutory insurance contributions

PURPOSE:
  Computes mandatory insurance contributions (social, health, unemployment)
  for both sides of the employment relationship. Rates apply to the
  contract's insurance salary, capped at a statutory maximum base.

CAP SEMANTICS:
  contribution base = min(insurance salary, BaseCap)
  A zero BaseCap means uncapped. Each line is rounded independently, so the
  slip's printed lines always sum to the printed totals.
*/
package engine

// InsuranceScheme holds the contribution rates in force for a tenant.
type InsuranceScheme struct {
	// Cap on the contribution base. Zero = uncapped.
	BaseCap Money

	Social       ContributionRate
	Health       ContributionRate
	Unemployment ContributionRate
}

// ContributionRate is a pair of rates, one per side.
type ContributionRate struct {
	Employee Rate
	Employer Rate
}

// InsuranceResult is the computed contribution breakdown.
type InsuranceResult struct {
	Base Money

	EmployeeSocial       Money
	EmployeeHealth       Money
	EmployeeUnemployment Money

	EmployerSocial       Money
	EmployerHealth       Money
	EmployerUnemployment Money
}

func (r InsuranceResult) EmployeeTotal() Money {
	return r.EmployeeSocial.Add(r.EmployeeHealth).Add(r.EmployeeUnemployment)
}

func (r InsuranceResult) EmployerTotal() Money {
	return r.EmployerSocial.Add(r.EmployerHealth).Add(r.EmployerUnemployment)
}

// Compute applies the scheme to an insurance salary.
func (s InsuranceScheme) Compute(insuranceSalary Money) InsuranceResult {
	base := insuranceSalary.FloorZero()
	if s.BaseCap.IsPositive() {
		base = base.Min(s.BaseCap)
	}

	return InsuranceResult{
		Base:                 base,
		EmployeeSocial:       s.Social.Employee.ApplyTo(base).Round(),
		EmployeeHealth:       s.Health.Employee.ApplyTo(base).Round(),
		EmployeeUnemployment: s.Unemployment.Employee.ApplyTo(base).Round(),
		EmployerSocial:       s.Social.Employer.ApplyTo(base).Round(),
		EmployerHealth:       s.Health.Employer.ApplyTo(base).Round(),
		EmployerUnemployment: s.Unemployment.Employer.ApplyTo(base).Round(),
	}
}
