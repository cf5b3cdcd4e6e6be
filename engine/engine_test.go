package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(v int64) engine.Money { return engine.NewMoneyFromInt(v) }

func moneyPtr(v int64) *engine.Money {
	m := money(v)
	return &m
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func standardTaxTable() engine.TaxTable {
	return engine.TaxTable{
		PersonalDeduction:  money(11_000_000),
		DependentDeduction: money(4_400_000),
		Brackets: []engine.TaxBracket{
			{UpTo: moneyPtr(5_000_000), Rate: engine.RateFromPercent(5)},
			{UpTo: moneyPtr(10_000_000), Rate: engine.RateFromPercent(10)},
			{UpTo: nil, Rate: engine.RateFromPercent(15)},
		},
	}
}

// =============================================================================
// PROGRESSIVE TAX TESTS
// =============================================================================

func TestTaxTable_Compute_MarginalRates(t *testing.T) {
	// GIVEN: A three-bracket schedule (5% to 5m, 10% to 10m, 15% above)
	// WHEN: Taxing 12m of taxable income
	// THEN: Each slice is taxed at its own rate:
	//       5m*5% + 5m*10% + 2m*15% = 250k + 500k + 300k = 1,050,000

	table := standardTaxTable()

	tax, err := table.Compute(money(12_000_000))
	require.NoError(t, err)
	assert.True(t, tax.Value.Equal(dec(1_050_000)), "got %s", tax)
}

func TestTaxTable_Compute_WithinFirstBracket(t *testing.T) {
	// GIVEN: Taxable income entirely inside the lowest band
	// WHEN: Computing tax on 3m
	// THEN: Only the 5% rate applies: 150,000

	table := standardTaxTable()

	tax, err := table.Compute(money(3_000_000))
	require.NoError(t, err)
	assert.True(t, tax.Value.Equal(dec(150_000)), "got %s", tax)
}

func TestTaxTable_Compute_ExactBracketBoundary(t *testing.T) {
	// GIVEN: Taxable income exactly at an inclusive upper bound
	// WHEN: Computing tax on exactly 5m
	// THEN: The whole amount stays in the first band: 250,000

	table := standardTaxTable()

	tax, err := table.Compute(money(5_000_000))
	require.NoError(t, err)
	assert.True(t, tax.Value.Equal(dec(250_000)), "got %s", tax)
}

func TestTaxTable_Compute_ZeroAndNegative(t *testing.T) {
	table := standardTaxTable()

	tax, err := table.Compute(engine.Zero())
	require.NoError(t, err)
	assert.True(t, tax.IsZero())

	tax, err = table.Compute(money(-500))
	require.NoError(t, err)
	assert.True(t, tax.IsZero(), "negative base must tax to zero")
}

func TestTaxTable_TaxableBase_FlooredAtZero(t *testing.T) {
	// GIVEN: Gross below the personal + dependent deductions
	// WHEN: Deriving the taxable base with two dependents
	// THEN: The base floors at zero, never negative

	table := standardTaxTable()

	base := table.TaxableBase(money(8_000_000), money(840_000), engine.Zero(), 2)
	assert.True(t, base.IsZero(), "got %s", base)
}

func TestTaxTable_TaxableBase_Deductions(t *testing.T) {
	// 30m gross - 2m insurance - 1m non-taxable - 11m personal - 4.4m dependent
	table := standardTaxTable()

	base := table.TaxableBase(money(30_000_000), money(2_000_000), money(1_000_000), 1)
	assert.True(t, base.Value.Equal(dec(11_600_000)), "got %s", base)
}

func TestTaxTable_Validate_RejectsBadShapes(t *testing.T) {
	// Empty table
	err := engine.TaxTable{}.Validate()
	assert.ErrorIs(t, err, engine.ErrEmptyRateTable)

	// Final bracket bounded: top income would escape tax
	bounded := engine.TaxTable{Brackets: []engine.TaxBracket{
		{UpTo: moneyPtr(5_000_000), Rate: engine.RateFromPercent(5)},
	}}
	assert.ErrorIs(t, bounded.Validate(), engine.ErrUnboundedBracketMissing)

	// Bounds not ascending
	unordered := engine.TaxTable{Brackets: []engine.TaxBracket{
		{UpTo: moneyPtr(10_000_000), Rate: engine.RateFromPercent(5)},
		{UpTo: moneyPtr(5_000_000), Rate: engine.RateFromPercent(10)},
		{UpTo: nil, Rate: engine.RateFromPercent(15)},
	}}
	assert.ErrorIs(t, unordered.Validate(), engine.ErrUnorderedBrackets)

	// Unbounded bracket in the middle
	midOpen := engine.TaxTable{Brackets: []engine.TaxBracket{
		{UpTo: nil, Rate: engine.RateFromPercent(5)},
		{UpTo: moneyPtr(5_000_000), Rate: engine.RateFromPercent(10)},
	}}
	assert.ErrorIs(t, midOpen.Validate(), engine.ErrUnorderedBrackets)
}

func TestTaxTable_MarginalRate(t *testing.T) {
	table := standardTaxTable()

	assert.Equal(t, "0.05", table.MarginalRate(money(4_000_000)).String())
	assert.Equal(t, "0.1", table.MarginalRate(money(7_000_000)).String())
	assert.Equal(t, "0.15", table.MarginalRate(money(50_000_000)).String())
}

// =============================================================================
// INSURANCE CONTRIBUTION TESTS
// =============================================================================

func standardInsurance() engine.InsuranceScheme {
	return engine.InsuranceScheme{
		BaseCap:      money(36_000_000),
		Social:       engine.ContributionRate{Employee: engine.RateFromPercent(8), Employer: engine.RateFromPercent(17.5)},
		Health:       engine.ContributionRate{Employee: engine.RateFromPercent(1.5), Employer: engine.RateFromPercent(3)},
		Unemployment: engine.ContributionRate{Employee: engine.RateFromPercent(1), Employer: engine.RateFromPercent(1)},
	}
}

func TestInsuranceScheme_Compute_UnderCap(t *testing.T) {
	// GIVEN: Insurance salary below the statutory cap
	// WHEN: Computing contributions on 20m
	// THEN: Rates apply to the full salary

	res := standardInsurance().Compute(money(20_000_000))

	assert.True(t, res.Base.Value.Equal(dec(20_000_000)))
	assert.True(t, res.EmployeeSocial.Value.Equal(dec(1_600_000)))
	assert.True(t, res.EmployeeHealth.Value.Equal(dec(300_000)))
	assert.True(t, res.EmployeeUnemployment.Value.Equal(dec(200_000)))
	assert.True(t, res.EmployeeTotal().Value.Equal(dec(2_100_000)))
	assert.True(t, res.EmployerTotal().Value.Equal(dec(4_300_000)))
}

func TestInsuranceScheme_Compute_CappedBase(t *testing.T) {
	// GIVEN: Insurance salary above the cap
	// WHEN: Computing contributions on 50m against a 36m cap
	// THEN: The base clamps to the cap

	res := standardInsurance().Compute(money(50_000_000))

	assert.True(t, res.Base.Value.Equal(dec(36_000_000)))
	assert.True(t, res.EmployeeSocial.Value.Equal(dec(2_880_000)))
}

func TestInsuranceScheme_Compute_ZeroCapMeansUncapped(t *testing.T) {
	scheme := standardInsurance()
	scheme.BaseCap = engine.Zero()

	res := scheme.Compute(money(100_000_000))
	assert.True(t, res.Base.Value.Equal(dec(100_000_000)))
}

func TestInsuranceScheme_Compute_LinesRoundIndependently(t *testing.T) {
	// GIVEN: A base that produces fractional contribution lines
	// THEN: Each line carries currency precision on its own, so printed
	//       lines always sum to printed totals

	scheme := engine.InsuranceScheme{
		Social: engine.ContributionRate{Employee: engine.RateFromPercent(8)},
		Health: engine.ContributionRate{Employee: engine.RateFromPercent(1.5)},
	}

	res := scheme.Compute(engine.ParseMoney("1234567.89"))

	assert.Equal(t, "98765.43", res.EmployeeSocial.String())
	assert.Equal(t, "18518.52", res.EmployeeHealth.String())
	assert.Equal(t, res.EmployeeTotal().String(),
		res.EmployeeSocial.Add(res.EmployeeHealth).String())
}

// =============================================================================
// KPI GRADE TESTS
// =============================================================================

func standardGrades() engine.GradeTable {
	return engine.GradeTable{Tiers: []engine.GradeTier{
		{Grade: "C", MinScore: dec(50), Multiplier: dec(0.5)},
		{Grade: "B", MinScore: dec(70), Multiplier: dec(1.0)},
		{Grade: "A", MinScore: dec(90), Multiplier: dec(1.5)},
	}}
}

func TestGradeTable_Lookup_HighestTierReached(t *testing.T) {
	table := standardGrades()

	grade, mult := table.Lookup(dec(85))
	assert.Equal(t, "B", grade)
	assert.True(t, mult.Equal(dec(1.0)))

	grade, mult = table.Lookup(dec(90))
	assert.Equal(t, "A", grade, "boundary score reaches the tier")
	assert.True(t, mult.Equal(dec(1.5)))
}

func TestGradeTable_Lookup_BelowLowestTier(t *testing.T) {
	// GIVEN: A score below every tier
	// THEN: No grade and a zero multiplier - a failing month pays no bonus

	grade, mult := standardGrades().Lookup(dec(42))
	assert.Empty(t, grade)
	assert.True(t, mult.IsZero())
}

func TestGradeTable_Bonus(t *testing.T) {
	table := standardGrades()

	grade, bonus := table.Bonus(money(4_000_000), dec(92))
	assert.Equal(t, "A", grade)
	assert.True(t, bonus.Value.Equal(dec(6_000_000)))

	grade, bonus = table.Bonus(money(4_000_000), dec(30))
	assert.Empty(t, grade)
	assert.True(t, bonus.IsZero())
}

func TestGradeTable_Validate(t *testing.T) {
	assert.ErrorIs(t, engine.GradeTable{}.Validate(), engine.ErrEmptyRateTable)

	unordered := engine.GradeTable{Tiers: []engine.GradeTier{
		{Grade: "A", MinScore: dec(90)},
		{Grade: "B", MinScore: dec(70)},
	}}
	assert.ErrorIs(t, unordered.Validate(), engine.ErrUnorderedBrackets)
}

// =============================================================================
// COMMISSION TESTS
// =============================================================================

func standardCommission() engine.CommissionTable {
	return engine.CommissionTable{Tiers: []engine.CommissionTier{
		{MinRevenue: money(50_000_000), Rate: engine.RateFromPercent(1)},
		{MinRevenue: money(100_000_000), Rate: engine.RateFromPercent(2)},
		{MinRevenue: money(500_000_000), Rate: engine.RateFromPercent(3)},
	}}
}

func TestCommissionTable_Compute_FlatPerTier(t *testing.T) {
	// GIVEN: Tiered commission at 1%/2%/3%
	// WHEN: Revenue crosses the 100m threshold
	// THEN: The tier rate applies to the WHOLE revenue, not just the slice
	//       above the threshold (unlike the marginal tax schedule)

	table := standardCommission()

	got := table.Compute(money(120_000_000))
	assert.True(t, got.Value.Equal(dec(2_400_000)), "got %s", got)
}

func TestCommissionTable_Compute_ThresholdRepricesEverything(t *testing.T) {
	table := standardCommission()

	below := table.Compute(money(99_999_999))
	atTier := table.Compute(money(100_000_000))

	assert.True(t, below.Value.Equal(dec(999_999.99)), "got %s", below)
	assert.True(t, atTier.Value.Equal(dec(2_000_000)), "got %s", atTier)
	assert.True(t, atTier.GreaterThan(below.Add(below)), "crossing the tier doubles-plus the payout")
}

func TestCommissionTable_Compute_BelowLowestTier(t *testing.T) {
	got := standardCommission().Compute(money(10_000_000))
	assert.True(t, got.IsZero(), "revenue below the first tier earns nothing")
}

func TestCommissionTable_Compute_ZeroRevenue(t *testing.T) {
	assert.True(t, standardCommission().Compute(engine.Zero()).IsZero())
}

// =============================================================================
// MONEY AND MONTH TESTS
// =============================================================================

func TestMoney_RoundAndFloor(t *testing.T) {
	// Half-up at the .xx5 boundary, never banker's
	assert.Equal(t, "10.13", engine.ParseMoney("10.125").Round().String())
	assert.Equal(t, "10.14", engine.ParseMoney("10.135").Round().String())
	assert.Equal(t, "2.35", engine.ParseMoney("2.345").Round().String())
	assert.Equal(t, "2.34", engine.ParseMoney("2.344").Round().String())
	assert.True(t, money(-5).FloorZero().IsZero())
	assert.True(t, money(5).FloorZero().Value.Equal(dec(5)))
}

func TestMonth_ParseAndNavigate(t *testing.T) {
	m, err := engine.ParseMonth("2026-07")
	require.NoError(t, err)
	assert.Equal(t, "2026-07", m.String())
	assert.Equal(t, "2026-08", m.Next().String())
	assert.Equal(t, "2026-06", m.Previous().String())
	assert.True(t, m.Before(m.Next()))

	_, err = engine.ParseMonth("July 2026")
	assert.Error(t, err)
}

func TestMonth_Workdays(t *testing.T) {
	// July 2026 has 23 weekdays
	m, _ := engine.ParseMonth("2026-07")
	assert.Equal(t, 23, m.Workdays())
}
