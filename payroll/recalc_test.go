package payroll_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSlipStore struct {
	mu    sync.Mutex
	slips map[string]payroll.Slip // employeeID/month
	saves int
}

func newFakeSlipStore() *fakeSlipStore {
	return &fakeSlipStore{slips: make(map[string]payroll.Slip)}
}

func slipKey(employeeID hrm.EmployeeID, month engine.Month) string {
	return string(employeeID) + "/" + month.String()
}

func (s *fakeSlipStore) SaveSlip(_ context.Context, slip payroll.Slip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slips[slipKey(slip.EmployeeID, slip.Month)] = slip
	s.saves++
	return nil
}

func (s *fakeSlipStore) GetSlip(_ context.Context, _ hrm.CompanyID, id string) (*payroll.Slip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slip := range s.slips {
		if slip.ID == id {
			return &slip, nil
		}
	}
	return nil, payroll.ErrSlipNotFound
}

func (s *fakeSlipStore) GetSlipByEmployee(_ context.Context, _ hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*payroll.Slip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slip, ok := s.slips[slipKey(employeeID, month)]
	if !ok {
		return nil, nil
	}
	return &slip, nil
}

func (s *fakeSlipStore) ListSlips(_ context.Context, _ hrm.CompanyID, month engine.Month) ([]payroll.Slip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payroll.Slip
	for _, slip := range s.slips {
		if slip.Month.Equal(month) {
			out = append(out, slip)
		}
	}
	return out, nil
}

func (s *fakeSlipStore) MarkSlipsFinalized(_ context.Context, _ hrm.CompanyID, month engine.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, slip := range s.slips {
		if slip.Month.Equal(month) {
			slip.Status = payroll.SlipFinalized
			s.slips[k] = slip
		}
	}
	return nil
}

func (s *fakeSlipStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// fakeLoader serves canned inputs and delegates periods to a fakePeriodStore.
type fakeLoader struct {
	periods   *fakePeriodStore
	employees []hrm.EmployeeID

	mu     sync.Mutex
	inputs map[hrm.EmployeeID]payroll.CalcInput
	errs   map[hrm.EmployeeID]error
}

func newFakeLoader(periods *fakePeriodStore) *fakeLoader {
	return &fakeLoader{
		periods: periods,
		inputs:  make(map[hrm.EmployeeID]payroll.CalcInput),
		errs:    make(map[hrm.EmployeeID]error),
	}
}

func (l *fakeLoader) LoadPeriod(ctx context.Context, companyID hrm.CompanyID, month engine.Month) (*payroll.Period, error) {
	return l.periods.GetPeriod(ctx, companyID, month)
}

func (l *fakeLoader) ListEligibleEmployees(_ context.Context, _ hrm.CompanyID, _ engine.Month) ([]hrm.EmployeeID, error) {
	return l.employees, nil
}

func (l *fakeLoader) LoadInput(_ context.Context, _ hrm.CompanyID, employeeID hrm.EmployeeID, _ engine.Month) (*payroll.CalcInput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.errs[employeeID]; ok {
		return nil, err
	}
	input, ok := l.inputs[employeeID]
	if !ok {
		return nil, payroll.ErrNoActiveContract
	}
	return &input, nil
}

func (l *fakeLoader) setInput(employeeID hrm.EmployeeID, input payroll.CalcInput) {
	l.mu.Lock()
	defer l.mu.Unlock()
	input.EmployeeID = employeeID
	l.inputs[employeeID] = input
}

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRecalculator(t *testing.T) (*payroll.Recalculator, *fakeLoader, *fakeSlipStore, *fakePeriodStore) {
	t.Helper()
	periods := newFakePeriodStore()
	loader := newFakeLoader(periods)
	slips := newFakeSlipStore()

	r := payroll.NewRecalculator(loader, slips, periods, zap.NewNop(),
		payroll.RecalculatorConfig{Workers: 2})
	return r, loader, slips, periods
}

var july = engine.NewMonth(2026, time.July)

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

func TestRecalculator_ForceRecalculate_WholeMonth(t *testing.T) {
	// GIVEN: Three eligible employees, two with contracts
	// WHEN: Forcing a full-month recalculation
	// THEN: Two slips are computed; the contract-less employee is skipped
	//       silently, not treated as a failure

	r, loader, slips, _ := newTestRecalculator(t)
	loader.employees = []hrm.EmployeeID{"emp-1", "emp-2", "emp-3"}
	loader.setInput("emp-1", testInput(t))
	loader.setInput("emp-2", testInput(t))

	require.NoError(t, r.ForceRecalculate(context.Background(), "co-1", july))

	stored, err := slips.ListSlips(context.Background(), "co-1", july)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRecalculator_ForceRecalculate_RefreshesTotals(t *testing.T) {
	// GIVEN: An open period and two computable employees
	// WHEN: Recalculating
	// THEN: The period row carries totals re-derived from the stored slips

	r, loader, slips, periods := newTestRecalculator(t)
	ctx := context.Background()

	require.NoError(t, periods.SavePeriod(ctx, payroll.Period{
		ID: "p-1", CompanyID: "co-1", Month: july, Status: payroll.PeriodOpen,
	}))
	loader.employees = []hrm.EmployeeID{"emp-1", "emp-2"}
	loader.setInput("emp-1", testInput(t))
	loader.setInput("emp-2", testInput(t))

	require.NoError(t, r.ForceRecalculate(ctx, "co-1", july))

	p, err := periods.GetPeriod(ctx, "co-1", july)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Totals.SlipCount)

	stored, _ := slips.ListSlips(ctx, "co-1", july)
	wantGross := stored[0].Gross.Add(stored[1].Gross)
	assert.Equal(t, wantGross.String(), p.Totals.TotalGross.String())
	wantTax := stored[0].IncomeTax.Add(stored[1].IncomeTax)
	assert.Equal(t, wantTax.String(), p.Totals.TotalTax.String())
}

func TestRecalculator_FinalizedPeriodDropsInvalidations(t *testing.T) {
	// GIVEN: A finalized period
	// WHEN: Something invalidates the month
	// THEN: Nothing recomputes; finalized slips are immutable

	r, loader, slips, periods := newTestRecalculator(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, periods.SavePeriod(ctx, payroll.Period{
		ID: "p-1", CompanyID: "co-1", Month: july,
		Status: payroll.PeriodFinalized, FinalizedAt: &now,
	}))
	loader.employees = []hrm.EmployeeID{"emp-1"}
	loader.setInput("emp-1", testInput(t))

	require.NoError(t, r.ForceRecalculate(ctx, "co-1", july))
	assert.Equal(t, 0, slips.saveCount())
}

func TestRecalculator_LockedPeriodStillRecomputes(t *testing.T) {
	// The lock stops source input; slips keep recomputing so the
	// accountant reviews live numbers

	r, loader, slips, periods := newTestRecalculator(t)
	ctx := context.Background()

	require.NoError(t, periods.SavePeriod(ctx, payroll.Period{
		ID: "p-1", CompanyID: "co-1", Month: july, Status: payroll.PeriodLocked,
	}))
	loader.employees = []hrm.EmployeeID{"emp-1"}
	loader.setInput("emp-1", testInput(t))

	require.NoError(t, r.ForceRecalculate(ctx, "co-1", july))
	assert.Equal(t, 1, slips.saveCount())
}

func TestRecalculator_BadSlipDoesNotPoisonRun(t *testing.T) {
	// GIVEN: One employee with a corrupt timesheet, one healthy
	// WHEN: Recalculating the month
	// THEN: The healthy slip lands; the bad one is logged and skipped

	r, loader, slips, _ := newTestRecalculator(t)
	loader.employees = []hrm.EmployeeID{"emp-bad", "emp-good"}

	bad := testInput(t)
	bad.Timesheet.PaidDays = decimal.NewFromInt(99)
	loader.setInput("emp-bad", bad)
	loader.setInput("emp-good", testInput(t))

	require.NoError(t, r.ForceRecalculate(context.Background(), "co-1", july))

	good, err := slips.GetSlipByEmployee(context.Background(), "co-1", "emp-good", july)
	require.NoError(t, err)
	assert.NotNil(t, good)
	missing, err := slips.GetSlipByEmployee(context.Background(), "co-1", "emp-bad", july)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecalculator_NoActiveConfigSkips(t *testing.T) {
	r, loader, slips, _ := newTestRecalculator(t)
	loader.employees = []hrm.EmployeeID{"emp-1"}
	loader.errs["emp-1"] = payroll.ErrNoActiveConfig

	require.NoError(t, r.ForceRecalculate(context.Background(), "co-1", july))
	assert.Equal(t, 0, slips.saveCount())
}

// =============================================================================
// ASYNC LOOP
// =============================================================================

func TestRecalculator_InvalidateTriggersRun(t *testing.T) {
	// GIVEN: The loop running with no debounce
	// WHEN: A targeted invalidation arrives
	// THEN: Only the marked employee recomputes

	r, loader, slips, _ := newTestRecalculator(t)
	loader.employees = []hrm.EmployeeID{"emp-1", "emp-2"}
	loader.setInput("emp-1", testInput(t))
	loader.setInput("emp-2", testInput(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	r.Invalidate("co-1", july, "emp-1")

	assert.Eventually(t, func() bool {
		slip, _ := slips.GetSlipByEmployee(context.Background(), "co-1", "emp-1", july)
		return slip != nil
	}, 2*time.Second, 10*time.Millisecond)

	slip, _ := slips.GetSlipByEmployee(context.Background(), "co-1", "emp-2", july)
	assert.Nil(t, slip, "unmarked employee must not recompute")

	cancel()
	<-done
}

func TestRecalculator_WholeMonthInvalidation(t *testing.T) {
	// An invalidation with no employee list marks every eligible employee

	r, loader, slips, _ := newTestRecalculator(t)
	loader.employees = []hrm.EmployeeID{"emp-1", "emp-2"}
	loader.setInput("emp-1", testInput(t))
	loader.setInput("emp-2", testInput(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	r.Invalidate("co-1", july)

	assert.Eventually(t, func() bool {
		stored, _ := slips.ListSlips(context.Background(), "co-1", july)
		return len(stored) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
