/*
recalc.go - Asynchronous recalculation pipeline

PURPOSE:
  Payroll inputs trickle in out of order: a timesheet correction, a late
  KPI approval, a config version bump. Rather than recomputing slips
  inline with every write, callers mark the affected employee months
  dirty and the Recalculator recomputes them in the background.

FLOW:
  1. A write handler calls Invalidate(company, month, employees...)
  2. The mark lands in the dirty set and pokes the run loop
  3. After a short debounce (bursts of writes coalesce into one run) the
     loop drains the dirty set and recomputes each affected slip
  4. Period totals are refreshed from the recomputed slips

GUARANTEES:
  - Marks arriving mid-run are kept for the next run, never lost
  - Finalized periods drop their invalidations; locked periods still
    recompute (the lock stops INPUT, not computation)
  - Workers are bounded; one slow tenant cannot starve the loop
*/
package payroll

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// SourceLoader gathers the live inputs a recomputation reads.
// Implemented by store/sqlite.
type SourceLoader interface {
	// LoadPeriod returns nil when no period row exists for the month.
	LoadPeriod(ctx context.Context, companyID hrm.CompanyID, month engine.Month) (*Period, error)

	// ListEligibleEmployees returns the employees payable in the month.
	ListEligibleEmployees(ctx context.Context, companyID hrm.CompanyID, month engine.Month) ([]hrm.EmployeeID, error)

	// LoadInput assembles the full CalcInput for one employee month.
	// Returns ErrNoActiveContract when no contract governs the month and
	// ErrNoActiveConfig when the tenant has no usable config.
	LoadInput(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) (*CalcInput, error)
}

// =============================================================================
// RECALCULATOR
// =============================================================================

type monthKey struct {
	companyID hrm.CompanyID
	month     engine.Month
}

// dirtyMark tracks which employees of a month need recomputation.
// all means every eligible employee (config change, period reopen).
type dirtyMark struct {
	all       bool
	employees map[hrm.EmployeeID]struct{}
}

type RecalculatorConfig struct {
	// Debounce is how long the loop waits after a mark before running,
	// so bursts of writes coalesce. Zero means run immediately.
	Debounce time.Duration

	// Workers bounds concurrent slip computations per run.
	Workers int
}

type Recalculator struct {
	loader  SourceLoader
	slips   SlipStore
	periods PeriodStore
	calc    Calculator
	log     *zap.Logger
	cfg     RecalculatorConfig

	mu     sync.Mutex
	dirty  map[monthKey]*dirtyMark
	notify chan struct{}

	now func() time.Time
}

func NewRecalculator(loader SourceLoader, slips SlipStore, periods PeriodStore, log *zap.Logger, cfg RecalculatorConfig) *Recalculator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Recalculator{
		loader:  loader,
		slips:   slips,
		periods: periods,
		log:     log,
		cfg:     cfg,
		dirty:   make(map[monthKey]*dirtyMark),
		notify:  make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Invalidate marks employee months dirty. An empty employee list marks
// the whole month (every eligible employee). Safe from any goroutine.
func (r *Recalculator) Invalidate(companyID hrm.CompanyID, month engine.Month, employees ...hrm.EmployeeID) {
	key := monthKey{companyID: companyID, month: month}

	r.mu.Lock()
	mark, ok := r.dirty[key]
	if !ok {
		mark = &dirtyMark{employees: make(map[hrm.EmployeeID]struct{})}
		r.dirty[key] = mark
	}
	if len(employees) == 0 {
		mark.all = true
	} else if !mark.all {
		for _, id := range employees {
			mark.employees[id] = struct{}{}
		}
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run is the recalculation loop. Blocks until ctx is cancelled; any
// still-dirty months are left unprocessed (they are re-marked on the
// next write after restart anyway, and ForceRecalculate covers gaps).
func (r *Recalculator) Run(ctx context.Context) {
	r.log.Info("recalculator started",
		zap.Duration("debounce", r.cfg.Debounce),
		zap.Int("workers", r.cfg.Workers))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("recalculator stopped")
			return
		case <-r.notify:
		}

		if r.cfg.Debounce > 0 {
			timer := time.NewTimer(r.cfg.Debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				r.log.Info("recalculator stopped")
				return
			case <-timer.C:
			}
		}

		for key, mark := range r.drain() {
			if err := r.recalculateMonth(ctx, key, mark); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				r.log.Error("recalculation run failed",
					zap.String("company_id", string(key.companyID)),
					zap.String("month", key.month.String()),
					zap.Error(err))
			}
		}
	}
}

// drain swaps out the dirty set. Marks arriving after the swap land in
// the fresh map and trigger the next run.
func (r *Recalculator) drain() map[monthKey]*dirtyMark {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.dirty
	r.dirty = make(map[monthKey]*dirtyMark)
	return out
}

// ForceRecalculate recomputes a whole month synchronously. Used by the
// explicit recalculate endpoint and by period lifecycle transitions.
func (r *Recalculator) ForceRecalculate(ctx context.Context, companyID hrm.CompanyID, month engine.Month) error {
	key := monthKey{companyID: companyID, month: month}
	return r.recalculateMonth(ctx, key, &dirtyMark{all: true})
}

// =============================================================================
// ONE RUN
// =============================================================================

func (r *Recalculator) recalculateMonth(ctx context.Context, key monthKey, mark *dirtyMark) error {
	period, err := r.loader.LoadPeriod(ctx, key.companyID, key.month)
	if err != nil {
		return err
	}
	if period != nil && period.AcceptsRecalc() != nil {
		// Finalized months are immutable; the mark is dropped.
		r.log.Warn("dropping invalidation for finalized period",
			zap.String("company_id", string(key.companyID)),
			zap.String("month", key.month.String()))
		return nil
	}

	var employees []hrm.EmployeeID
	if mark.all {
		employees, err = r.loader.ListEligibleEmployees(ctx, key.companyID, key.month)
		if err != nil {
			return err
		}
	} else {
		for id := range mark.employees {
			employees = append(employees, id)
		}
	}

	started := r.now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, employeeID := range employees {
		employeeID := employeeID
		g.Go(func() error {
			return r.recalculateSlip(gctx, key.companyID, employeeID, key.month)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if period != nil {
		if err := r.refreshTotals(ctx, period); err != nil {
			return err
		}
	}

	r.log.Info("recalculation run complete",
		zap.String("company_id", string(key.companyID)),
		zap.String("month", key.month.String()),
		zap.Int("employees", len(employees)),
		zap.Duration("took", r.now().Sub(started)))
	return nil
}

func (r *Recalculator) recalculateSlip(ctx context.Context, companyID hrm.CompanyID, employeeID hrm.EmployeeID, month engine.Month) error {
	input, err := r.loader.LoadInput(ctx, companyID, employeeID, month)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveContract):
			// Not an error: the employee has no pay agreement this month.
			return nil
		case errors.Is(err, ErrNoActiveConfig):
			r.log.Warn("skipping recalculation, tenant has no active config",
				zap.String("company_id", string(companyID)))
			return nil
		}
		return err
	}

	slip, err := r.calc.Compute(*input, r.now())
	if err != nil {
		// A bad timesheet or config poisons one slip, not the whole run.
		r.log.Error("slip computation failed",
			zap.String("company_id", string(companyID)),
			zap.String("employee_id", string(employeeID)),
			zap.String("month", month.String()),
			zap.Error(err))
		return nil
	}
	return r.slips.SaveSlip(ctx, *slip)
}

// refreshTotals re-derives the period totals from the stored slips.
func (r *Recalculator) refreshTotals(ctx context.Context, period *Period) error {
	slips, err := r.slips.ListSlips(ctx, period.CompanyID, period.Month)
	if err != nil {
		return err
	}

	totals := PeriodTotals{
		SlipCount:         len(slips),
		TotalGross:        engine.Zero(),
		TotalNet:          engine.Zero(),
		TotalEmployerCost: engine.Zero(),
		TotalTax:          engine.Zero(),
	}
	for _, s := range slips {
		totals.TotalGross = totals.TotalGross.Add(s.Gross)
		totals.TotalNet = totals.TotalNet.Add(s.Net)
		totals.TotalEmployerCost = totals.TotalEmployerCost.Add(s.EmployerCost)
		totals.TotalTax = totals.TotalTax.Add(s.IncomeTax)
	}

	period.Totals = totals
	return r.periods.SavePeriod(ctx, *period)
}
