/*
Package payroll implements the payroll computation pipeline: salary
periods, payroll slips, the deterministic slip calculator, config/data
snapshots and the asynchronous recalculation engine.

KEY CONCEPTS:
  - Period: one tenant's monthly payroll cycle. Carries the lifecycle
    (open -> locked -> finalized), the input deadline and the aggregate
    totals shown on payroll dashboards.
  - Slip: the per-employee computed result, with line items and a frozen
    snapshot of everything the calculation read.
  - Recalculator: reacts to source-data mutations by marking slips dirty
    and recomputing them in the background.

LIFECYCLE:
  open       source inputs accepted (until the deadline), slips recompute
  locked     inputs rejected, slips still recompute (accountant review)
  finalized  terminal; slips frozen, invalidations dropped

This file (period.go) holds the Period type, its transitions and the
input-deadline guard.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrPeriodNotFound is returned when a referenced period doesn't exist.
	ErrPeriodNotFound = errors.New("salary period not found")

	// ErrPeriodLocked is returned when a source-data write targets a
	// locked period.
	ErrPeriodLocked = errors.New("salary period is locked")

	// ErrPeriodFinalized is returned when anything tries to change a
	// finalized period or its slips.
	ErrPeriodFinalized = errors.New("salary period is finalized")

	// ErrPastDeadline is returned when a source-data write lands after
	// the period's input deadline.
	ErrPastDeadline = errors.New("input deadline has passed")

	// ErrBadTransition is returned on an illegal period status change.
	ErrBadTransition = errors.New("invalid period status transition")

	// ErrSlipNotFound is returned when a referenced slip doesn't exist.
	ErrSlipNotFound = errors.New("payroll slip not found")

	// ErrNoActiveContract is returned when slip computation finds no
	// contract governing the month.
	ErrNoActiveContract = errors.New("no active contract for month")

	// ErrNoActiveConfig is returned when a tenant has no active payroll
	// configuration version.
	ErrNoActiveConfig = errors.New("no active payroll config")
)

// IsInputRejected reports whether the error is a deadline/lock rejection,
// which the API maps to 409 rather than 500.
func IsInputRejected(err error) bool {
	return errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrPeriodFinalized) ||
		errors.Is(err, ErrPastDeadline)
}

// =============================================================================
// PERIOD
// =============================================================================

type PeriodStatus string

const (
	PeriodOpen      PeriodStatus = "open"
	PeriodLocked    PeriodStatus = "locked"
	PeriodFinalized PeriodStatus = "finalized"
)

// Period is one tenant's monthly payroll cycle.
type Period struct {
	ID        string
	CompanyID hrm.CompanyID
	Month     engine.Month
	Status    PeriodStatus

	// After this instant, source-data writes for the month are rejected
	// even while the period is still open. Zero = no deadline.
	InputDeadline time.Time

	Totals PeriodTotals

	CreatedAt   time.Time
	FinalizedAt *time.Time
	FinalizedBy string
}

// PeriodTotals are the aggregates recomputed after every recalculation run.
type PeriodTotals struct {
	SlipCount         int
	TotalGross        engine.Money
	TotalNet          engine.Money
	TotalEmployerCost engine.Money
	TotalTax          engine.Money
}

// AcceptsInput reports whether source-data writes for this period's month
// are currently allowed.
func (p Period) AcceptsInput(now time.Time) error {
	switch p.Status {
	case PeriodFinalized:
		return ErrPeriodFinalized
	case PeriodLocked:
		return ErrPeriodLocked
	}
	if !p.InputDeadline.IsZero() && now.After(p.InputDeadline) {
		return ErrPastDeadline
	}
	return nil
}

// AcceptsRecalc reports whether slips in this period may still be
// recomputed. Locked periods recompute (that is when the accountant
// reviews final numbers); finalized ones never do.
func (p Period) AcceptsRecalc() error {
	if p.Status == PeriodFinalized {
		return ErrPeriodFinalized
	}
	return nil
}

// Lock stops further source input while review happens.
func (p *Period) Lock() error {
	if p.Status != PeriodOpen {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, p.Status, PeriodLocked)
	}
	p.Status = PeriodLocked
	return nil
}

// Reopen reverses a lock. Finalized periods cannot reopen.
func (p *Period) Reopen() error {
	if p.Status != PeriodLocked {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, p.Status, PeriodOpen)
	}
	p.Status = PeriodOpen
	return nil
}

// Finalize freezes the period permanently.
func (p *Period) Finalize(actor string, at time.Time) error {
	if p.Status != PeriodLocked {
		// Finalizing an open period would skip review.
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, p.Status, PeriodFinalized)
	}
	p.Status = PeriodFinalized
	p.FinalizedAt = &at
	p.FinalizedBy = actor
	return nil
}

// =============================================================================
// STORE
// =============================================================================

type PeriodStore interface {
	SavePeriod(ctx context.Context, p Period) error
	GetPeriod(ctx context.Context, companyID hrm.CompanyID, month engine.Month) (*Period, error)
	ListPeriods(ctx context.Context, companyID hrm.CompanyID) ([]Period, error)
}

// GuardInput checks whether source data for the month may be written.
// A month with no period yet accepts input freely - periods are usually
// opened when payroll preparation starts, after data entry has begun.
func GuardInput(ctx context.Context, periods PeriodStore, companyID hrm.CompanyID, month engine.Month, now time.Time) error {
	p, err := periods.GetPeriod(ctx, companyID, month)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	return p.AcceptsInput(now)
}
