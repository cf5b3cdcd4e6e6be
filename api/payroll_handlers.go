/*
payroll_handlers.go - Period lifecycle, slip and config endpoints

ENDPOINTS:
  Periods (lifecycle transitions require the admin role):
    GET    /api/periods                       List periods with aggregates
    POST   /api/periods                       Open a period
    GET    /api/periods/{month}               Get period with aggregates
    POST   /api/periods/{month}/lock          open -> locked
    POST   /api/periods/{month}/reopen        locked -> open
    POST   /api/periods/{month}/finalize      locked -> finalized
    POST   /api/periods/{month}/recalculate   Force a synchronous recompute

  Slips:
    GET    /api/periods/{month}/slips         List month's slips
    GET    /api/slips/{id}                    Slip with frozen snapshot
    GET    /api/employees/{id}/slips/{month}  Slip by employee month

  Config (writes require the admin role):
    GET    /api/config                        Active bundle versions
    POST   /api/config/{kind}                 Save new document version
    GET    /api/config/{kind}/versions        Version history
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns the tenant's periods, newest first.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns one period with its aggregates.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	period, err := h.Store.GetPeriod(r.Context(), tenantFrom(r.Context()), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period", err)
		return
	}
	if period == nil {
		writeError(w, http.StatusNotFound, "Period not found", payroll.ErrPeriodNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(*period))
}

// OpenPeriod creates the period row for a month, optionally with an
// input deadline. Computes an initial slip set immediately.
func (h *Handler) OpenPeriod(w http.ResponseWriter, r *http.Request) {
	var req OpenPeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	month, err := parseMonthParam(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	companyID := tenantFrom(r.Context())
	existing, err := h.Store.GetPeriod(r.Context(), companyID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check period", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Period already exists", nil)
		return
	}

	period := payroll.Period{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Month:     month,
		Status:    payroll.PeriodOpen,
		CreatedAt: h.now().UTC(),
	}
	if req.InputDeadline != "" {
		deadline, err := time.Parse(time.RFC3339, req.InputDeadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid input_deadline (want RFC3339)", err)
			return
		}
		period.InputDeadline = deadline
	}

	if err := h.Store.SavePeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save period", err)
		return
	}

	if err := h.Recalc.ForceRecalculate(r.Context(), companyID, month); err != nil {
		writeError(w, http.StatusInternalServerError, "Period opened but initial computation failed", err)
		return
	}

	// Re-read for the totals the recompute just wrote.
	saved, err := h.Store.GetPeriod(r.Context(), companyID, month)
	if err != nil || saved == nil {
		writeJSON(w, http.StatusCreated, toPeriodDTO(period))
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(*saved))
}

// LockPeriod stops source input while the accountant reviews.
func (h *Handler) LockPeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, func(p *payroll.Period) error { return p.Lock() })
}

// ReopenPeriod reverses a lock.
func (h *Handler) ReopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, func(p *payroll.Period) error { return p.Reopen() })
}

// FinalizePeriod freezes the period and its slips permanently.
func (h *Handler) FinalizePeriod(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	companyID := tenantFrom(r.Context())

	period, err := h.Store.GetPeriod(r.Context(), companyID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period", err)
		return
	}
	if period == nil {
		writeError(w, http.StatusNotFound, "Period not found", payroll.ErrPeriodNotFound)
		return
	}

	if err := period.Finalize(actorFrom(r.Context()), h.now().UTC()); err != nil {
		writeError(w, http.StatusConflict, "Illegal period transition", err)
		return
	}

	// Slips flip first so a crash between the writes leaves the period
	// reopenable rather than frozen with mutable slips.
	if err := h.Store.MarkSlipsFinalized(r.Context(), companyID, month); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to finalize slips", err)
		return
	}
	if err := h.Store.SavePeriod(r.Context(), *period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save period", err)
		return
	}

	h.Log.Info("period finalized",
		zap.String("company_id", string(companyID)),
		zap.String("month", month.String()),
		zap.String("actor", actorFrom(r.Context())))
	writeJSON(w, http.StatusOK, toPeriodDTO(*period))
}

func (h *Handler) transitionPeriod(w http.ResponseWriter, r *http.Request, transition func(*payroll.Period) error) {
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	companyID := tenantFrom(r.Context())

	period, err := h.Store.GetPeriod(r.Context(), companyID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period", err)
		return
	}
	if period == nil {
		writeError(w, http.StatusNotFound, "Period not found", payroll.ErrPeriodNotFound)
		return
	}

	if err := transition(period); err != nil {
		writeError(w, http.StatusConflict, "Illegal period transition", err)
		return
	}
	if err := h.Store.SavePeriod(r.Context(), *period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(*period))
}

// RecalculatePeriod forces a synchronous recompute of the whole month.
func (h *Handler) RecalculatePeriod(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	companyID := tenantFrom(r.Context())

	if err := h.Recalc.ForceRecalculate(r.Context(), companyID, month); err != nil {
		if errors.Is(err, payroll.ErrNoActiveConfig) {
			writeError(w, http.StatusConflict, "Tenant has no active payroll config", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}

	period, err := h.Store.GetPeriod(r.Context(), companyID, month)
	if err != nil || period == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "recalculated"})
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(*period))
}

// =============================================================================
// SLIP HANDLERS
// =============================================================================

// ListSlips returns every slip of a month, without snapshots.
func (h *Handler) ListSlips(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	slips, err := h.Store.ListSlips(r.Context(), tenantFrom(r.Context()), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list slips", err)
		return
	}

	dtos := make([]SlipDTO, len(slips))
	for i, s := range slips {
		dtos[i] = toSlipDTO(s, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSlip returns one slip including its frozen snapshot.
func (h *Handler) GetSlip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	slip, err := h.Store.GetSlip(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		if errors.Is(err, payroll.ErrSlipNotFound) {
			writeError(w, http.StatusNotFound, "Slip not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get slip", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlipDTO(*slip, true))
}

// GetEmployeeSlip returns the slip for an employee month, with snapshot.
func (h *Handler) GetEmployeeSlip(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	slip, err := h.Store.GetSlipByEmployee(r.Context(), tenantFrom(r.Context()), employeeID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get slip", err)
		return
	}
	if slip == nil {
		writeError(w, http.StatusNotFound, "Slip not found", payroll.ErrSlipNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toSlipDTO(*slip, true))
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

var configKinds = map[string]factory.ConfigKind{
	"tax":        factory.KindTaxTable,
	"insurance":  factory.KindInsurance,
	"grades":     factory.KindGradeTable,
	"commission": factory.KindCommissionTable,
}

// GetActiveConfig returns the active bundle: versions plus documents.
func (h *Handler) GetActiveConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.Store.ActiveConfig(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		if errors.Is(err, payroll.ErrNoActiveConfig) {
			writeError(w, http.StatusNotFound, "No active payroll config", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load config", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versions":  config.Versions,
		"documents": config.Documents,
	})
}

// SaveConfig validates and stores a new document version for a kind.
// Config changes affect future computations; months already finalized
// keep their snapshots.
func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	kind, ok := configKinds[chi.URLParam(r, "kind")]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown config kind", nil)
		return
	}
	var req SaveConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	document, err := json.Marshal(req.Document)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document", err)
		return
	}

	companyID := tenantFrom(r.Context())
	version, err := h.Store.SaveConfigDocument(r.Context(), sqlite.ConfigDocument{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Kind:      kind,
		Document:  string(document),
		CreatedBy: actorFrom(r.Context()),
	})
	if err != nil {
		// Factory validation failures are client errors.
		if engine.IsConfigError(err) {
			writeError(w, http.StatusBadRequest, "Document failed validation", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to save document", err)
		return
	}

	// Every non-finalized month computes against the active bundle, so a
	// new version invalidates the current cycle.
	h.Recalc.Invalidate(companyID, engine.CurrentMonth())

	writeJSON(w, http.StatusCreated, ConfigVersionDTO{
		Kind:      string(kind),
		Version:   version,
		CreatedBy: actorFrom(r.Context()),
	})
}

// ListConfigVersions returns the version history of one kind.
func (h *Handler) ListConfigVersions(w http.ResponseWriter, r *http.Request) {
	kind, ok := configKinds[chi.URLParam(r, "kind")]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown config kind", nil)
		return
	}

	docs, err := h.Store.ListConfigVersions(r.Context(), tenantFrom(r.Context()), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list versions", err)
		return
	}

	dtos := make([]ConfigVersionDTO, len(docs))
	for i, doc := range docs {
		dto := ConfigVersionDTO{
			Kind:      string(doc.Kind),
			Version:   doc.Version,
			CreatedBy: doc.CreatedBy,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		}
		var raw any
		if json.Unmarshal([]byte(doc.Document), &raw) == nil {
			dto.Document = raw
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}
