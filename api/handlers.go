/*
handlers.go - HTTP API handlers for employee master data and source inputs

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to domain logic.

ENDPOINTS (this file):
  Employees:
    GET    /api/employees                      List employees
    POST   /api/employees                      Create/update employee
    GET    /api/employees/{id}                 Get employee
    GET    /api/employees/{id}/contracts       Contract history
    POST   /api/employees/{id}/contracts       Add contract version
    GET    /api/employees/{id}/dependents      List dependents
    POST   /api/employees/{id}/dependents      Register dependent
    DELETE /api/employees/{id}/dependents/{depID}

  Source inputs (all guarded by the period deadline/lock):
    PUT    /api/timesheets                     Upsert month attendance
    GET    /api/timesheets?month=YYYY-MM       List month attendance
    PUT    /api/assessments                    Upsert KPI assessment (draft)
    POST   /api/assessments/{employeeID}/{month}/transition
    GET    /api/assessments?month=YYYY-MM
    POST   /api/adjustments                    Add one-off adjustment
    DELETE /api/adjustments/{id}
    GET    /api/adjustments?employee_id=&month=
    PUT    /api/revenues                       Upsert sales revenue

REQUEST FLOW:
  1. Parse and validate the DTO
  2. Guard the write against the period state (deadline, lock, finalize)
  3. Persist through the store
  4. Invalidate the affected employee month for recalculation
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401/403: Missing token / missing role
  - 404: Resource not found
  - 409: Input rejected by period state (deadline, locked, finalized)
  - 500: Internal errors

SEE ALSO:
  - payroll_handlers.go: Periods, slips and config endpoints
  - dto.go: Request/response data structures
  - auth.go: Tenant claims
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/hrm"
	"github.com/warp/payroll-engine/kpi"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Recalc *payroll.Recalculator
	Log    *zap.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler with the given store and recalculator.
func NewHandler(store *sqlite.Store, recalc *payroll.Recalculator, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Recalc:   recalc,
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// decode parses and validates a request body. Writes the 400 itself and
// returns false when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// guardInput rejects source-data writes the period no longer accepts.
func (h *Handler) guardInput(w http.ResponseWriter, r *http.Request, month engine.Month) bool {
	err := payroll.GuardInput(r.Context(), h.Store, tenantFrom(r.Context()), month, h.now())
	if err == nil {
		return true
	}
	if payroll.IsInputRejected(err) {
		writeError(w, http.StatusConflict, "Period does not accept input", err)
	} else {
		writeError(w, http.StatusInternalServerError, "Failed to check period state", err)
	}
	return false
}

func parseAmount(s string) (engine.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Zero(), err
	}
	return engine.MoneyFromDecimal(d), nil
}

// parseDec parses an optional decimal field; empty means zero.
func parseDec(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the tenant's employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := hrm.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// SaveEmployee creates or updates an employee.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req SaveEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	joinDate, _ := time.Parse("2006-01-02", req.JoinDate)
	emp := hrm.Employee{
		ID:        hrm.EmployeeID(req.ID),
		CompanyID: tenantFrom(r.Context()),
		Code:      req.Code,
		Name:      req.Name,
		Email:     req.Email,
		Status:    hrm.EmployeeStatus(req.Status),
		JoinDate:  engine.TimePoint{Time: joinDate},
	}
	if emp.ID == "" {
		emp.ID = hrm.EmployeeID(uuid.NewString())
	}
	if emp.Status == "" {
		emp.Status = hrm.EmployeeActive
	}
	if req.LeaveDate != "" {
		t, _ := time.Parse("2006-01-02", req.LeaveDate)
		tp := engine.TimePoint{Time: t}
		emp.LeaveDate = &tp
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusConflict, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns an employee's contract history.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))

	contracts, err := h.Store.ListContracts(r.Context(), tenantFrom(r.Context()), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveContract adds a contract version for an employee. A raise is a new
// contract effective from a new month, not an edit.
func (h *Handler) SaveContract(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))
	var req SaveContractRequest
	if !h.decode(w, r, &req) {
		return
	}

	contract, err := h.contractFromRequest(r, employeeID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract values", err)
		return
	}

	if err := h.Store.SaveContract(r.Context(), *contract); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}

	// A contract change affects every non-finalized month it governs;
	// recomputing the effective-from month covers the common case of a
	// raise for the current cycle.
	h.Recalc.Invalidate(contract.CompanyID, contract.EffectiveFrom, employeeID)

	writeJSON(w, http.StatusCreated, toContractDTO(*contract))
}

func (h *Handler) contractFromRequest(r *http.Request, employeeID hrm.EmployeeID, req SaveContractRequest) (*hrm.Contract, error) {
	baseSalary, err := parseAmount(req.BaseSalary)
	if err != nil {
		return nil, err
	}
	insuranceSalary, err := parseAmount(req.InsuranceSalary)
	if err != nil {
		return nil, err
	}
	kpiBase := engine.Zero()
	if req.KPIBonusBase != "" {
		if kpiBase, err = parseAmount(req.KPIBonusBase); err != nil {
			return nil, err
		}
	}
	standardWorkdays, err := parseDec(req.StandardWorkdays)
	if err != nil {
		return nil, err
	}
	otMultiplier, err := parseDec(req.OvertimeMultiplier)
	if err != nil {
		return nil, err
	}
	if otMultiplier.IsZero() {
		otMultiplier = decimal.NewFromFloat(1.5)
	}
	hoursPerDay, err := parseDec(req.HoursPerDay)
	if err != nil {
		return nil, err
	}
	if hoursPerDay.IsZero() {
		hoursPerDay = decimal.NewFromInt(8)
	}
	effectiveFrom, err := engine.ParseMonth(req.EffectiveFrom)
	if err != nil {
		return nil, err
	}

	contract := &hrm.Contract{
		ID:                 req.ID,
		CompanyID:          tenantFrom(r.Context()),
		EmployeeID:         employeeID,
		Status:             hrm.ContractActive,
		BaseSalary:         baseSalary,
		InsuranceSalary:    insuranceSalary,
		KPIBonusBase:       kpiBase,
		CommissionEligible: req.CommissionEligible,
		StandardWorkdays:   standardWorkdays,
		OvertimeMultiplier: otMultiplier,
		HoursPerDay:        hoursPerDay,
		EffectiveFrom:      effectiveFrom,
	}
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	if req.EffectiveTo != "" {
		to, err := engine.ParseMonth(req.EffectiveTo)
		if err != nil {
			return nil, err
		}
		contract.EffectiveTo = &to
	}
	for _, a := range req.Allowances {
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return nil, err
		}
		contract.Allowances = append(contract.Allowances, hrm.ContractAllowance{
			Code: a.Code, Label: a.Label, Amount: amount, Taxable: a.Taxable,
		})
	}
	return contract, nil
}

// =============================================================================
// DEPENDENT HANDLERS
// =============================================================================

// ListDependents returns an employee's registered dependents.
func (h *Handler) ListDependents(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))

	deps, err := h.Store.ListDependents(r.Context(), tenantFrom(r.Context()), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dependents", err)
		return
	}

	dtos := make([]DependentDTO, len(deps))
	for i, d := range deps {
		dtos[i] = DependentDTO{
			ID:            d.ID,
			EmployeeID:    string(d.EmployeeID),
			Name:          d.Name,
			Relation:      d.Relation,
			EffectiveFrom: d.EffectiveFrom.String(),
		}
		if d.EffectiveTo != nil {
			dtos[i].EffectiveTo = d.EffectiveTo.String()
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveDependent registers a dependent for the tax deduction.
func (h *Handler) SaveDependent(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))
	var req SaveDependentRequest
	if !h.decode(w, r, &req) {
		return
	}

	from, err := engine.ParseMonth(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from", err)
		return
	}
	dep := hrm.Dependent{
		ID:            req.ID,
		CompanyID:     tenantFrom(r.Context()),
		EmployeeID:    employeeID,
		Name:          req.Name,
		Relation:      req.Relation,
		EffectiveFrom: from,
	}
	if dep.ID == "" {
		dep.ID = uuid.NewString()
	}
	if req.EffectiveTo != "" {
		to, err := engine.ParseMonth(req.EffectiveTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective_to", err)
			return
		}
		dep.EffectiveTo = &to
	}

	if err := h.Store.SaveDependent(r.Context(), dep); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save dependent", err)
		return
	}

	h.Recalc.Invalidate(dep.CompanyID, dep.EffectiveFrom, employeeID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": dep.ID})
}

// DeleteDependent removes a dependent registration.
func (h *Handler) DeleteDependent(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "id"))
	depID := chi.URLParam(r, "depID")
	companyID := tenantFrom(r.Context())

	if err := h.Store.DeleteDependent(r.Context(), companyID, depID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete dependent", err)
		return
	}

	h.Recalc.Invalidate(companyID, engine.CurrentMonth(), employeeID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// SaveTimesheet upserts the month's attendance row for an employee.
func (h *Handler) SaveTimesheet(w http.ResponseWriter, r *http.Request) {
	var req SaveTimesheetRequest
	if !h.decode(w, r, &req) {
		return
	}

	month, err := engine.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	standardDays, err1 := parseDec(req.StandardDays)
	paidDays, err2 := parseDec(req.PaidDays)
	unpaidDays, err3 := parseDec(req.UnpaidLeaveDays)
	otHours, err4 := parseDec(req.OvertimeHours)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid day/hour values", err)
			return
		}
	}

	ts := hrm.Timesheet{
		ID:              uuid.NewString(),
		CompanyID:       tenantFrom(r.Context()),
		EmployeeID:      hrm.EmployeeID(req.EmployeeID),
		Month:           month,
		StandardDays:    standardDays,
		PaidDays:        paidDays,
		UnpaidLeaveDays: unpaidDays,
		OvertimeHours:   otHours,
		UpdatedBy:       actorFrom(r.Context()),
	}
	if err := ts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance figures", err)
		return
	}

	if err := h.Store.SaveTimesheet(r.Context(), ts); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save timesheet", err)
		return
	}

	h.Recalc.Invalidate(ts.CompanyID, month, ts.EmployeeID)
	writeJSON(w, http.StatusOK, toTimesheetDTO(ts))
}

// ListTimesheets returns all attendance rows of a month.
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing month query param", err)
		return
	}

	sheets, err := h.Store.ListTimesheets(r.Context(), tenantFrom(r.Context()), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list timesheets", err)
		return
	}

	dtos := make([]TimesheetDTO, len(sheets))
	for i, ts := range sheets {
		dtos[i] = toTimesheetDTO(ts)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ASSESSMENT HANDLERS
// =============================================================================

// SaveAssessment upserts a KPI assessment. Saving puts (or keeps) it in
// draft; approval happens through the transition endpoint.
func (h *Handler) SaveAssessment(w http.ResponseWriter, r *http.Request) {
	var req SaveAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	month, err := engine.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	companyID := tenantFrom(r.Context())
	employeeID := hrm.EmployeeID(req.EmployeeID)

	// The upsert must not become a back door around the status machine: a
	// submitted or approved assessment keeps its score until an explicit
	// transition brings it back to draft.
	existing, err := h.Store.GetAssessment(r.Context(), companyID, employeeID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assessment", err)
		return
	}
	if existing != nil {
		if err := existing.AcceptsEdit(); err != nil {
			writeError(w, http.StatusConflict, "Assessment does not accept edits", err)
			return
		}
	}

	assessment := kpi.Assessment{
		ID:         uuid.NewString(),
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Month:      month,
		Status:     kpi.StatusDraft,
		ReviewerID: actorFrom(r.Context()),
	}
	if existing != nil {
		assessment.ID = existing.ID
	}
	for _, c := range req.Criteria {
		weight, err1 := parseDec(c.Weight)
		score, err2 := parseDec(c.Score)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "Invalid criterion values", nil)
			return
		}
		assessment.Criteria = append(assessment.Criteria, kpi.Criterion{
			Name: c.Name, Weight: weight, Score: score,
		})
	}
	if err := assessment.Rescore(); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to score assessment", err)
		return
	}

	if err := h.Store.SaveAssessment(r.Context(), assessment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assessment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentDTO(assessment))
}

// TransitionAssessment moves an assessment through draft/submitted/approved.
// Approval feeds the score into payroll, so it invalidates the slip.
func (h *Handler) TransitionAssessment(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(chi.URLParam(r, "employeeID"))
	month, err := parseMonthParam(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	var req TransitionAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	companyID := tenantFrom(r.Context())
	assessment, err := h.Store.GetAssessment(r.Context(), companyID, employeeID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get assessment", err)
		return
	}
	if assessment == nil {
		writeError(w, http.StatusNotFound, "Assessment not found", nil)
		return
	}

	if err := assessment.Transition(kpi.AssessmentStatus(req.Status), actorFrom(r.Context())); err != nil {
		writeError(w, http.StatusConflict, "Illegal status transition", err)
		return
	}
	if err := h.Store.SaveAssessment(r.Context(), *assessment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assessment", err)
		return
	}

	if assessment.Status == kpi.StatusApproved {
		h.Recalc.Invalidate(companyID, month, employeeID)
	}
	writeJSON(w, http.StatusOK, toAssessmentDTO(*assessment))
}

// ListAssessments returns all assessments of a month.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing month query param", err)
		return
	}

	assessments, err := h.Store.ListAssessments(r.Context(), tenantFrom(r.Context()), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assessments", err)
		return
	}

	dtos := make([]AssessmentDTO, len(assessments))
	for i, a := range assessments {
		dtos[i] = toAssessmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADJUSTMENT HANDLERS
// =============================================================================

// SaveAdjustment records a one-off allowance, penalty, advance or travel
// expense for an employee month.
func (h *Handler) SaveAdjustment(w http.ResponseWriter, r *http.Request) {
	var req SaveAdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	month, err := engine.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be a positive decimal", err)
		return
	}

	adj := payroll.Adjustment{
		ID:         req.ID,
		CompanyID:  tenantFrom(r.Context()),
		EmployeeID: hrm.EmployeeID(req.EmployeeID),
		Month:      month,
		Kind:       payroll.AdjustmentKind(req.Kind),
		Amount:     amount,
		Reason:     req.Reason,
		Taxable:    req.Taxable,
		CreatedBy:  actorFrom(r.Context()),
	}
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}

	if err := h.Store.SaveAdjustment(r.Context(), adj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save adjustment", err)
		return
	}

	h.Recalc.Invalidate(adj.CompanyID, month, adj.EmployeeID)
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(adj))
}

// ListAdjustments returns one employee's adjustments for a month.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	employeeID := hrm.EmployeeID(r.URL.Query().Get("employee_id"))
	month, err := parseMonthParam(r.URL.Query().Get("month"))
	if err != nil || employeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and month query params required", err)
		return
	}

	adjs, err := h.Store.ListAdjustments(r.Context(), tenantFrom(r.Context()), employeeID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list adjustments", err)
		return
	}

	dtos := make([]AdjustmentDTO, len(adjs))
	for i, a := range adjs {
		dtos[i] = toAdjustmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteAdjustment removes an adjustment. The month comes from the query
// so the slip can be invalidated.
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	employeeID := hrm.EmployeeID(r.URL.Query().Get("employee_id"))
	month, err := parseMonthParam(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "employee_id and month query params required", err)
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	companyID := tenantFrom(r.Context())
	if err := h.Store.DeleteAdjustment(r.Context(), companyID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete adjustment", err)
		return
	}

	h.Recalc.Invalidate(companyID, month, employeeID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// REVENUE HANDLERS
// =============================================================================

// SaveRevenue upserts the month's sales revenue for an employee.
func (h *Handler) SaveRevenue(w http.ResponseWriter, r *http.Request) {
	var req SaveRevenueRequest
	if !h.decode(w, r, &req) {
		return
	}

	month, err := engine.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	if !h.guardInput(w, r, month) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Amount must be a non-negative decimal", err)
		return
	}

	rev := payroll.Revenue{
		ID:         uuid.NewString(),
		CompanyID:  tenantFrom(r.Context()),
		EmployeeID: hrm.EmployeeID(req.EmployeeID),
		Month:      month,
		Amount:     amount,
		Source:     req.Source,
	}

	if err := h.Store.SaveRevenue(r.Context(), rev); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save revenue", err)
		return
	}

	h.Recalc.Invalidate(rev.CompanyID, month, rev.EmployeeID)
	writeJSON(w, http.StatusOK, RevenueDTO{
		EmployeeID: req.EmployeeID,
		Month:      month.String(),
		Amount:     amount.String(),
		Source:     req.Source,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
