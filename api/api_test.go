package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

var jwtSecret = []byte("test-secret")

type testAPI struct {
	t     *testing.T
	srv   *httptest.Server
	admin string
	staff string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	recalc := payroll.NewRecalculator(store, store, store, zap.NewNop(),
		payroll.RecalculatorConfig{Workers: 2})
	handler := api.NewHandler(store, recalc, zap.NewNop())

	srv := httptest.NewServer(api.NewRouter(handler, api.RouterConfig{JWTSecret: jwtSecret}))
	t.Cleanup(srv.Close)

	admin, err := api.IssueToken(jwtSecret, "co-1", "admin@acme", api.RoleAdmin, time.Hour)
	require.NoError(t, err)
	staff, err := api.IssueToken(jwtSecret, "co-1", "hr@acme", api.RoleStaff, time.Hour)
	require.NoError(t, err)

	return &testAPI{t: t, srv: srv, admin: admin, staff: staff}
}

// do issues one request with an optional bearer token and JSON body.
func (a *testAPI) do(method, path, token string, body any) *http.Response {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// =============================================================================
// SEED DATA - everything flows through the API so handlers get exercised
// =============================================================================

var configDocs = map[string]map[string]any{
	"tax": {
		"personal_deduction":  11000000,
		"dependent_deduction": 4400000,
		"brackets": []map[string]any{
			{"up_to": 5000000, "rate_percent": 5},
			{"up_to": 10000000, "rate_percent": 10},
			{"rate_percent": 15},
		},
	},
	"insurance": {
		"base_cap":     36000000,
		"social":       map[string]any{"employee_percent": 8, "employer_percent": 17.5},
		"health":       map[string]any{"employee_percent": 1.5, "employer_percent": 3},
		"unemployment": map[string]any{"employee_percent": 1, "employer_percent": 1},
	},
	"grades": {
		"tiers": []map[string]any{
			{"grade": "C", "min_score": 50, "multiplier": 0.5},
			{"grade": "B", "min_score": 70, "multiplier": 1.0},
			{"grade": "A", "min_score": 90, "multiplier": 1.5},
		},
	},
	"commission": {
		"tiers": []map[string]any{
			{"min_revenue": 50000000, "rate_percent": 1},
			{"min_revenue": 100000000, "rate_percent": 2},
			{"min_revenue": 500000000, "rate_percent": 3},
		},
	},
}

func (a *testAPI) seedConfig() {
	a.t.Helper()
	for kind, doc := range configDocs {
		resp := a.do("POST", "/api/config/"+kind, a.admin,
			map[string]any{"document": doc})
		require.Equal(a.t, http.StatusCreated, resp.StatusCode, "seeding %s config", kind)
	}
}

// seedEmployee creates an employee with the standard contract and returns
// the employee id.
func (a *testAPI) seedEmployee(code string) string {
	a.t.Helper()

	resp := a.do("POST", "/api/employees", a.staff, map[string]any{
		"code":      code,
		"name":      "Nguyen Van A",
		"email":     code + "@acme.example",
		"join_date": "2026-01-15",
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	var emp struct {
		ID string `json:"id"`
	}
	decode(a.t, resp, &emp)
	require.NotEmpty(a.t, emp.ID)

	resp = a.do("POST", "/api/employees/"+emp.ID+"/contracts", a.staff, map[string]any{
		"employee_id":         emp.ID,
		"base_salary":         "22000000",
		"insurance_salary":    "10000000",
		"kpi_bonus_base":      "4000000",
		"commission_eligible": true,
		"standard_workdays":   "22",
		"overtime_multiplier": "1.5",
		"hours_per_day":       "8",
		"effective_from":      "2026-01",
		"allowances": []map[string]any{
			{"code": "lunch", "label": "Lunch", "amount": "730000", "taxable": false},
			{"code": "housing", "label": "Housing", "amount": "2000000", "taxable": true},
		},
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	return emp.ID
}

// seedFullJuly loads every source input the calculator consumes for July
// 2026: attendance, an approved KPI score, revenue, a dependent, a penalty
// and a travel-expense claim.
func (a *testAPI) seedFullJuly(employeeID string) {
	a.t.Helper()

	resp := a.do("POST", "/api/employees/"+employeeID+"/dependents", a.staff, map[string]any{
		"name":           "Nguyen Thi B",
		"relation":       "child",
		"effective_from": "2026-01",
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)

	resp = a.do("PUT", "/api/timesheets", a.staff, map[string]any{
		"employee_id":    employeeID,
		"month":          "2026-07",
		"standard_days":  "22",
		"paid_days":      "22",
		"overtime_hours": "0",
	})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)

	resp = a.do("PUT", "/api/assessments", a.staff, map[string]any{
		"employee_id": employeeID,
		"month":       "2026-07",
		"criteria": []map[string]any{
			{"name": "Delivery", "weight": "60", "score": "95"},
			{"name": "Quality", "weight": "40", "score": "87.5"},
		},
	})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	for _, status := range []string{"submitted", "approved"} {
		resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-07/transition", a.staff,
			map[string]any{"status": status})
		require.Equal(a.t, http.StatusOK, resp.StatusCode)
	}

	resp = a.do("PUT", "/api/revenues", a.staff, map[string]any{
		"employee_id": employeeID,
		"month":       "2026-07",
		"amount":      "120000000",
		"source":      "crm-import",
	})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)

	for _, adj := range []map[string]any{
		{"employee_id": employeeID, "month": "2026-07", "kind": "penalty",
			"amount": "500000", "reason": "late badge-ins"},
		{"employee_id": employeeID, "month": "2026-07", "kind": "travel_expense",
			"amount": "1000000", "reason": "client visit"},
	} {
		resp = a.do("POST", "/api/adjustments", a.staff, adj)
		require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	}
}

type slipResponse struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month"`
	Status     string `json:"status"`
	Gross      string `json:"gross"`
	IncomeTax  string `json:"income_tax"`
	Net        string `json:"net"`
	KPIGrade   string `json:"kpi_grade"`
	Lines      []struct {
		Code   string `json:"code"`
		Amount string `json:"amount"`
	} `json:"lines"`
	Snapshot *payroll.Snapshot `json:"snapshot"`
}

// =============================================================================
// AUTH
// =============================================================================

func TestHealthz_Unauthenticated(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_MissingToken(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do("GET", "/api/employees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ForgedToken(t *testing.T) {
	a := newTestAPI(t)

	forged, err := api.IssueToken([]byte("wrong-secret"), "co-1", "eve", api.RoleAdmin, time.Hour)
	require.NoError(t, err)
	resp := a.do("GET", "/api/employees", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ExpiredToken(t *testing.T) {
	a := newTestAPI(t)

	expired, err := api.IssueToken(jwtSecret, "co-1", "hr@acme", api.RoleStaff, -time.Minute)
	require.NoError(t, err)
	resp := a.do("GET", "/api/employees", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_StaffCannotDriveLifecycleOrConfig(t *testing.T) {
	// GIVEN: A staff token
	// THEN: Admin-gated routes answer 403 before touching any state

	a := newTestAPI(t)

	resp := a.do("POST", "/api/periods", a.staff, map[string]any{"month": "2026-07"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do("POST", "/api/config/tax", a.staff,
		map[string]any{"document": configDocs["tax"]})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-07/lock", a.staff, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuth_TenantIsolation(t *testing.T) {
	// GIVEN: Data written by co-1
	// WHEN: A co-2 token lists employees
	// THEN: The other tenant's rows are invisible

	a := newTestAPI(t)
	a.seedEmployee("E001")

	other, err := api.IssueToken(jwtSecret, "co-2", "hr@other", api.RoleStaff, time.Hour)
	require.NoError(t, err)

	resp := a.do("GET", "/api/employees", other, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var employees []map[string]any
	decode(t, resp, &employees)
	assert.Empty(t, employees)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CreateGetList(t *testing.T) {
	a := newTestAPI(t)
	id := a.seedEmployee("E001")

	resp := a.do("GET", "/api/employees/"+id, a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var emp map[string]any
	decode(t, resp, &emp)
	assert.Equal(t, "E001", emp["code"])
	assert.Equal(t, "active", emp["status"])

	resp = a.do("GET", "/api/employees", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	decode(t, resp, &list)
	assert.Len(t, list, 1)
}

func TestEmployees_ValidationFailures(t *testing.T) {
	a := newTestAPI(t)

	// Missing name
	resp := a.do("POST", "/api/employees", a.staff, map[string]any{
		"code": "E001", "join_date": "2026-01-15",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed join date
	resp = a.do("POST", "/api/employees", a.staff, map[string]any{
		"code": "E001", "name": "A", "join_date": "Jan 15 2026",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do("GET", "/api/employees/nope", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// FULL CYCLE - inputs in, period opened, slip out with frozen snapshot
// =============================================================================

func TestFullPayrollCycle(t *testing.T) {
	// GIVEN: Config, a contracted employee and a full July of source inputs
	// WHEN: An admin opens the 2026-07 period
	// THEN: The slip computes end to end with the expected net pay and the
	//       single-slip fetch exposes the frozen snapshot

	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")
	a.seedFullJuly(employeeID)

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var period struct {
		Status string `json:"status"`
		Totals struct {
			SlipCount  int    `json:"slip_count"`
			TotalGross string `json:"total_gross"`
			TotalNet   string `json:"total_net"`
		} `json:"totals"`
	}
	decode(t, resp, &period)
	assert.Equal(t, "open", period.Status)
	require.Equal(t, 1, period.Totals.SlipCount)
	assert.Equal(t, "33130000.00", period.Totals.TotalGross)
	assert.Equal(t, "30937500.00", period.Totals.TotalNet)

	// List shows the slip without its snapshot payload
	resp = a.do("GET", "/api/periods/2026-07/slips", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slips []slipResponse
	decode(t, resp, &slips)
	require.Len(t, slips, 1)
	assert.Equal(t, "33130000.00", slips[0].Gross)
	assert.Equal(t, "1642500.00", slips[0].IncomeTax)
	assert.Equal(t, "A", slips[0].KPIGrade)
	assert.Nil(t, slips[0].Snapshot)
	assert.NotEmpty(t, slips[0].Lines)

	// Single fetch carries the snapshot for audit replay
	resp = a.do("GET", "/api/slips/"+slips[0].ID, a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slip slipResponse
	decode(t, resp, &slip)
	assert.Equal(t, "30937500.00", slip.Net)
	require.NotNil(t, slip.Snapshot)
	assert.Equal(t, 1, slip.Snapshot.ConfigVersions.Tax)

	// Employee-month fetch resolves the same slip
	resp = a.do("GET", "/api/employees/"+employeeID+"/slips/2026-07", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &slip)
	assert.Equal(t, slips[0].ID, slip.ID)
}

func TestSlips_NotFound(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do("GET", "/api/slips/nope", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do("GET", "/api/employees/nope/slips/2026-07", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PERIOD LIFECYCLE AND INPUT GUARDS
// =============================================================================

func TestPeriods_Lifecycle(t *testing.T) {
	a := newTestAPI(t)
	a.seedConfig()

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Opening twice conflicts
	resp = a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Finalize straight from open is illegal
	resp = a.do("POST", "/api/periods/2026-07/finalize", a.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-07/lock", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-07/reopen", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-07/lock", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do("POST", "/api/periods/2026-07/finalize", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var period map[string]any
	decode(t, resp, &period)
	assert.Equal(t, "finalized", period["status"])
	assert.Equal(t, "admin@acme", period["finalized_by"])
	assert.NotEmpty(t, period["finalized_at"])

	// Finalized is terminal
	resp = a.do("POST", "/api/periods/2026-07/reopen", a.admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-08/lock", a.admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPeriods_LockBlocksSourceInput(t *testing.T) {
	// GIVEN: A locked July
	// THEN: Timesheet and adjustment writes answer 409; August still accepts

	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = a.do("POST", "/api/periods/2026-07/lock", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	timesheet := map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"standard_days": "22", "paid_days": "20",
	}
	resp = a.do("PUT", "/api/timesheets", a.staff, timesheet)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("POST", "/api/adjustments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"kind": "allowance", "amount": "300000",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	timesheet["month"] = "2026-08"
	resp = a.do("PUT", "/api/timesheets", a.staff, timesheet)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPeriods_DeadlineRejectsLateWrites(t *testing.T) {
	// GIVEN: An open period whose input deadline has passed
	// THEN: Writes are rejected even though the period is not locked

	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{
		"month":          "2026-07",
		"input_deadline": "2026-08-05T17:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do("PUT", "/api/timesheets", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"standard_days": "22", "paid_days": "20",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Contains(t, body["details"], "deadline")
}

func TestPeriods_RecalculateEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Inputs arriving after the open are picked up by a forced recompute
	a.seedFullJuly(employeeID)
	resp = a.do("POST", "/api/periods/2026-07/recalculate", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var period struct {
		Totals struct {
			SlipCount int    `json:"slip_count"`
			TotalNet  string `json:"total_net"`
		} `json:"totals"`
	}
	decode(t, resp, &period)
	require.Equal(t, 1, period.Totals.SlipCount)
	assert.Equal(t, "30937500.00", period.Totals.TotalNet)
}

func TestPeriods_FinalizeFreezesSlips(t *testing.T) {
	// GIVEN: A finalized July with one slip
	// WHEN: A contract raise lands afterwards and a recompute is forced
	// THEN: The slip keeps its finalized status and original numbers

	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")
	a.seedFullJuly(employeeID)

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = a.do("POST", "/api/periods/2026-07/lock", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do("POST", "/api/periods/2026-07/finalize", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do("POST", "/api/employees/"+employeeID+"/contracts", a.staff, map[string]any{
		"employee_id":       employeeID,
		"base_salary":       "30000000",
		"insurance_salary":  "10000000",
		"standard_workdays": "22",
		"effective_from":    "2026-07",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do("POST", "/api/periods/2026-07/recalculate", a.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do("GET", "/api/employees/"+employeeID+"/slips/2026-07", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slip slipResponse
	decode(t, resp, &slip)
	assert.Equal(t, "finalized", slip.Status)
	assert.Equal(t, "33130000.00", slip.Gross, "raise must not leak into a finalized month")
}

// =============================================================================
// SOURCE INPUT VALIDATION
// =============================================================================

func TestAdjustments_Validation(t *testing.T) {
	a := newTestAPI(t)
	employeeID := a.seedEmployee("E001")

	resp := a.do("POST", "/api/adjustments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"kind": "bribe", "amount": "500000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown kind")

	resp = a.do("POST", "/api/adjustments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"kind": "penalty", "amount": "-500000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "negative amount")

	resp = a.do("POST", "/api/adjustments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "July 2026",
		"kind": "penalty", "amount": "500000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "malformed month")
}

func TestTimesheets_ValidationAndListing(t *testing.T) {
	a := newTestAPI(t)
	employeeID := a.seedEmployee("E001")

	// Paid days cannot exceed standard days
	resp := a.do("PUT", "/api/timesheets", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"standard_days": "22", "paid_days": "30",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do("PUT", "/api/timesheets", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"standard_days": "22", "paid_days": "20",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do("GET", "/api/timesheets?month=2026-07", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sheets []map[string]any
	decode(t, resp, &sheets)
	require.Len(t, sheets, 1)
	assert.Equal(t, "20", sheets[0]["paid_days"])
}

func TestAssessments_TransitionOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	employeeID := a.seedEmployee("E001")

	resp := a.do("PUT", "/api/assessments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"criteria": []map[string]any{
			{"name": "Delivery", "weight": "100", "score": "80"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assessment map[string]any
	decode(t, resp, &assessment)
	assert.Equal(t, "draft", assessment["status"])
	assert.Equal(t, "80", assessment["total_score"])

	// Draft cannot jump straight to approved
	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-07/transition", a.staff,
		map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-07/transition", a.staff,
		map[string]any{"status": "submitted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-07/transition", a.staff,
		map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &assessment)
	assert.Equal(t, "hr@acme", assessment["approved_by"])

	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-09/transition", a.staff,
		map[string]any{"status": "submitted"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssessments_SaveCannotBypassStatusMachine(t *testing.T) {
	// GIVEN: An approved July assessment whose score fed the slip
	// WHEN: A plain PUT tries to replace the criteria
	// THEN: The write is rejected and the approved score stands; the slip
	//       keeps its KPI bonus untouched

	a := newTestAPI(t)
	a.seedConfig()
	employeeID := a.seedEmployee("E001")
	a.seedFullJuly(employeeID)

	resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": "2026-07"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rewrite := map[string]any{
		"employee_id": employeeID, "month": "2026-07",
		"criteria": []map[string]any{
			{"name": "Delivery", "weight": "100", "score": "10"},
		},
	}
	resp = a.do("PUT", "/api/assessments", a.staff, rewrite)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("GET", "/api/assessments?month=2026-07", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assessments []map[string]any
	decode(t, resp, &assessments)
	require.Len(t, assessments, 1)
	assert.Equal(t, "approved", assessments[0]["status"])
	assert.Equal(t, "92", assessments[0]["total_score"])

	resp = a.do("GET", "/api/employees/"+employeeID+"/slips/2026-07", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slip slipResponse
	decode(t, resp, &slip)
	assert.Equal(t, "A", slip.KPIGrade)
	assert.Equal(t, "30937500.00", slip.Net)

	// A submitted assessment is equally frozen until pulled back to draft
	resp = a.do("PUT", "/api/assessments", a.staff, map[string]any{
		"employee_id": employeeID, "month": "2026-08",
		"criteria":    []map[string]any{{"name": "Delivery", "weight": "100", "score": "70"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-08/transition", a.staff,
		map[string]any{"status": "submitted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	augustRewrite := map[string]any{
		"employee_id": employeeID, "month": "2026-08",
		"criteria":    []map[string]any{{"name": "Delivery", "weight": "100", "score": "75"}},
	}
	resp = a.do("PUT", "/api/assessments", a.staff, augustRewrite)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do("POST", "/api/assessments/"+employeeID+"/2026-08/transition", a.staff,
		map[string]any{"status": "draft"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do("PUT", "/api/assessments", a.staff, augustRewrite)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// CONFIG VERSIONING
// =============================================================================

func TestConfig_ActiveRequiresAllKinds(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do("GET", "/api/config", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing saved yet")

	// Three of four kinds is still not an active bundle
	for _, kind := range []string{"tax", "insurance", "grades"} {
		resp = a.do("POST", "/api/config/"+kind, a.admin,
			map[string]any{"document": configDocs[kind]})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = a.do("GET", "/api/config", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do("POST", "/api/config/commission", a.admin,
		map[string]any{"document": configDocs["commission"]})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do("GET", "/api/config", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active struct {
		Versions struct {
			Tax int `json:"tax"`
		} `json:"versions"`
	}
	decode(t, resp, &active)
	assert.Equal(t, 1, active.Versions.Tax)
}

func TestConfig_VersionsAppend(t *testing.T) {
	a := newTestAPI(t)
	a.seedConfig()

	// A second tax table becomes version 2
	doc := map[string]any{
		"personal_deduction":  15000000,
		"dependent_deduction": 6000000,
		"brackets": []map[string]any{
			{"up_to": 10000000, "rate_percent": 5},
			{"rate_percent": 10},
		},
	}
	resp := a.do("POST", "/api/config/tax", a.admin, map[string]any{"document": doc})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved struct {
		Version int `json:"version"`
	}
	decode(t, resp, &saved)
	assert.Equal(t, 2, saved.Version)

	resp = a.do("GET", "/api/config/tax/versions", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var versions []struct {
		Version  int `json:"version"`
		Document any `json:"document"`
	}
	decode(t, resp, &versions)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version, "newest first")
	assert.NotNil(t, versions[0].Document)
}

func TestConfig_RejectsBrokenDocuments(t *testing.T) {
	a := newTestAPI(t)

	// Parses as JSON but the final bracket is bounded
	resp := a.do("POST", "/api/config/tax", a.admin, map[string]any{
		"document": map[string]any{
			"brackets": []map[string]any{{"up_to": 5000000, "rate_percent": 5}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do("POST", "/api/config/holiday_calendar", a.admin,
		map[string]any{"document": map[string]any{}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do("GET", "/api/config/holiday_calendar/versions", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// MISC
// =============================================================================

func TestPeriods_List(t *testing.T) {
	a := newTestAPI(t)
	a.seedConfig()

	for _, month := range []string{"2026-06", "2026-07"} {
		resp := a.do("POST", "/api/periods", a.admin, map[string]any{"month": month})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do("GET", "/api/periods", a.staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var periods []map[string]any
	decode(t, resp, &periods)
	require.Len(t, periods, 2)
	assert.Equal(t, "2026-07", periods[0]["month"], "newest first")

	resp = a.do("GET", "/api/periods/2026-09", a.staff, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
