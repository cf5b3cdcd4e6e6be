/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the system defines using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  hrm.EmployeeStore        Employee master data
  hrm.DependentStore       Tax-deduction dependents
  hrm.ContractStore        Effective-dated pay contracts
  hrm.TimesheetStore       Monthly attendance
  kpi.AssessmentStore      KPI scoring records
  payroll.PeriodStore      Salary-period lifecycle
  payroll.AdjustmentStore  One-off payroll inputs
  payroll.RevenueStore     Sales revenue feeding commission
  payroll.SlipStore        Computed slips with snapshots
  payroll.ConfigProvider   Versioned rate-table documents
  payroll.SourceLoader     Input assembly for recalculation

TENANT SCOPING:
  Every table carries company_id and every query filters on it. A tenant
  can never read or overwrite another tenant's rows through this layer.

ONE-PER-MONTH UNIQUENESS:
  Timesheets, assessments, revenues and slips are unique per
  (company, employee, month), enforced by unique indexes and written as
  upserts. Periods are unique per (company, month).

CONFIG VERSIONING:
  Config documents are append-only: saving a document inserts a new row
  with version = max(version)+1 for its (company, kind). The active
  config is always the highest version of each kind. Old versions are
  never touched, which is what keeps slip snapshots honest.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - hrm_store.go:     employee / dependent / contract / timesheet queries
  - payroll_store.go: period / adjustment / revenue / slip queries
  - kpi_store.go:     assessment queries
  - config_store.go:  versioned config documents, ActiveConfig
  - loader.go:        payroll.SourceLoader implementation
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employee master data
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		status TEXT NOT NULL,
		join_date TEXT NOT NULL,
		leave_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_company
		ON employees(company_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_company_code
		ON employees(company_id, code);

	-- Dependents (per-dependent tax deduction)
	CREATE TABLE IF NOT EXISTS dependents (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		relation TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_dependents_employee
		ON dependents(company_id, employee_id);

	-- Contracts (effective-dated, never edited once a slip used them)
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		status TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		insurance_salary TEXT NOT NULL,
		kpi_bonus_base TEXT NOT NULL,
		commission_eligible BOOLEAN NOT NULL DEFAULT FALSE,
		standard_workdays TEXT NOT NULL,
		overtime_multiplier TEXT NOT NULL,
		hours_per_day TEXT NOT NULL,
		allowances_json TEXT,
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_employee
		ON contracts(company_id, employee_id, effective_from);

	-- Timesheets (one per employee per month)
	CREATE TABLE IF NOT EXISTS timesheets (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		standard_days TEXT NOT NULL,
		paid_days TEXT NOT NULL,
		unpaid_leave_days TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		updated_by TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_timesheets_unique
		ON timesheets(company_id, employee_id, month);
	CREATE INDEX IF NOT EXISTS idx_timesheets_month
		ON timesheets(company_id, month);

	-- KPI assessments (one per employee per month)
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		criteria_json TEXT,
		total_score TEXT NOT NULL,
		reviewer_id TEXT,
		approved_by TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_assessments_unique
		ON assessments(company_id, employee_id, month);
	CREATE INDEX IF NOT EXISTS idx_assessments_month
		ON assessments(company_id, month);

	-- Salary periods (one per company per month)
	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		input_deadline TEXT,
		slip_count INTEGER NOT NULL DEFAULT 0,
		total_gross TEXT NOT NULL DEFAULT '0',
		total_net TEXT NOT NULL DEFAULT '0',
		total_employer_cost TEXT NOT NULL DEFAULT '0',
		total_tax TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		finalized_at TEXT,
		finalized_by TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_unique
		ON periods(company_id, month);

	-- One-off adjustments
	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		taxable BOOLEAN NOT NULL DEFAULT FALSE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_employee_month
		ON adjustments(company_id, employee_id, month);

	-- Sales revenue (one per employee per month)
	CREATE TABLE IF NOT EXISTS revenues (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		amount TEXT NOT NULL,
		source TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_revenues_unique
		ON revenues(company_id, employee_id, month);

	-- Payroll slips (one per employee per month; hot path is month listing)
	CREATE TABLE IF NOT EXISTS slips (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		gross TEXT NOT NULL,
		taxable_income TEXT NOT NULL,
		income_tax TEXT NOT NULL,
		employee_insurance TEXT NOT NULL,
		deductions TEXT NOT NULL,
		net TEXT NOT NULL,
		employer_cost TEXT NOT NULL,
		kpi_grade TEXT,
		snapshot_json TEXT NOT NULL,
		computed_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_slips_unique
		ON slips(company_id, employee_id, month);
	CREATE INDEX IF NOT EXISTS idx_slips_month
		ON slips(company_id, month);

	-- Config documents (append-only; active = highest version per kind)
	CREATE TABLE IF NOT EXISTS config_documents (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		version INTEGER NOT NULL,
		document TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_config_documents_unique
		ON config_documents(company_id, kind, version);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseDecimal hydrates a stored decimal. Rows are written by this
// package, so a parse failure is treated as zero rather than an error.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseMonth hydrates a stored "YYYY-MM" key.
func parseMonth(s string) engine.Month {
	m, _ := engine.ParseMonth(s)
	return m
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
