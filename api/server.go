/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend
  5. Auth:       JWT tenant authentication on /api/*

ROUTE GROUPS:
  /api/employees/*    Employee master data, contracts, dependents
  /api/timesheets/*   Monthly attendance
  /api/assessments/*  KPI scoring
  /api/adjustments/*  One-off payroll inputs
  /api/revenues/*     Sales revenue
  /api/periods/*      Salary-period lifecycle and slips
  /api/slips/*        Single-slip fetch with snapshot
  /api/config/*       Versioned rate tables (admin)
  /healthz            Liveness probe, unauthenticated

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification and role gating
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the pieces the router needs beyond the handler.
type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes, all tenant-authenticated
	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticator(cfg.JWTSecret))

		// Employee master data
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/contracts", h.ListContracts)
			r.Post("/{id}/contracts", h.SaveContract)
			r.Get("/{id}/dependents", h.ListDependents)
			r.Post("/{id}/dependents", h.SaveDependent)
			r.Delete("/{id}/dependents/{depID}", h.DeleteDependent)
			r.Get("/{id}/slips/{month}", h.GetEmployeeSlip)
		})

		// Monthly source inputs (deadline-guarded writes)
		r.Route("/timesheets", func(r chi.Router) {
			r.Get("/", h.ListTimesheets)
			r.Put("/", h.SaveTimesheet)
		})
		r.Route("/assessments", func(r chi.Router) {
			r.Get("/", h.ListAssessments)
			r.Put("/", h.SaveAssessment)
			r.Post("/{employeeID}/{month}/transition", h.TransitionAssessment)
		})
		r.Route("/adjustments", func(r chi.Router) {
			r.Get("/", h.ListAdjustments)
			r.Post("/", h.SaveAdjustment)
			r.Delete("/{id}", h.DeleteAdjustment)
		})
		r.Route("/revenues", func(r chi.Router) {
			r.Put("/", h.SaveRevenue)
		})

		// Period lifecycle and slips
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Get("/{month}", h.GetPeriod)
			r.Get("/{month}/slips", h.ListSlips)

			// Lifecycle transitions are admin-only.
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", h.OpenPeriod)
				r.Post("/{month}/lock", h.LockPeriod)
				r.Post("/{month}/reopen", h.ReopenPeriod)
				r.Post("/{month}/finalize", h.FinalizePeriod)
				r.Post("/{month}/recalculate", h.RecalculatePeriod)
			})
		})

		r.Get("/slips/{id}", h.GetSlip)

		// Versioned config documents, admin-only writes
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetActiveConfig)
			r.Get("/{kind}/versions", h.ListConfigVersions)
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/{kind}", h.SaveConfig)
			})
		})
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
