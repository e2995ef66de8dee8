/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin dashboards

ROUTE GROUPS:
  /api/payroll/*     Preview, extracts, mark-paid
  /api/clients       Client CRUD
  /api/contractors   Contractor CRUD
  /api/assignments   Assignment CRUD
  /api/timesheets    Scoped timesheet listing
  /api/settings/*    Fiscal calendar configuration
  /api/seed          Demo dataset (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Export-Token"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/preview", h.PreviewPayroll)
			r.Get("/export", h.ExportPayrollCSV)
			r.Get("/export.xlsx", h.ExportPayrollXLSX)
			r.Post("/mark-paid", h.MarkPaid)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
		})

		r.Route("/contractors", func(r chi.Router) {
			r.Get("/", h.ListContractors)
			r.Post("/", h.CreateContractor)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
		})

		r.Get("/timesheets", h.ListTimesheets)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/fiscal", h.GetFiscalSetting)
			r.Put("/fiscal", h.PutFiscalSetting)
		})

		r.Post("/seed", h.SeedDemo)
	})

	// The dashboards are deployed separately; the root just points at the API.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"payroll-engine","api":"/api"}`))
	})

	return r
}
