/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/vehicles/*     Calendars and pickers
  /api/dashboard/*    Revenue and utilization
  /api/reports/*      CSV exports
  /api/sync*          Mirror sync
  /api/scenarios/*    Demo fleets
  /healthz            Liveness

SECURITY NOTE:
  No authentication middleware. Put the service behind the backend's
  gateway; the upstream token never leaves this process.

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
// allowedOrigins defaults to the local dashboard dev servers.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.Get("/{id}/calendar", h.GetCalendar)
			r.Post("/{id}/range-picks", h.ReplayRangePicks)
			r.Post("/{id}/maintenance-pick", h.PickMaintenanceDay)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/revenue", h.GetMonthlyRevenue)
			r.Get("/daily", h.GetDailyRevenue)
		})

		r.Get("/reports/monthly.csv", h.ExportMonthlyReport)

		r.Post("/sync", h.TriggerSync)
		r.Get("/sync/status", h.GetSyncStatus)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
