/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind the proxy
  3. RequestLogger: One logrus entry per request
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/units/*          Per-unit lists, calendar, stats, export
  /api/reservations/*   Reservation lifecycle
  /api/clients/*        Client records
  /api/stats, /api/export  Group-wide reports
  /api/notices/*        Notice board
  /api/status-labels    Display labels

SECURITY NOTE:
  No authentication middleware. The actor is taken from X-Actor, which an
  upstream gateway is expected to set.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultOrigins are allowed when no origin list is configured.
var DefaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", ActorHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Unit routes
		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.ListUnits)
			r.Get("/{unit}/reservations", h.ListDayReservations)
			r.Get("/{unit}/calendar", h.MonthlyCounts)
			r.Get("/{unit}/stats", h.UnitStats)
			r.Get("/{unit}/export", h.ExportUnit)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/{id}", h.GetReservation)
			r.Patch("/{id}", h.UpdateReservation)
			r.Delete("/{id}", h.DeleteReservation)
			r.Post("/{id}/status", h.TransitionReservation)
		})

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.SearchClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
			r.Get("/{id}/completed-count", h.CompletedCount)
		})

		// Report routes
		r.Get("/stats/global", h.GlobalStats)
		r.Get("/export", h.ExportAll)

		// Notice routes
		r.Route("/notices", func(r chi.Router) {
			r.Get("/", h.ListNotices)
			r.Post("/", h.CreateNotice)
			r.Put("/{id}", h.UpdateNotice)
			r.Delete("/{id}", h.DeleteNotice)
		})

		// Status label routes
		r.Get("/status-labels", h.GetStatusLabels)
		r.Put("/status-labels", h.SaveStatusLabels)
		r.Delete("/status-labels", h.ResetStatusLabels)
	})

	return r
}
