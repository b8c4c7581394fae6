/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Recoverer:  Panic recovery (500 instead of crash)
  2. RequestID:  Unique ID per request for tracing
  3. CORS:       Cross-origin requests for the kiosk frontend
  4. RequireSession/RequireAdmin on the protected groups

ROUTE GROUPS:
  /api/session/*        Sign-in state machine (public)
  /api/*                Session-scoped member operations
  /api/admin/*          Operator catalog management
  /metrics              Prometheus scrape endpoint

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Token resolution
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Sign-in flow: public, drives the state machine
		r.Route("/session", func(r chi.Router) {
			r.Post("/start", h.StartSession)
			r.Post("/select", h.SelectAccount)
			r.Post("/add-account", h.AddAccount)
			r.Post("/verify", h.VerifyOTP)
			r.Post("/admin", h.AdminLogin)
			r.With(h.RequireSession).Post("/signout", h.SignOut)
		})

		// Session-scoped member routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Route("/account", func(r chi.Router) {
				r.Get("/", h.GetAccount)
				r.Get("/transactions", h.GetTransactions)
			})

			r.Route("/scan", func(r chi.Router) {
				r.Post("/", h.SubmitScan)
				r.Post("/reset", h.ResetScan)
			})

			r.Route("/rewards", func(r chi.Router) {
				r.Get("/", h.ListRewards)
				r.Post("/{id}/redeem", h.RedeemReward)
			})

			r.Route("/recommendation", func(r chi.Router) {
				r.Get("/", h.GetRecommendation)
				r.Post("/", h.FetchRecommendation)
				r.Post("/redeem", h.RedeemRecommendation)
			})

			r.Get("/notices", h.ListNotices)
			r.Delete("/notices/{id}", h.DismissNotice)
		})

		// Operator routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Use(h.RequireAdmin)

			r.Route("/rewards", func(r chi.Router) {
				r.Post("/", h.CreateReward)
				r.Put("/{id}", h.UpdateReward)
				r.Delete("/{id}", h.DeleteReward)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
