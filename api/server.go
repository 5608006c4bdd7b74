/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the operator frontend
  5. BasicAuth:  Operator gate, enabled when credentials are configured

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

// AuthConfig enables the HTTP basic-auth gate when both fields are set.
type AuthConfig struct {
	User     string
	Password string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth AuthConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if auth.User != "" && auth.Password != "" {
				r.Use(middleware.BasicAuth("indexation", map[string]string{auth.User: auth.Password}))
			}

			r.Route("/indexation", func(r chi.Router) {
				r.Get("/eligibility", h.Eligibility)
				r.Post("/confirm", h.Confirm)
				r.Route("/history", func(r chi.Router) {
					r.Get("/", h.History)
					r.Get("/{id}", h.HistoryRow)
					r.Get("/{id}/letter", h.Letter)
				})
			})

			r.Route("/index", func(r chi.Router) {
				r.Get("/months", h.IndexMonths)
				r.Get("/years", h.IndexYears)
			})
		})
	})

	return r
}
