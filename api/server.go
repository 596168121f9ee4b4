/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: zap request logging
  3. Recoverer:     Panic -> 500 {"msg":"Something went wrong!"}
  4. CORS:          Cross-origin requests

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/add", h.AddPoints)
	r.Post("/spend", h.SpendPoints)
	r.Get("/balance", h.GetBalance)
	r.Get("/grants", h.ListGrants)
	r.Get("/health", h.Health)

	return r
}
