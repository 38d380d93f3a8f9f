package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all routes on the given chi router. planLimit, when
// non-nil, wraps the plan routes.
func MountRoutes(r chi.Router, h *Handlers, planLimit func(http.Handler) http.Handler) {
	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)
	r.Get("/test-db", h.TestDB)

	r.Group(func(r chi.Router) {
		if planLimit != nil {
			r.Use(planLimit)
		}
		r.Post("/plan", h.Plan)
		r.Post("/plan/auto-save", h.PlanAutoSave)
		r.Post("/plan/submit", h.PlanSubmit)
	})
}
