package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes mounts the API under /api/v1 and delegates everything else to fallback (health checks).
func (h *Handler) Routes(fallback http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.CleanPath)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.CreateAppointment)
			r.Get("/", h.ListAppointments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAppointment)
				r.Get("/history", h.History)
				r.Post("/reschedule", h.Reschedule)
				r.Post("/cancel", h.Cancel)
				r.Post("/confirm", h.Confirm)
				r.Post("/complete", h.Complete)
			})
		})
		r.Get("/availability", h.Availability)
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/month", h.Month)
			r.Get("/week", h.Week)
			r.Get("/day", h.Day)
		})
		r.Get("/travel", h.Travel)
	})
	if fallback != nil {
		r.NotFound(fallback.ServeHTTP)
	}
	return r
}
