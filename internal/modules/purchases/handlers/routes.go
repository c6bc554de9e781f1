package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all purchase routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/export", h.HandleExport)
	})
}
