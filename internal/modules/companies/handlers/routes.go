package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all company routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/symbols/search", h.HandleSearchSymbols)
	r.Post("/companies", h.HandleCreateCompany)
	r.Get("/currencies", h.HandleListCurrencies)
}
