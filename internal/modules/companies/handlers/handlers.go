// Package handlers provides HTTP handlers for company and currency operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stockwatch/stockwatch/internal/modules/companies"
)

// Handler handles company HTTP requests
type Handler struct {
	repo   *companies.Repository
	search *companies.SearchService
	log    zerolog.Logger
}

// NewHandler creates a new companies handler
func NewHandler(repo *companies.Repository, search *companies.SearchService, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		search: search,
		log:    log.With().Str("handler", "companies").Logger(),
	}
}

// CreateCompanyRequest represents a get-or-create submission from the picker.
type CreateCompanyRequest struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currency_code"`
}

// HandleSearchSymbols handles GET /api/symbols/search?q=
func (h *Handler) HandleSearchSymbols(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": []interface{}{}})
		return
	}

	matches := h.search.Search(r.Context(), query)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": matches})
}

// HandleCreateCompany handles POST /api/companies
func (h *Handler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Symbol = strings.TrimSpace(req.Symbol)
	req.Name = strings.TrimSpace(req.Name)
	if req.Symbol == "" || req.Name == "" || req.CurrencyCode == "" {
		http.Error(w, "symbol, name and currency_code are required", http.StatusBadRequest)
		return
	}

	company, err := h.repo.GetOrCreate(req.Symbol, req.Name, req.CurrencyCode)
	if err != nil {
		if errors.Is(err, companies.ErrUnknownCurrency) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to get or create company")
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": company})
}

// HandleListCurrencies handles GET /api/currencies
func (h *Handler) HandleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.repo.ListCurrencies()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list currencies")
		http.Error(w, "Failed to list currencies", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": currencies})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
