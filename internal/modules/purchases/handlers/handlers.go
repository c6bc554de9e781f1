// Package handlers provides HTTP handlers for the purchase archive.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwatch/stockwatch/internal/auth"
	"github.com/stockwatch/stockwatch/internal/clients/eodhd"
	"github.com/stockwatch/stockwatch/internal/domain"
	"github.com/stockwatch/stockwatch/internal/modules/purchases"
	"github.com/stockwatch/stockwatch/internal/pricing"
)

// Handler handles purchase HTTP requests
type Handler struct {
	service *purchases.Service
	log     zerolog.Logger
}

// NewHandler creates a new purchases handler
func NewHandler(service *purchases.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "purchases").Logger(),
	}
}

// CreatePurchaseRequest represents a purchase form submission.
type CreatePurchaseRequest struct {
	CompanyID int64  `json:"company_id"`
	Reference string `json:"reference"`
	Date      string `json:"date"`
	Quantity  int64  `json:"quantity"`
}

// purchaseView is a record plus its display forms.
type purchaseView struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	CompanyName     string `json:"company_name"`
	CompanySymbol   string `json:"company_symbol"`
	TradeDate       string `json:"trade_date"`
	High            string `json:"high"`
	Low             string `json:"low"`
	Quarter         string `json:"quarter"`
	Quantity        int64  `json:"quantity"`
	GrossValue      string `json:"gross_value"`
	QuarterMinor    string `json:"quarter_display_minor"`
	QuarterMajor    string `json:"quarter_display_major"`
	GrossValueMinor string `json:"gross_value_display_minor"`
	GrossValueMajor string `json:"gross_value_display_major"`
	CurrencyCode    string `json:"currency_code"`
	CreatedAt       string `json:"created_at"`
}

func newPurchaseView(record domain.PurchaseRecord) purchaseView {
	currency := record.Company.Currency
	quarter := domain.NewMoney(record.Quarter, currency)
	gross := domain.NewMoney(record.GrossValue, currency)

	return purchaseView{
		ID:              record.ID,
		Reference:       record.Reference,
		CompanyName:     record.Company.Name,
		CompanySymbol:   record.Company.Symbol,
		TradeDate:       record.TradeDate.Format("2006-01-02"),
		High:            record.High.String(),
		Low:             record.Low.String(),
		Quarter:         record.Quarter.String(),
		Quantity:        record.Quantity,
		GrossValue:      record.GrossValue.String(),
		QuarterMinor:    quarter.Minor(),
		QuarterMajor:    quarter.Major(),
		GrossValueMinor: gross.Minor(),
		GrossValueMajor: gross.Major(),
		CurrencyCode:    currency.Code,
		CreatedAt:       record.CreatedAt.Format(time.RFC3339),
	}
}

// HandleCreate handles POST /api/purchases
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Create(r.Context(), user.ID, purchases.CreateInput{
		CompanyID: req.CompanyID,
		Reference: req.Reference,
		Date:      req.Date,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	data := map[string]interface{}{
		"purchase": newPurchaseView(*result.Record),
	}
	if result.SMA20 != nil {
		data["close_sma20"] = result.SMA20.StringFixed(2)
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": data})
}

// HandleList handles GET /api/purchases?ref=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	records, err := h.service.List(user.ID, r.URL.Query().Get("ref"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list purchases")
		http.Error(w, "Failed to list purchases", http.StatusInternalServerError)
		return
	}

	views := make([]purchaseView, 0, len(records))
	for _, record := range records {
		views = append(views, newPurchaseView(record))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": views})
}

// HandleExport handles POST /api/purchases/export?ref=
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	records, err := h.service.List(user.ID, r.URL.Query().Get("ref"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load purchases for export")
		http.Error(w, "Failed to export purchases", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="StockWatch.csv"`)

	if err := purchases.WriteCSV(w, records); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// writeError maps service failures to status codes and the user-visible
// messages the form shows.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validation purchases.ValidationError
	if errors.As(err, &validation) {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{
				"message": validation.Message,
				"field":   validation.Field,
			},
		})
		return
	}

	var outOfRange pricing.ErrOutOfRange
	if errors.As(err, &outOfRange) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": map[string]interface{}{"message": outOfRange.Error()},
		})
		return
	}

	var unavailable eodhd.ErrDataUnavailable
	if errors.As(err, &unavailable) {
		h.log.Warn().Err(err).Msg("No usable price data")
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": map[string]interface{}{"message": "No stock data for that day"},
		})
		return
	}

	var upstream eodhd.ErrUpstream
	if errors.As(err, &upstream) {
		h.log.Error().Err(err).Msg("Provider failure during purchase")
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": map[string]interface{}{"message": "Something went wrong"},
		})
		return
	}

	h.log.Error().Err(err).Msg("Failed to create purchase")
	http.Error(w, "Failed to create purchase", http.StatusInternalServerError)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
