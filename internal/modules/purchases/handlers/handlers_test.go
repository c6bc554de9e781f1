package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/internal/auth"
	"github.com/stockwatch/stockwatch/internal/clients/eodhd"
	"github.com/stockwatch/stockwatch/internal/domain"
	"github.com/stockwatch/stockwatch/internal/modules/companies"
	"github.com/stockwatch/stockwatch/internal/modules/purchases"
	sqltest "github.com/stockwatch/stockwatch/internal/testing"
)

type stubMarket struct {
	observations []domain.PriceObservation
	err          error
}

func (s *stubMarket) DailyHistory(_ context.Context, _ string) ([]domain.PriceObservation, error) {
	return s.observations, s.err
}

type fixture struct {
	handler *Handler
	company *domain.Company
	user    *domain.User
	cleanup func()
}

func newFixture(t *testing.T, market *stubMarket) *fixture {
	t.Helper()

	db, cleanup := sqltest.NewTestDB(t, "stockwatch")

	_, err := db.Exec("INSERT INTO firms (name) VALUES ('Acme')")
	require.NoError(t, err)
	_, err = db.Exec(
		"INSERT INTO users (firm_id, email, name, password_hash) VALUES (1, 'jo@example.com', 'Jo', 'x')")
	require.NoError(t, err)

	companiesRepo := companies.NewRepository(db.Conn())
	company, err := companiesRepo.GetOrCreate("TSCO.LSE", "Tesco PLC", "GBX")
	require.NoError(t, err)

	repo := purchases.NewRepository(db.Conn())
	service := purchases.NewService(db.Conn(), repo, companiesRepo, market, zerolog.Nop())

	return &fixture{
		handler: NewHandler(service, zerolog.Nop()),
		company: company,
		user:    &domain.User{ID: 1, FirmID: 1, Email: "jo@example.com", Name: "Jo"},
		cleanup: cleanup,
	}
}

func (f *fixture) createRequest(t *testing.T, body CreatePurchaseRequest) *httptest.ResponseRecorder {
	t.Helper()

	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader(payload))
	req = req.WithContext(auth.WithUser(req.Context(), f.user))
	rec := httptest.NewRecorder()
	f.handler.HandleCreate(rec, req)
	return rec
}

func obs(date, high, low string) domain.PriceObservation {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return domain.PriceObservation{
		Date:  d,
		High:  decimal.RequireFromString(high),
		Low:   decimal.RequireFromString(low),
		Close: decimal.RequireFromString(high),
	}
}

func TestHandleCreateReturnsDualDisplayForms(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		obs("2019-01-04", "800", "350"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Reference: "deal-7",
		Date:      "2019-01-04",
		Quantity:  10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data struct {
			Purchase purchaseView `json:"purchase"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	purchase := body.Data.Purchase
	assert.Equal(t, "575", purchase.Quarter)
	assert.Equal(t, "575.00p", purchase.QuarterMinor)
	assert.Equal(t, "£5.75", purchase.QuarterMajor)
	assert.Equal(t, "5750.00p", purchase.GrossValueMinor)
	assert.Equal(t, "£57.50", purchase.GrossValueMajor)
	assert.Equal(t, "GBX", purchase.CurrencyCode)
}

func TestHandleCreateValidationError(t *testing.T) {
	f := newFixture(t, &stubMarket{})
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Date:      "2019-01-04",
		Quantity:  0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateOutOfRangeMessage(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		obs("2019-04-25", "100", "90"),
		obs("2019-05-03", "110", "95"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Date:      "2019-01-01",
		Quantity:  1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "We have figures between 2019-04-25 - 2019-05-03")
}

func TestHandleCreateDataUnavailableMessage(t *testing.T) {
	f := newFixture(t, &stubMarket{err: eodhd.ErrDataUnavailable{Symbol: "TSCO.LSE", Reason: "empty price series"}})
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Date:      "2019-01-04",
		Quantity:  1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "No stock data for that day")
}

func TestHandleCreateUpstreamFailureMessage(t *testing.T) {
	f := newFixture(t, &stubMarket{err: eodhd.ErrUpstream{Status: http.StatusBadGateway}})
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Date:      "2019-01-04",
		Quantity:  1,
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestHandleExportServesCSV(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		obs("2019-01-04", "215.5", "208"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	rec := f.createRequest(t, CreatePurchaseRequest{
		CompanyID: f.company.ID,
		Reference: "deal-7",
		Date:      "2019-01-04",
		Quantity:  10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/purchases/export", nil)
	req = req.WithContext(auth.WithUser(req.Context(), f.user))
	exportRec := httptest.NewRecorder()
	f.handler.HandleExport(exportRec, req)

	require.Equal(t, http.StatusOK, exportRec.Code)
	assert.Equal(t, "text/csv", exportRec.Header().Get("Content-Type"))
	assert.Contains(t, exportRec.Header().Get("Content-Disposition"), "StockWatch.csv")

	body := exportRec.Body.String()
	assert.Contains(t, body, "Reference,Company,Date,High,Low,Quarter,Amount,Gross Value,currency\r\n")
	assert.Contains(t, body, "deal-7,Tesco PLC,2019-01-04,215.500000,208.000000,211.750000,10,2117.500000,GBX\r\n")
}

func TestHandleListEmptyArchive(t *testing.T) {
	f := newFixture(t, &stubMarket{})
	defer f.cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/purchases", nil)
	req = req.WithContext(auth.WithUser(req.Context(), f.user))
	rec := httptest.NewRecorder()
	f.handler.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []purchaseView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
}
