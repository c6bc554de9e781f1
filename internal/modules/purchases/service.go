package purchases

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockwatch/stockwatch/internal/database"
	"github.com/stockwatch/stockwatch/internal/domain"
	"github.com/stockwatch/stockwatch/internal/modules/companies"
	"github.com/stockwatch/stockwatch/internal/pricing"
)

// ValidationError reports a rejected form field. It never reaches the
// provider; validation happens before any lookup.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MarketData is the provider surface the purchase service needs.
type MarketData interface {
	DailyHistory(ctx context.Context, symbol string) ([]domain.PriceObservation, error)
}

// Service coordinates a purchase submission: price lookup, trading-day
// resolution, valuation and the single archive write.
type Service struct {
	db        *sql.DB
	repo      *Repository
	companies *companies.Repository
	market    MarketData
	log       zerolog.Logger
}

// NewService creates a purchase service.
func NewService(db *sql.DB, repo *Repository, companiesRepo *companies.Repository, market MarketData, log zerolog.Logger) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		companies: companiesRepo,
		market:    market,
		log:       log.With().Str("service", "purchases").Logger(),
	}
}

// CreateInput is a purchase submission.
type CreateInput struct {
	CompanyID int64
	Reference string
	Date      string
	Quantity  int64
}

// CreateResult is the persisted record plus price context for the response.
type CreateResult struct {
	Record *domain.PurchaseRecord
	// SMA20 is the 20-day close average up to the resolved trading day;
	// nil when the series is too short.
	SMA20 *decimal.Decimal
}

// Create values and persists one purchase. The stored trade date is the
// resolved trading day, not the requested one, so the archive only ever
// contains dates with observed prices.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (*CreateResult, error) {
	if input.Quantity < 1 {
		return nil, ValidationError{Field: "quantity", Message: "Quantity must be a positive whole number"}
	}

	requested, err := parseRequestDate(input.Date)
	if err != nil {
		return nil, ValidationError{Field: "date", Message: "Enter a valid date"}
	}

	company, err := s.companies.GetByID(input.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, ValidationError{Field: "company", Message: "Unknown company"}
	}

	observations, err := s.market.DailyHistory(ctx, company.Symbol)
	if err != nil {
		return nil, err
	}

	observation, err := pricing.ResolveTradingDay(observations, requested)
	if err != nil {
		return nil, err
	}

	quarter := pricing.QuarterPrice(observation.High, observation.Low)
	gross := pricing.GrossValue(quarter, input.Quantity)

	record := &domain.PurchaseRecord{
		UserID:     userID,
		Company:    *company,
		Reference:  input.Reference,
		TradeDate:  observation.Date,
		High:       observation.High,
		Low:        observation.Low,
		Quarter:    quarter,
		Quantity:   input.Quantity,
		GrossValue: gross,
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		id, err := s.repo.CreateTx(tx, record)
		if err != nil {
			return err
		}
		record.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Read the row back so the response carries the stored created_at,
	// not an approximation that disagrees with later listings.
	stored, err := s.repo.GetByID(userID, record.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("purchase %d missing after insert", record.ID)
	}

	s.log.Info().
		Str("symbol", company.Symbol).
		Str("trade_date", stored.TradeDate.Format("2006-01-02")).
		Str("quarter", quarter.String()).
		Int64("quantity", input.Quantity).
		Msg("Purchase recorded")

	result := &CreateResult{Record: stored}
	if sma, ok := pricing.CloseSMA(observations, observation); ok {
		result.SMA20 = &sma
	}

	return result, nil
}

// List returns the user's archive, optionally filtered by reference.
func (s *Service) List(userID int64, reference string) ([]domain.PurchaseRecord, error) {
	return s.repo.ListByOwner(userID, reference)
}

// parseRequestDate accepts ISO dates from the date picker and DD/MM/YYYY
// from manual entry.
func parseRequestDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse("02/01/2006", value)
}

// parseDate parses a stored trade date.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt trade date %q: %w", value, err)
	}
	return t, nil
}
