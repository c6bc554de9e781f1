package purchases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/internal/domain"
	"github.com/stockwatch/stockwatch/internal/modules/companies"
	"github.com/stockwatch/stockwatch/internal/pricing"
	sqltest "github.com/stockwatch/stockwatch/internal/testing"
)

type stubMarket struct {
	observations []domain.PriceObservation
	err          error
}

func (s *stubMarket) DailyHistory(_ context.Context, _ string) ([]domain.PriceObservation, error) {
	return s.observations, s.err
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func observation(date, high, low string) domain.PriceObservation {
	return domain.PriceObservation{
		Date:  day(date),
		High:  decimal.RequireFromString(high),
		Low:   decimal.RequireFromString(low),
		Close: decimal.RequireFromString(high),
	}
}

type fixture struct {
	service *Service
	company *domain.Company
	userID  int64
	market  *stubMarket
	cleanup func()
}

func newFixture(t *testing.T, market *stubMarket) *fixture {
	t.Helper()

	db, cleanup := sqltest.NewTestDB(t, "stockwatch")

	_, err := db.Exec("INSERT INTO firms (name) VALUES ('Acme')")
	require.NoError(t, err)
	result, err := db.Exec(
		"INSERT INTO users (firm_id, email, name, password_hash) VALUES (1, 'jo@example.com', 'Jo', 'x')")
	require.NoError(t, err)
	userID, err := result.LastInsertId()
	require.NoError(t, err)

	companiesRepo := companies.NewRepository(db.Conn())
	company, err := companiesRepo.GetOrCreate("TSCO.LSE", "Tesco PLC", "GBX")
	require.NoError(t, err)

	repo := NewRepository(db.Conn())
	service := NewService(db.Conn(), repo, companiesRepo, market, zerolog.Nop())

	return &fixture{
		service: service,
		company: company,
		userID:  userID,
		market:  market,
		cleanup: cleanup,
	}
}

func TestCreateComputesQuarterAndGross(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-03", "800", "350"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	result, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Reference: "deal-7",
		Date:      "2019-01-03",
		Quantity:  10,
	})
	require.NoError(t, err)

	record := result.Record
	assert.True(t, record.Quarter.Equal(decimal.RequireFromString("575")),
		"quarter should be the high/low midpoint, got %s", record.Quarter)
	assert.True(t, record.GrossValue.Equal(decimal.RequireFromString("5750")))
	assert.Equal(t, "deal-7", record.Reference)
	assert.NotZero(t, record.ID)
}

func TestCreateWeekendStoresResolvedDate(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-03", "210", "200"),
		observation("2019-01-04", "215", "205"),
		observation("2019-01-07", "220", "210"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	// Saturday resolves back to Friday, and Friday is what gets archived
	result, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "2019-01-05",
		Quantity:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "2019-01-04", result.Record.TradeDate.Format("2006-01-02"))

	records, err := f.service.List(f.userID, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2019-01-04", records[0].TradeDate.Format("2006-01-02"))
}

func TestCreateAcceptsBritishDateFormat(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-04", "215", "205"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	result, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "04/01/2019",
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "2019-01-04", result.Record.TradeDate.Format("2006-01-02"))
}

func TestCreateRejectsBadQuantity(t *testing.T) {
	f := newFixture(t, &stubMarket{})
	defer f.cleanup()

	for _, quantity := range []int64{0, -5} {
		_, err := f.service.Create(context.Background(), f.userID, CreateInput{
			CompanyID: f.company.ID,
			Date:      "2019-01-04",
			Quantity:  quantity,
		})
		var validation ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "quantity", validation.Field)
	}
}

func TestCreateRejectsBadDate(t *testing.T) {
	f := newFixture(t, &stubMarket{})
	defer f.cleanup()

	_, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "not-a-date",
		Quantity:  1,
	})

	var validation ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "date", validation.Field)
}

func TestCreateOutOfRangePassesThrough(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-04-25", "100", "90"),
		observation("2019-05-03", "110", "95"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	_, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "2019-01-01",
		Quantity:  1,
	})

	var oor pricing.ErrOutOfRange
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, "We have figures between 2019-04-25 - 2019-05-03", err.Error())
}

func TestCreateProviderErrorLeavesArchiveUntouched(t *testing.T) {
	f := newFixture(t, &stubMarket{err: errors.New("provider down")})
	defer f.cleanup()

	_, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "2019-01-04",
		Quantity:  1,
	})
	require.Error(t, err)

	records, listErr := f.service.List(f.userID, "")
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestCreateIncludesSMAWhenSeriesLongEnough(t *testing.T) {
	observations := make([]domain.PriceObservation, 0, 25)
	for i := 0; i < 25; i++ {
		observations = append(observations, domain.PriceObservation{
			Date:  day("2019-01-01").AddDate(0, 0, i),
			High:  decimal.NewFromInt(110),
			Low:   decimal.NewFromInt(90),
			Close: decimal.NewFromInt(100),
		})
	}
	f := newFixture(t, &stubMarket{observations: observations})
	defer f.cleanup()

	result, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Date:      "2019-01-25",
		Quantity:  1,
	})
	require.NoError(t, err)
	require.NotNil(t, result.SMA20)
	assert.Equal(t, "100", result.SMA20.Truncate(0).String())
}

func TestCreateResponseMatchesListing(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-04", "215", "205"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	result, err := f.service.Create(context.Background(), f.userID, CreateInput{
		CompanyID: f.company.ID,
		Reference: "deal-9",
		Date:      "2019-01-04",
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.False(t, result.Record.CreatedAt.IsZero())

	records, err := f.service.List(f.userID, "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The create response must show exactly what the archive stored
	assert.Equal(t, records[0].ID, result.Record.ID)
	assert.True(t, records[0].CreatedAt.Equal(result.Record.CreatedAt),
		"created_at in the response (%s) must match the stored row (%s)",
		result.Record.CreatedAt, records[0].CreatedAt)
	assert.Equal(t, records[0].Reference, result.Record.Reference)
}

func TestListFiltersByReferenceAndScopesToOwner(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-04", "215", "205"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	for _, ref := range []string{"alpha", "beta", "alpha"} {
		_, err := f.service.Create(context.Background(), f.userID, CreateInput{
			CompanyID: f.company.ID,
			Reference: ref,
			Date:      "2019-01-04",
			Quantity:  1,
		})
		require.NoError(t, err)
	}

	all, err := f.service.List(f.userID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alpha, err := f.service.List(f.userID, "alpha")
	require.NoError(t, err)
	assert.Len(t, alpha, 2)

	// A different user sees nothing
	other, err := f.service.List(f.userID+1, "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListNewestFirst(t *testing.T) {
	market := &stubMarket{observations: []domain.PriceObservation{
		observation("2019-01-04", "215", "205"),
	}}
	f := newFixture(t, market)
	defer f.cleanup()

	for _, ref := range []string{"first", "second", "third"} {
		_, err := f.service.Create(context.Background(), f.userID, CreateInput{
			CompanyID: f.company.ID,
			Reference: ref,
			Date:      "2019-01-04",
			Quantity:  1,
		})
		require.NoError(t, err)
	}

	records, err := f.service.List(f.userID, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Reference)
	assert.Equal(t, "first", records[2].Reference)
}
