package companies

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/stockwatch/stockwatch/internal/domain"
)

type stubSearcher struct {
	matches []domain.SymbolMatch
	err     error
}

func (s *stubSearcher) SearchSymbols(_ context.Context, _ string) ([]domain.SymbolMatch, error) {
	return s.matches, s.err
}

func TestSearchOrdersSterlingFirst(t *testing.T) {
	stub := &stubSearcher{matches: []domain.SymbolMatch{
		{Symbol: "TSCO.US", Name: "Tractor Supply", Currency: "USD"},
		{Symbol: "TSCO.LSE", Name: "Tesco PLC", Currency: "GBX"},
		{Symbol: "TSC.F", Name: "Tesco (Frankfurt)", Currency: "EUR"},
		{Symbol: "TSCDY.US", Name: "Tesco ADR", Currency: "GBP"},
	}}

	svc := NewSearchService(stub, zerolog.Nop())
	results := svc.Search(context.Background(), "tesco")

	assert.Equal(t, "TSCO.LSE", results[0].Symbol)
	assert.Equal(t, "TSCDY.US", results[1].Symbol)
	assert.Equal(t, "TSCO.US", results[2].Symbol)
	assert.Equal(t, "TSC.F", results[3].Symbol)
}

func TestSearchDeduplicatesBySymbol(t *testing.T) {
	stub := &stubSearcher{matches: []domain.SymbolMatch{
		{Symbol: "TSCO.LSE", Name: "Tesco PLC", Currency: "GBX"},
		{Symbol: "TSCO.LSE", Name: "Tesco PLC (dup)", Currency: "GBX"},
	}}

	svc := NewSearchService(stub, zerolog.Nop())
	results := svc.Search(context.Background(), "tesco")

	assert.Len(t, results, 1)
	assert.Equal(t, "Tesco PLC", results[0].Name)
}

func TestSearchUpstreamFailureReturnsEmptySlice(t *testing.T) {
	stub := &stubSearcher{err: errors.New("provider down")}

	svc := NewSearchService(stub, zerolog.Nop())
	results := svc.Search(context.Background(), "tesco")

	assert.NotNil(t, results, "degraded search must still be a JSON array")
	assert.Empty(t, results)
}
