package companies

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// SymbolSearcher is the provider surface the search service needs.
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error)
}

// SearchService wraps the provider symbol search with the ordering the
// company picker expects.
type SearchService struct {
	client SymbolSearcher
	log    zerolog.Logger
}

// NewSearchService creates a symbol search service.
func NewSearchService(client SymbolSearcher, log zerolog.Logger) *SearchService {
	return &SearchService{
		client: client,
		log:    log.With().Str("service", "symbol_search").Logger(),
	}
}

// Search returns deduplicated matches with GBP-quoted instruments first.
// An upstream failure degrades to an empty result set; the typeahead must
// never surface a provider outage to the user.
func (s *SearchService) Search(ctx context.Context, query string) []domain.SymbolMatch {
	matches, err := s.client.SearchSymbols(ctx, query)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("Symbol search failed, returning no matches")
		return []domain.SymbolMatch{}
	}

	seen := make(map[string]bool, len(matches))
	sterling := make([]domain.SymbolMatch, 0, len(matches))
	other := make([]domain.SymbolMatch, 0, len(matches))

	for _, m := range matches {
		if seen[m.Symbol] {
			continue
		}
		seen[m.Symbol] = true

		// Pence-quoted LSE listings count as sterling too
		if m.Currency == "GBP" || m.Currency == "GBX" {
			sterling = append(sterling, m)
		} else {
			other = append(other, m)
		}
	}

	return append(sterling, other...)
}
