// Package eodhd provides a client for the EOD Historical Data API with
// persistent response caching.
package eodhd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockwatch/stockwatch/internal/clientdata"
	"github.com/stockwatch/stockwatch/internal/domain"
)

// ErrUpstream indicates the provider answered with a non-success status or
// the request could not be completed at the transport level.
type ErrUpstream struct {
	Status int
	Err    error
}

func (e ErrUpstream) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

func (e ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrDataUnavailable indicates the provider answered successfully but the
// payload was empty, malformed or could not be parsed.
type ErrDataUnavailable struct {
	Symbol string
	Reason string
}

func (e ErrDataUnavailable) Error() string {
	return fmt.Sprintf("no usable data for %s: %s", e.Symbol, e.Reason)
}

// Client for eodhistoricaldata.com
type Client struct {
	baseURL   string
	apiToken  string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new EOD Historical Data client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiToken string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiToken:  apiToken,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("client", "eodhd").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedPayload is the structure stored in the cache: the raw provider body.
type cachedPayload struct {
	Body []byte `msgpack:"body"`
}

// DailyHistory fetches the full end-of-day price series for a symbol,
// oldest observation first. If the API fails, stale cached data is returned
// when available.
func (c *Client) DailyHistory(ctx context.Context, symbol string) ([]domain.PriceObservation, error) {
	if c.cacheRepo != nil {
		var cached cachedPayload
		found, err := c.cacheRepo.GetIfFresh("eodhd_eod", symbol, &cached)
		if err == nil && found {
			observations, parseErr := parseDailyCSV(symbol, cached.Body)
			if parseErr == nil {
				c.log.Debug().Str("symbol", symbol).Int("rows", len(observations)).Msg("Cache hit")
				return observations, nil
			}
			// A cached body that no longer parses must not shadow refetches
			// or serve as a stale fallback
			if delErr := c.cacheRepo.Delete("eodhd_eod", symbol); delErr != nil {
				c.log.Warn().Err(delErr).Str("symbol", symbol).Msg("Failed to drop corrupt cache entry")
			}
		}
	}

	endpoint := fmt.Sprintf("%s/api/eod/%s/?api_token=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiToken))
	c.log.Debug().Str("symbol", symbol).Msg("Fetching daily history")

	body, upstreamErr := c.fetch(ctx, endpoint)
	if upstreamErr != nil {
		// Provider failed - fall back to stale cached data
		if stale, ok := c.getStaleBody("eodhd_eod", symbol); ok {
			observations, parseErr := parseDailyCSV(symbol, stale)
			if parseErr == nil {
				c.log.Warn().
					Err(upstreamErr).
					Str("symbol", symbol).
					Msg("Provider failed, using stale cached history")
				return observations, nil
			}
		}
		return nil, upstreamErr
	}

	observations, err := parseDailyCSV(symbol, body)
	if err != nil {
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("eodhd_eod", symbol, cachedPayload{Body: body}, clientdata.TTLPriceHistory); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache daily history")
		}
	}

	c.log.Info().Str("symbol", symbol).Int("rows", len(observations)).Msg("Fetched daily history")

	return observations, nil
}

// SearchSymbols queries the provider's symbol search. Results keep the
// provider order; deduplication and currency ordering are a service concern.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	cacheKey := strings.ToLower(strings.TrimSpace(query))

	if c.cacheRepo != nil {
		var cached cachedPayload
		found, err := c.cacheRepo.GetIfFresh("eodhd_search", cacheKey, &cached)
		if err == nil && found {
			matches, parseErr := parseSearchJSON(cached.Body)
			if parseErr == nil {
				c.log.Debug().Str("query", query).Int("matches", len(matches)).Msg("Cache hit")
				return matches, nil
			}
			if delErr := c.cacheRepo.Delete("eodhd_search", cacheKey); delErr != nil {
				c.log.Warn().Err(delErr).Str("query", query).Msg("Failed to drop corrupt cache entry")
			}
		}
	}

	endpoint := fmt.Sprintf("%s/api/search/%s/?api_token=%s", c.baseURL, url.PathEscape(query), url.QueryEscape(c.apiToken))
	c.log.Debug().Str("query", query).Msg("Searching symbols")

	body, upstreamErr := c.fetch(ctx, endpoint)
	if upstreamErr != nil {
		if stale, ok := c.getStaleBody("eodhd_search", cacheKey); ok {
			matches, parseErr := parseSearchJSON(stale)
			if parseErr == nil {
				c.log.Warn().
					Err(upstreamErr).
					Str("query", query).
					Msg("Provider failed, using stale cached search results")
				return matches, nil
			}
		}
		return nil, upstreamErr
	}

	matches, err := parseSearchJSON(body)
	if err != nil {
		return nil, ErrDataUnavailable{Symbol: query, Reason: err.Error()}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("eodhd_search", cacheKey, cachedPayload{Body: body}, clientdata.TTLSymbolSearch); err != nil {
			c.log.Warn().Err(err).Str("query", query).Msg("Failed to cache search results")
		}
	}

	return matches, nil
}

// fetch performs a GET request and returns the body, mapping transport and
// status failures to ErrUpstream.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ErrUpstream{Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ErrUpstream{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUpstream{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrUpstream{Err: err}
	}

	return body, nil
}

// getStaleBody retrieves a cached body even if expired.
func (c *Client) getStaleBody(table, key string) ([]byte, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached cachedPayload
	found, err := c.cacheRepo.Get(table, key, &cached)
	if err != nil || !found {
		return nil, false
	}

	return cached.Body, len(cached.Body) > 0
}

// parseDailyCSV parses the provider's EOD CSV payload:
// Date,Open,High,Low,Close,Adjusted_close,Volume
// Any row with an unparseable numeric fails the whole request; partial price
// series would silently corrupt valuations.
func parseDailyCSV(symbol string, body []byte) ([]domain.PriceObservation, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}

	if len(records) < 2 {
		return nil, ErrDataUnavailable{Symbol: symbol, Reason: "empty price series"}
	}

	header := records[0]
	if len(header) < 7 || !strings.EqualFold(header[0], "Date") {
		return nil, ErrDataUnavailable{Symbol: symbol, Reason: "unexpected CSV header"}
	}

	observations := make([]domain.PriceObservation, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) == 1 && record[0] == "" {
			continue
		}
		if len(record) < 7 {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("short row %d", i+2)}
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad date %q on row %d", record[0], i+2)}
		}

		open, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad open %q on row %d", record[1], i+2)}
		}
		high, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad high %q on row %d", record[2], i+2)}
		}
		low, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad low %q on row %d", record[3], i+2)}
		}
		closePrice, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad close %q on row %d", record[4], i+2)}
		}

		volume, err := strconv.ParseInt(record[6], 10, 64)
		if err != nil {
			return nil, ErrDataUnavailable{Symbol: symbol, Reason: fmt.Sprintf("bad volume %q on row %d", record[6], i+2)}
		}

		observations = append(observations, domain.PriceObservation{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(observations) == 0 {
		return nil, ErrDataUnavailable{Symbol: symbol, Reason: "empty price series"}
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})

	return observations, nil
}

// searchResult is one entry of the provider's search JSON.
type searchResult struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Country  string `json:"Country"`
	Currency string `json:"Currency"`
}

// parseSearchJSON parses the provider's symbol search payload. The full
// symbol is Code.Exchange, matching what the EOD endpoint expects.
func parseSearchJSON(body []byte) ([]domain.SymbolMatch, error) {
	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("invalid search payload: %w", err)
	}

	matches := make([]domain.SymbolMatch, 0, len(results))
	for _, r := range results {
		symbol := r.Code
		if r.Exchange != "" {
			symbol = r.Code + "." + r.Exchange
		}
		matches = append(matches, domain.SymbolMatch{
			Symbol:   symbol,
			Name:     r.Name,
			Region:   r.Country,
			Currency: r.Currency,
		})
	}

	return matches, nil
}
