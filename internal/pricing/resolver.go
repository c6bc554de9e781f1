// Package pricing resolves requested trade dates against observed price
// series and computes purchase valuations.
package pricing

import (
	"fmt"
	"time"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// ErrOutOfRange indicates the requested date precedes every observation in
// the series. The message is shown to the user verbatim.
type ErrOutOfRange struct {
	Earliest time.Time
	Latest   time.Time
}

func (e ErrOutOfRange) Error() string {
	if e.Earliest.IsZero() && e.Latest.IsZero() {
		return "We have no figures for this company"
	}
	return fmt.Sprintf("We have figures between %s - %s",
		e.Earliest.Format("2006-01-02"), e.Latest.Format("2006-01-02"))
}

// ResolveTradingDay returns the latest observation whose date is on or
// before the requested date. Weekends and market holidays resolve backward
// to the nearest trading day; requests after the latest observation resolve
// to the latest observation.
//
// The observations slice must be sorted oldest first, as returned by the
// provider client.
func ResolveTradingDay(observations []domain.PriceObservation, requested time.Time) (domain.PriceObservation, error) {
	if len(observations) == 0 {
		return domain.PriceObservation{}, ErrOutOfRange{}
	}

	requested = truncateToDay(requested)

	// Walk backward from the most recent observation
	for i := len(observations) - 1; i >= 0; i-- {
		if !truncateToDay(observations[i].Date).After(requested) {
			return observations[i], nil
		}
	}

	return domain.PriceObservation{}, ErrOutOfRange{
		Earliest: observations[0].Date,
		Latest:   observations[len(observations)-1].Date,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
