package pricing

import (
	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"github.com/stockwatch/stockwatch/internal/domain"
)

var two = decimal.NewFromInt(2)

// smaPeriod is the window for the moving-average price context returned
// alongside a valuation.
const smaPeriod = 20

// QuarterPrice is the midpoint of the day's high and low. Arithmetic is
// exact; rounding happens only at display time.
func QuarterPrice(high, low decimal.Decimal) decimal.Decimal {
	return high.Add(low).Div(two)
}

// GrossValue is the quarter price multiplied by the quantity of shares.
func GrossValue(quarter decimal.Decimal, quantity int64) decimal.Decimal {
	return quarter.Mul(decimal.NewFromInt(quantity))
}

// CloseSMA computes the simple moving average of closing prices ending at
// the given observation. Returns false when the series up to that point is
// shorter than the window.
func CloseSMA(observations []domain.PriceObservation, upTo domain.PriceObservation) (decimal.Decimal, bool) {
	closes := make([]float64, 0, len(observations))
	for _, obs := range observations {
		if obs.Date.After(upTo.Date) {
			break
		}
		f, _ := obs.Close.Float64()
		closes = append(closes, f)
	}

	if len(closes) < smaPeriod {
		return decimal.Decimal{}, false
	}

	sma := talib.Sma(closes, smaPeriod)
	return decimal.NewFromFloat(sma[len(sma)-1]), true
}
