package domain

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Money pairs a raw amount with its quote currency. The amount is always in
// the currency's native units as stored (pence for GBX, pounds for GBP);
// scaling happens only at display time.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney builds a Money value from a raw amount and its currency.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Major renders the amount in the major unit with the currency symbol.
// Minor-unit amounts are divided by 100 first: 25000 GBX renders "£250.00".
func (m Money) Major() string {
	amount := m.Amount
	if m.Currency.MinorUnit {
		amount = amount.Div(oneHundred)
	}
	return m.Currency.Symbol + amount.StringFixed(2)
}

// Minor renders the raw stored amount. For minor-unit currencies the minor
// suffix is appended: 250 GBX renders "250.00p". Currencies without a minor
// representation fall back to Major.
func (m Money) Minor() string {
	if !m.Currency.MinorUnit {
		return m.Major()
	}
	return m.Amount.StringFixed(2) + m.Currency.MinorSymbol
}
