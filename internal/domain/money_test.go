package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	gbx = Currency{Code: "GBX", Symbol: "£", Name: "Pence Sterling", MinorUnit: true, MinorSymbol: "p"}
	gbp = Currency{Code: "GBP", Symbol: "£", Name: "Pound Sterling"}
	usd = Currency{Code: "USD", Symbol: "$", Name: "US Dollar"}
)

func TestMoneyMajor(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency Currency
		expected string
	}{
		{"pence scale down to pounds", "25000", gbx, "£250.00"},
		{"fractional pence", "575.5", gbx, "£5.76"},
		{"pounds stay as pounds", "250", gbp, "£250.00"},
		{"dollars", "19.99", usd, "$19.99"},
		{"zero", "0", gbx, "£0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoney(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.expected, m.Major())
		})
	}
}

func TestMoneyMinor(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency Currency
		expected string
	}{
		{"pence render with suffix", "250", gbx, "250.00p"},
		{"large pence amount unscaled", "25000", gbx, "25000.00p"},
		{"pounds fall back to major form", "250", gbp, "£250.00"},
		{"dollars fall back to major form", "19.99", usd, "$19.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoney(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.expected, m.Minor())
		})
	}
}

func TestMoneyDoesNotMutateAmount(t *testing.T) {
	amount := decimal.RequireFromString("25000")
	m := NewMoney(amount, gbx)

	_ = m.Major()
	_ = m.Minor()

	assert.True(t, amount.Equal(m.Amount), "display formatting must not rescale the stored amount")
}
