// Package domain contains the core StockWatch entities shared across modules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Firm groups users for display purposes. Archive scoping stays per-user.
type Firm struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an authenticated member of a firm.
type User struct {
	ID           int64     `json:"id"`
	FirmID       int64     `json:"firm_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Currency describes how monetary amounts in a quote currency are displayed.
// MinorUnit marks currencies quoted in hundredths of the major unit
// (e.g. GBX pence against GBP pounds); MinorSymbol is the suffix used when
// rendering raw minor-unit amounts ("p" for pence).
type Currency struct {
	Code        string `json:"code"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	MinorUnit   bool   `json:"minor_unit"`
	MinorSymbol string `json:"minor_symbol"`
}

// Company is a tradeable instrument identified by its provider symbol.
type Company struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Currency  Currency  `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceObservation is one end-of-day bar from the provider. Observations are
// ephemeral: they are fetched, cached briefly and never persisted in the
// application database.
type PriceObservation struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// SymbolMatch is one result from the provider's symbol search.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// PurchaseRecord is an immutable archive entry. TradeDate is always a date
// present in the observed price series (weekends and holidays resolve
// backward before the record is written). Amounts are stored in the quote
// currency's native units, never rescaled.
type PurchaseRecord struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Company    Company         `json:"company"`
	Reference  string          `json:"reference"`
	TradeDate  time.Time       `json:"trade_date"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Quarter    decimal.Decimal `json:"quarter"`
	Quantity   int64           `json:"quantity"`
	GrossValue decimal.Decimal `json:"gross_value"`
	CreatedAt  time.Time       `json:"created_at"`
}
