// Package companies manages the company and currency reference data backing
// the purchase archive.
package companies

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// ErrUnknownCurrency indicates a currency code outside the seeded set.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Repository provides access to companies and currencies.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new companies repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListCurrencies returns all seeded currencies ordered by code.
func (r *Repository) ListCurrencies() ([]domain.Currency, error) {
	rows, err := r.db.Query(
		"SELECT code, symbol, name, minor_unit, minor_symbol FROM currencies ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []domain.Currency
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.Code, &c.Symbol, &c.Name, &c.MinorUnit, &c.MinorSymbol); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}

	return currencies, rows.Err()
}

// GetCurrency returns the currency with the given code, or nil if unknown.
func (r *Repository) GetCurrency(code string) (*domain.Currency, error) {
	var c domain.Currency
	err := r.db.QueryRow(
		"SELECT code, symbol, name, minor_unit, minor_symbol FROM currencies WHERE code = ?",
		strings.ToUpper(code),
	).Scan(&c.Code, &c.Symbol, &c.Name, &c.MinorUnit, &c.MinorSymbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get currency %s: %w", code, err)
	}

	return &c, nil
}

// GetBySymbol returns the company with the given provider symbol, or nil.
func (r *Repository) GetBySymbol(symbol string) (*domain.Company, error) {
	query := `
		SELECT c.id, c.symbol, c.name, c.created_at,
		       cu.code, cu.symbol, cu.name, cu.minor_unit, cu.minor_symbol
		FROM companies c
		JOIN currencies cu ON cu.code = c.currency_code
		WHERE c.symbol = ?`

	return r.scanCompany(r.db.QueryRow(query, symbol))
}

// GetByID returns the company with the given id, or nil.
func (r *Repository) GetByID(id int64) (*domain.Company, error) {
	query := `
		SELECT c.id, c.symbol, c.name, c.created_at,
		       cu.code, cu.symbol, cu.name, cu.minor_unit, cu.minor_symbol
		FROM companies c
		JOIN currencies cu ON cu.code = c.currency_code
		WHERE c.id = ?`

	return r.scanCompany(r.db.QueryRow(query, id))
}

// GetOrCreate returns the existing company for the symbol or inserts a new
// one. The symbol is the identity key; name and currency of an existing
// company are left untouched.
func (r *Repository) GetOrCreate(symbol, name, currencyCode string) (*domain.Company, error) {
	existing, err := r.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	currency, err := r.GetCurrency(currencyCode)
	if err != nil {
		return nil, err
	}
	if currency == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, currencyCode)
	}

	result, err := r.db.Exec(
		"INSERT INTO companies (symbol, name, currency_code) VALUES (?, ?, ?)",
		symbol, name, currency.Code,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create company %s: %w", symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get company id: %w", err)
	}

	return r.GetByID(id)
}

func (r *Repository) scanCompany(row *sql.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.ID, &c.Symbol, &c.Name, &c.CreatedAt,
		&c.Currency.Code, &c.Currency.Symbol, &c.Currency.Name,
		&c.Currency.MinorUnit, &c.Currency.MinorSymbol,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}

	return &c, nil
}
