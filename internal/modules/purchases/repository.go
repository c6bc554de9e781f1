// Package purchases implements the purchase archive: valuation of a stock
// purchase against historical prices and the immutable record of it.
package purchases

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockwatch/stockwatch/internal/domain"
)

// Repository provides access to the purchase archive.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new purchases repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a purchase record within an existing transaction and
// returns its id. Decimal amounts are stored as text; records are never
// updated after insertion.
func (r *Repository) CreateTx(tx *sql.Tx, record *domain.PurchaseRecord) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO purchases (user_id, company_id, reference, trade_date, high, low, quarter, quantity, gross_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.UserID,
		record.Company.ID,
		record.Reference,
		record.TradeDate.Format("2006-01-02"),
		record.High.String(),
		record.Low.String(),
		record.Quarter.String(),
		record.Quantity,
		record.GrossValue.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert purchase: %w", err)
	}

	return result.LastInsertId()
}

// ListByOwner returns the user's purchase records, newest first. A non-empty
// reference narrows the listing to records with that exact reference.
func (r *Repository) ListByOwner(userID int64, reference string) ([]domain.PurchaseRecord, error) {
	query := `
		SELECT p.id, p.user_id, p.reference, p.trade_date, p.high, p.low, p.quarter,
		       p.quantity, p.gross_value, p.created_at,
		       c.id, c.symbol, c.name, c.created_at,
		       cu.code, cu.symbol, cu.name, cu.minor_unit, cu.minor_symbol
		FROM purchases p
		JOIN companies c ON c.id = p.company_id
		JOIN currencies cu ON cu.code = c.currency_code
		WHERE p.user_id = ?`

	args := []interface{}{userID}
	if reference != "" {
		query += " AND p.reference = ?"
		args = append(args, reference)
	}

	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var records []domain.PurchaseRecord
	for rows.Next() {
		record, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// GetByID returns a single purchase record scoped to its owner, or nil.
func (r *Repository) GetByID(userID, id int64) (*domain.PurchaseRecord, error) {
	query := `
		SELECT p.id, p.user_id, p.reference, p.trade_date, p.high, p.low, p.quarter,
		       p.quantity, p.gross_value, p.created_at,
		       c.id, c.symbol, c.name, c.created_at,
		       cu.code, cu.symbol, cu.name, cu.minor_unit, cu.minor_symbol
		FROM purchases p
		JOIN companies c ON c.id = p.company_id
		JOIN currencies cu ON cu.code = c.currency_code
		WHERE p.user_id = ? AND p.id = ?`

	rows, err := r.db.Query(query, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	return scanPurchase(rows)
}

func scanPurchase(rows *sql.Rows) (*domain.PurchaseRecord, error) {
	var record domain.PurchaseRecord
	var tradeDate, high, low, quarter, grossValue string

	err := rows.Scan(
		&record.ID, &record.UserID, &record.Reference, &tradeDate, &high, &low, &quarter,
		&record.Quantity, &grossValue, &record.CreatedAt,
		&record.Company.ID, &record.Company.Symbol, &record.Company.Name, &record.Company.CreatedAt,
		&record.Company.Currency.Code, &record.Company.Currency.Symbol, &record.Company.Currency.Name,
		&record.Company.Currency.MinorUnit, &record.Company.Currency.MinorSymbol,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan purchase: %w", err)
	}

	record.TradeDate, err = parseDate(tradeDate)
	if err != nil {
		return nil, err
	}

	if record.High, err = decimal.NewFromString(high); err != nil {
		return nil, fmt.Errorf("corrupt high value %q: %w", high, err)
	}
	if record.Low, err = decimal.NewFromString(low); err != nil {
		return nil, fmt.Errorf("corrupt low value %q: %w", low, err)
	}
	if record.Quarter, err = decimal.NewFromString(quarter); err != nil {
		return nil, fmt.Errorf("corrupt quarter value %q: %w", quarter, err)
	}
	if record.GrossValue, err = decimal.NewFromString(grossValue); err != nil {
		return nil, fmt.Errorf("corrupt gross value %q: %w", grossValue, err)
	}

	return &record, nil
}
