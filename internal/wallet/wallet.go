// Package wallet implements the supplier credit ledger: a running balance per
// supplier, adjusted by append-only movements. Balances offset future payment
// obligations and absorb auto-credited refunds.
package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var (
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("wallet: invalid input")
	// ErrInsufficientCredit indicates a debit beyond the available balance.
	ErrInsufficientCredit = errors.New("wallet: insufficient credit balance")
)

// Movement is one ledger entry. Rows are never updated or deleted.
type Movement struct {
	ID         int64
	SupplierID int64
	Amount     decimal.Decimal
	Memo       string
	At         pgtype.Timestamptz
}

// Store persists supplier credit balances. Written against db.Queryer so
// ledger operations can join an order transaction.
type Store struct {
	q db.Queryer
}

// NewStore constructs a Store.
func NewStore(q db.Queryer) *Store {
	return &Store{q: q}
}

// Balance returns the current credit balance, zero for unknown suppliers.
func (s *Store) Balance(ctx context.Context, supplierID int64) (decimal.Decimal, error) {
	if supplierID == 0 {
		return decimal.Zero, ErrValidation
	}
	var balance pgtype.Numeric
	err := s.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM wallet_movements WHERE supplier_id = $1`, supplierID).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return db.NumericDecimal(balance), nil
}

// Credit adds to the supplier balance with a descriptive memo.
func (s *Store) Credit(ctx context.Context, supplierID int64, amount decimal.Decimal, memo string) error {
	if supplierID == 0 || amount.Sign() <= 0 || memo == "" {
		return ErrValidation
	}
	_, err := s.q.Exec(ctx, `INSERT INTO wallet_movements (supplier_id, amount, memo, occurred_at) VALUES ($1, $2, $3, NOW())`,
		supplierID, db.DecimalNumeric(amount), memo)
	return err
}

// Debit draws from the supplier balance. The balance may not go negative.
func (s *Store) Debit(ctx context.Context, supplierID int64, amount decimal.Decimal, memo string) error {
	if supplierID == 0 || amount.Sign() <= 0 || memo == "" {
		return ErrValidation
	}
	balance, err := s.Balance(ctx, supplierID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ErrInsufficientCredit
	}
	_, err = s.q.Exec(ctx, `INSERT INTO wallet_movements (supplier_id, amount, memo, occurred_at) VALUES ($1, $2, $3, NOW())`,
		supplierID, db.DecimalNumeric(amount.Neg()), memo)
	return err
}

// Movements lists ledger entries for a supplier, newest first.
func (s *Store) Movements(ctx context.Context, supplierID int64, limit, offset int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, supplier_id, amount, memo, occurred_at
		FROM wallet_movements
		WHERE supplier_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, supplierID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var amount pgtype.Numeric
		if err := rows.Scan(&m.ID, &m.SupplierID, &amount, &m.Memo, &m.At); err != nil {
			return nil, err
		}
		m.Amount = db.NumericDecimal(amount)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
