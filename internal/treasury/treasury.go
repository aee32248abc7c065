// Package treasury implements the funding account registry: bank-like
// accounts carrying a current balance and a per-account overdraft limit.
package treasury

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("treasury: account not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("treasury: invalid input")
	// ErrOverdraftRejected indicates the draw would exceed the overdraft limit.
	ErrOverdraftRejected = errors.New("treasury: overdraft limit exceeded")
)

// Account is a funding source for supplier payments.
type Account struct {
	ID             int64
	Name           string
	Balance        decimal.Decimal
	OverdraftLimit decimal.Decimal
}

// Store persists funding accounts. Written against db.Queryer so a debit can
// join an order transaction.
type Store struct {
	q db.Queryer
}

// NewStore constructs a Store.
func NewStore(q db.Queryer) *Store {
	return &Store{q: q}
}

// Get returns an account by id.
func (s *Store) Get(ctx context.Context, accountID int64) (Account, error) {
	var acc Account
	var balance, limit pgtype.Numeric
	err := s.q.QueryRow(ctx, `SELECT id, name, balance, overdraft_limit FROM funding_accounts WHERE id = $1`, accountID).
		Scan(&acc.ID, &acc.Name, &balance, &limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.Balance = db.NumericDecimal(balance)
	acc.OverdraftLimit = db.NumericDecimal(limit)
	return acc, nil
}

// Balance returns the current balance of the account.
func (s *Store) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	acc, err := s.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// Debit removes funds from the account. The balance may go negative up to
// the account's overdraft limit; a draw beyond that is rejected and no funds
// move.
func (s *Store) Debit(ctx context.Context, accountID int64, amount decimal.Decimal) error {
	if accountID == 0 || amount.Sign() < 0 {
		return ErrValidation
	}
	if amount.IsZero() {
		return nil
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE funding_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance - $2 >= -overdraft_limit`,
		accountID, db.DecimalNumeric(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, accountID); err != nil {
			return err
		}
		return ErrOverdraftRejected
	}
	return nil
}

// Credit adds funds to the account.
func (s *Store) Credit(ctx context.Context, accountID int64, amount decimal.Decimal) error {
	if accountID == 0 || amount.Sign() <= 0 {
		return ErrValidation
	}
	tag, err := s.q.Exec(ctx, `UPDATE funding_accounts SET balance = balance + $2, updated_at = NOW() WHERE id = $1`,
		accountID, db.DecimalNumeric(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
