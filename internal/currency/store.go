package currency

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Store persists currency rates in PostgreSQL. It is written against
// db.Queryer so a rate update can join a procurement transaction.
type Store struct {
	q db.Queryer
}

// NewStore constructs a Store.
func NewStore(q db.Queryer) *Store {
	return &Store{q: q}
}

// Rate returns the stored rate for the code.
func (s *Store) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	var rate pgtype.Numeric
	err := s.q.QueryRow(ctx, `SELECT rate FROM currency_rates WHERE code = $1`, code).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUnknownCurrency
		}
		return decimal.Zero, err
	}
	return db.NumericDecimal(rate), nil
}

// SetRate upserts the rate for the code, last write wins.
func (s *Store) SetRate(ctx context.Context, code string, rate decimal.Decimal) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO currency_rates (code, rate, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`,
		code, db.DecimalNumeric(rate))
	return err
}
