package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/currency"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/treasury"
	"github.com/meridian-erp/meridian-erp/internal/wallet"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction. The collaborator
// stores returned by the TxRepository run on the same transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, number, supplier_id, status, currency, exchange_rate, total_amount,
	total_weight_kg, total_shipping, funding_account_id, payment_amount, paid_from_credit,
	paid_from_account, refund_amount, refund_credited, credit_note_id, courier, tracking_number,
	lot_number, hub_tracking_number, shipping_method, expected_date, created_by, created_at, updated_at`

const lineColumns = `id, order_id, product_id, supplier_unit_price, ordered_qty, received_qty,
	lost_qty, found_qty, stocked_qty, home_unit_price, line_total, unit_weight_g, extra_weight_g,
	freight_rate_per_kg, shipping_cost, loss_share, final_unit_cost`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var number, creditNote pgtype.Text
	var exchangeRate, totalAmount, totalWeight, totalShipping pgtype.Numeric
	var paymentAmount, paidCredit, paidAccount, refundAmount pgtype.Numeric
	var fundingAccountID pgtype.Int8
	var expectedDate pgtype.Timestamptz
	err := row.Scan(&po.ID, &number, &po.SupplierID, &po.Status, &po.Currency,
		&exchangeRate, &totalAmount, &totalWeight, &totalShipping,
		&fundingAccountID, &paymentAmount, &paidCredit, &paidAccount,
		&refundAmount, &po.RefundCredited, &creditNote,
		&po.Courier, &po.TrackingNumber, &po.LotNumber, &po.HubTrackingNumber, &po.ShippingMethod,
		&expectedDate, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Number = number.String
	po.CreditNoteID = creditNote.String
	po.ExchangeRate = db.NumericDecimal(exchangeRate)
	po.TotalAmount = db.NumericDecimal(totalAmount)
	po.TotalWeightKg = db.NumericDecimal(totalWeight)
	po.TotalShipping = db.NumericDecimal(totalShipping)
	po.PaymentAmount = db.NumericDecimal(paymentAmount)
	po.PaidFromCredit = db.NumericDecimal(paidCredit)
	po.PaidFromAccount = db.NumericDecimal(paidAccount)
	po.RefundAmount = db.NumericDecimal(refundAmount)
	if fundingAccountID.Valid {
		po.FundingAccountID = fundingAccountID.Int64
	}
	if expectedDate.Valid {
		po.ExpectedDate = expectedDate.Time
	}
	return po, nil
}

func scanLines(rows pgx.Rows) ([]OrderLine, error) {
	defer rows.Close()
	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		var unitPrice, homePrice, lineTotal, unitWeight, extraWeight pgtype.Numeric
		var freightRate, shippingCost, lossShare, finalCost pgtype.Numeric
		err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &unitPrice, &l.OrderedQty,
			&l.ReceivedQty, &l.LostQty, &l.FoundQty, &l.StockedQty,
			&homePrice, &lineTotal, &unitWeight, &extraWeight,
			&freightRate, &shippingCost, &lossShare, &finalCost)
		if err != nil {
			return nil, err
		}
		l.SupplierUnitPrice = db.NumericDecimal(unitPrice)
		l.HomeUnitPrice = db.NumericDecimal(homePrice)
		l.LineTotal = db.NumericDecimal(lineTotal)
		l.UnitWeightGrams = db.NumericDecimal(unitWeight)
		l.ExtraWeightGrams = db.NumericDecimal(extraWeight)
		l.FreightRatePerKg = db.NumericDecimal(freightRate)
		l.ShippingCost = db.NumericDecimal(shippingCost)
		l.LossShare = db.NumericDecimal(lossShare)
		l.FinalUnitCost = db.NumericDecimal(finalCost)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func getOrder(ctx context.Context, q db.Queryer, id int64, forUpdate bool) (PurchaseOrder, []OrderLine, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	po, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM purchase_order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	lines, err := scanLines(rows)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

// GetOrder returns an order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error) {
	return getOrder(ctx, r.pool, id, false)
}

// ListOrders returns a filtered page of orders and the total match count.
func (r *Repository) ListOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	where := ` WHERE ($1 = '' OR status = $1)
		AND ($2 = 0 OR supplier_id = $2)
		AND ($3 = '' OR number ILIKE '%' || $3 || '%')`
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where,
		filters.Status, filters.SupplierID, filters.Search).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders`+where+
		` ORDER BY id DESC LIMIT $4 OFFSET $5`,
		filters.Status, filters.SupplierID, filters.Search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, po)
	}
	return orders, total, rows.Err()
}

// History returns the transition log for an order, oldest first.
func (r *Repository) History(ctx context.Context, orderID int64) ([]StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, prev_status, next_status, comment, actor_id, occurred_at
		FROM po_status_history WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Previous, &e.Next, &e.Comment, &e.ActorID, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOrderForUpdate loads the order with a row lock held for the duration of
// the transaction, serializing concurrent transitions on the same order.
func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, []OrderLine, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *txRepo) InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (supplier_id, status, currency, exchange_rate, total_amount,
			total_weight_kg, shipping_method, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		po.SupplierID, po.Status, po.Currency, db.DecimalNumeric(po.ExchangeRate),
		db.DecimalNumeric(po.TotalAmount), db.DecimalNumeric(po.TotalWeightKg),
		po.ShippingMethod, po.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_order_lines (order_id, product_id, supplier_unit_price, ordered_qty,
			home_unit_price, line_total, unit_weight_g, extra_weight_g, final_unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		line.OrderID, line.ProductID, db.DecimalNumeric(line.SupplierUnitPrice), line.OrderedQty,
		db.DecimalNumeric(line.HomeUnitPrice), db.DecimalNumeric(line.LineTotal),
		db.DecimalNumeric(line.UnitWeightGrams), db.DecimalNumeric(line.ExtraWeightGrams),
		db.DecimalNumeric(line.FinalUnitCost)).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateOrder(ctx context.Context, po PurchaseOrder) error {
	var number, creditNote any
	if po.Number != "" {
		number = po.Number
	}
	if po.CreditNoteID != "" {
		creditNote = po.CreditNoteID
	}
	var fundingAccount any
	if po.FundingAccountID != 0 {
		fundingAccount = po.FundingAccountID
	}
	var expected any
	if !po.ExpectedDate.IsZero() {
		expected = po.ExpectedDate
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders SET
			number = COALESCE($2, number), status = $3, exchange_rate = $4, total_amount = $5,
			total_weight_kg = $6, total_shipping = $7, funding_account_id = COALESCE($8, funding_account_id),
			payment_amount = $9, paid_from_credit = $10, paid_from_account = $11,
			refund_amount = $12, refund_credited = $13, credit_note_id = COALESCE($14, credit_note_id),
			courier = $15, tracking_number = $16, lot_number = $17, hub_tracking_number = $18,
			shipping_method = $19, expected_date = COALESCE($20, expected_date), updated_at = NOW()
		WHERE id = $1`,
		po.ID, number, po.Status, db.DecimalNumeric(po.ExchangeRate), db.DecimalNumeric(po.TotalAmount),
		db.DecimalNumeric(po.TotalWeightKg), db.DecimalNumeric(po.TotalShipping), fundingAccount,
		db.DecimalNumeric(po.PaymentAmount), db.DecimalNumeric(po.PaidFromCredit), db.DecimalNumeric(po.PaidFromAccount),
		db.DecimalNumeric(po.RefundAmount), po.RefundCredited, creditNote,
		po.Courier, po.TrackingNumber, po.LotNumber, po.HubTrackingNumber,
		po.ShippingMethod, expected)
	return err
}

func (t *txRepo) UpdateLine(ctx context.Context, line OrderLine) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE purchase_order_lines SET
			received_qty = $2, lost_qty = $3, found_qty = $4, stocked_qty = $5,
			home_unit_price = $6, line_total = $7, freight_rate_per_kg = $8, shipping_cost = $9,
			loss_share = $10, final_unit_cost = $11
		WHERE id = $1`,
		line.ID, line.ReceivedQty, line.LostQty, line.FoundQty, line.StockedQty,
		db.DecimalNumeric(line.HomeUnitPrice), db.DecimalNumeric(line.LineTotal),
		db.DecimalNumeric(line.FreightRatePerKg), db.DecimalNumeric(line.ShippingCost),
		db.DecimalNumeric(line.LossShare), db.DecimalNumeric(line.FinalUnitCost))
	return err
}

func (t *txRepo) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE order_id = $1`, orderID)
	return err
}

func (t *txRepo) DeleteOrder(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	return err
}

func (t *txRepo) AppendHistory(ctx context.Context, entry StatusHistoryEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO po_status_history (order_id, prev_status, next_status, comment, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.OrderID, entry.Previous, entry.Next, entry.Comment, entry.ActorID, at)
	return err
}

// Wallet returns the supplier credit ledger bound to this transaction.
func (t *txRepo) Wallet() WalletPort {
	return wallet.NewStore(t.tx)
}

// Treasury returns the funding account registry bound to this transaction.
func (t *txRepo) Treasury() TreasuryPort {
	return treasuryAdapter{store: treasury.NewStore(t.tx)}
}

// Rates returns the currency rate store bound to this transaction.
func (t *txRepo) Rates() RatePort {
	return currency.NewStore(t.tx)
}

type treasuryAdapter struct {
	store *treasury.Store
}

func (a treasuryAdapter) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	balance, err := a.store.Balance(ctx, accountID)
	if errors.Is(err, treasury.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: unknown funding account %d", ErrValidation, accountID)
	}
	return balance, err
}

func (a treasuryAdapter) Debit(ctx context.Context, accountID int64, amount decimal.Decimal) error {
	err := a.store.Debit(ctx, accountID, amount)
	if errors.Is(err, treasury.ErrOverdraftRejected) {
		return ErrOverdraftRejected
	}
	return err
}
