package procurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockedLine carries the per-line quantities and landed cost an external
// inventory service needs to post stock.
type StockedLine struct {
	ProductID  int64
	StockedQty int64
	LandedCost decimal.Decimal
}

// StockReceivedEvent is emitted when an order completes.
type StockReceivedEvent struct {
	OrderID int64
	Number  string
	Lines   []StockedLine
	At      time.Time
}

// RefundIssuedEvent is emitted when a reconciliation auto-credits a refund,
// for downstream accounting reference.
type RefundIssuedEvent struct {
	OrderID      int64
	Number       string
	SupplierID   int64
	CreditNoteID string
	Amount       decimal.Decimal
	At           time.Time
}

// Dispatcher forwards domain events to external consumers after commit.
type Dispatcher interface {
	StockReceived(ctx context.Context, evt StockReceivedEvent) error
	RefundIssued(ctx context.Context, evt RefundIssuedEvent) error
}
