package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockReceived posts completed order quantities to downstream stock.
	TaskStockReceived = "procurement:stock_received"
	// TaskRefundIssued notifies downstream systems about a supplier credit note.
	TaskRefundIssued = "procurement:refund_issued"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// StockedLinePayload is one product posting inside a stock task.
type StockedLinePayload struct {
	ProductID  int64           `json:"product_id"`
	StockedQty int64           `json:"stocked_qty"`
	LandedCost decimal.Decimal `json:"landed_cost"`
}

// StockReceivedPayload describes the stock posting of a completed order.
type StockReceivedPayload struct {
	OrderID int64                `json:"order_id"`
	Number  string               `json:"number"`
	Lines   []StockedLinePayload `json:"lines"`
	At      time.Time            `json:"at"`
}

// RefundIssuedPayload describes a credit note granted for short receipt.
type RefundIssuedPayload struct {
	OrderID      int64           `json:"order_id"`
	Number       string          `json:"number"`
	SupplierID   int64           `json:"supplier_id"`
	CreditNoteID string          `json:"credit_note_id"`
	Amount       decimal.Decimal `json:"amount"`
	At           time.Time       `json:"at"`
}

// NewStockReceivedTask constructs an Asynq task.
func NewStockReceivedTask(payload StockReceivedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReceived, data), nil
}

// NewRefundIssuedTask constructs an Asynq task.
func NewRefundIssuedTask(payload RefundIssuedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefundIssued, data), nil
}

// NewIdempotencyCleanupTask constructs the maintenance task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// NewStockReceivedHandler processes TaskStockReceived tasks. The storefront
// sync consumes the log stream; posting into a live inventory service slots
// in here once one exists.
func NewStockReceivedHandler(logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StockReceivedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskStockReceived, "error")
			return asynq.SkipRetry
		}
		for _, line := range payload.Lines {
			logger.Info("stock posted",
				slog.String("order", payload.Number),
				slog.Int64("product_id", line.ProductID),
				slog.Int64("qty", line.StockedQty),
				slog.String("landed_cost", line.LandedCost.String()))
		}
		metrics.ObserveJob(TaskStockReceived, "ok")
		return nil
	}
}

// NewRefundIssuedHandler processes TaskRefundIssued tasks.
func NewRefundIssuedHandler(logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RefundIssuedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskRefundIssued, "error")
			return asynq.SkipRetry
		}
		logger.Info("refund issued",
			slog.String("order", payload.Number),
			slog.Int64("supplier_id", payload.SupplierID),
			slog.String("credit_note", payload.CreditNoteID),
			slog.String("amount", payload.Amount.String()))
		metrics.ObserveJob(TaskRefundIssued, "ok")
		return nil
	}
}

// IdempotencyCleaner is the part of the key store the cleanup task needs.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewIdempotencyCleanupHandler prunes keys older than the retention window.
func NewIdempotencyCleanupHandler(store IdempotencyCleaner, retention time.Duration, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, retention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			metrics.ObserveJob(TaskIdempotencyCleanup, "error")
			return err
		}
		metrics.ObserveJob(TaskIdempotencyCleanup, "ok")
		return nil
	}
}
