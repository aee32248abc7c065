package jobs

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/procurement"
)

// Dispatcher enqueues procurement events as background tasks. It satisfies
// the event port of the procurement service.
type Dispatcher struct {
	client *Client
}

// NewDispatcher constructs a Dispatcher over an Asynq client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// StockReceived enqueues a stock posting task.
func (d *Dispatcher) StockReceived(ctx context.Context, ev procurement.StockReceivedEvent) error {
	lines := make([]StockedLinePayload, 0, len(ev.Lines))
	for _, l := range ev.Lines {
		lines = append(lines, StockedLinePayload{
			ProductID:  l.ProductID,
			StockedQty: l.StockedQty,
			LandedCost: l.LandedCost,
		})
	}
	_, err := d.client.EnqueueStockReceived(ctx, StockReceivedPayload{
		OrderID: ev.OrderID,
		Number:  ev.Number,
		Lines:   lines,
		At:      ev.At,
	})
	return err
}

// RefundIssued enqueues a credit note notification task.
func (d *Dispatcher) RefundIssued(ctx context.Context, ev procurement.RefundIssuedEvent) error {
	_, err := d.client.EnqueueRefundIssued(ctx, RefundIssuedPayload{
		OrderID:      ev.OrderID,
		Number:       ev.Number,
		SupplierID:   ev.SupplierID,
		CreditNoteID: ev.CreditNoteID,
		Amount:       ev.Amount,
		At:           ev.At,
	})
	return err
}
