// Package procurement implements the purchase order lifecycle and cost
// reconciliation engine: a staged state machine that drives an international
// purchase order from draft through payment, shipping, receipt and final
// landed-cost settlement.
package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a purchase order lifecycle state.
type Status string

const (
	StatusDraft              Status = "DRAFT"
	StatusPaymentConfirmed   Status = "PAYMENT_CONFIRMED"
	StatusSupplierDispatched Status = "SUPPLIER_DISPATCHED"
	StatusWarehouseReceived  Status = "WAREHOUSE_RECEIVED"
	StatusShippedDestination Status = "SHIPPED_DESTINATION"
	StatusArrivedDestination Status = "ARRIVED_DESTINATION"
	StatusInTransitHub       Status = "IN_TRANSIT_HUB"
	StatusReceivedHub        Status = "RECEIVED_HUB"
	StatusPartialComplete    Status = "PARTIAL_COMPLETE"
	StatusCompleted          Status = "COMPLETED"
	StatusLost               Status = "LOST"
)

// PurchaseOrder is one order to one supplier. TotalAmount is expressed in the
// supplier currency and is fixed once the order leaves DRAFT; every other
// monetary field is home currency.
type PurchaseOrder struct {
	ID         int64
	Number     string
	SupplierID int64
	Status     Status
	Currency   string

	ExchangeRate  decimal.Decimal
	TotalAmount   decimal.Decimal
	TotalWeightKg decimal.Decimal
	TotalShipping decimal.Decimal

	FundingAccountID int64
	PaymentAmount    decimal.Decimal
	PaidFromCredit   decimal.Decimal
	PaidFromAccount  decimal.Decimal

	RefundAmount   decimal.Decimal
	RefundCredited bool
	CreditNoteID   string

	Courier           string
	TrackingNumber    string
	LotNumber         string
	HubTrackingNumber string
	ShippingMethod    string

	ExpectedDate time.Time
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLine belongs to exactly one PurchaseOrder. FinalUnitCost is the
// authoritative landed cost of the line: LineTotal + ShippingCost + LossShare.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64

	SupplierUnitPrice decimal.Decimal
	OrderedQty        int64
	ReceivedQty       int64
	LostQty           int64
	FoundQty          int64
	StockedQty        int64

	HomeUnitPrice decimal.Decimal
	LineTotal     decimal.Decimal

	UnitWeightGrams  decimal.Decimal
	ExtraWeightGrams decimal.Decimal
	FreightRatePerKg decimal.Decimal
	ShippingCost     decimal.Decimal

	LossShare     decimal.Decimal
	FinalUnitCost decimal.Decimal
}

// Validate checks the line invariants that hold on every mutation.
func (l OrderLine) Validate() error {
	if l.ProductID == 0 {
		return ErrValidation
	}
	if l.OrderedQty < 0 || l.ReceivedQty < 0 || l.LostQty < 0 || l.FoundQty < 0 || l.StockedQty < 0 {
		return ErrValidation
	}
	if l.SupplierUnitPrice.Sign() < 0 || l.UnitWeightGrams.Sign() < 0 || l.ExtraWeightGrams.Sign() < 0 || l.FreightRatePerKg.Sign() < 0 {
		return ErrValidation
	}
	return nil
}

// LandedCost recomputes FinalUnitCost from its components.
func (l OrderLine) LandedCost() decimal.Decimal {
	return l.LineTotal.Add(l.ShippingCost).Add(l.LossShare)
}

// StatusHistoryEntry is one append-only transition record. Entries are never
// mutated or deleted once written.
type StatusHistoryEntry struct {
	ID       int64
	OrderID  int64
	Previous Status
	Next     Status
	Comment  string
	ActorID  int64
	At       time.Time
}

var (
	// ErrInvalidTransition occurs when a transition violates the status graph.
	ErrInvalidTransition = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrNotDraft occurs when a draft-only operation targets a confirmed order.
	ErrNotDraft = errors.New("procurement: order is no longer draft")
	// ErrOverdraftRejected surfaces a funding account refusing the draw.
	ErrOverdraftRejected = errors.New("procurement: funding account rejected overdraft")
	// ErrSettled occurs when an edit targets an order in a terminal status.
	ErrSettled = errors.New("procurement: order settled")
)
