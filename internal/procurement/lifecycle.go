package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// transitions is the strict forward graph. LOST is reachable from any
// non-terminal state and handled separately.
var transitions = map[Status][]Status{
	StatusDraft:              {StatusPaymentConfirmed},
	StatusPaymentConfirmed:   {StatusSupplierDispatched},
	StatusSupplierDispatched: {StatusWarehouseReceived},
	StatusWarehouseReceived:  {StatusShippedDestination},
	StatusShippedDestination: {StatusArrivedDestination},
	StatusArrivedDestination: {StatusInTransitHub},
	StatusInTransitHub:       {StatusReceivedHub, StatusPartialComplete},
	StatusReceivedHub:        {StatusCompleted},
	StatusPartialComplete:    {StatusCompleted},
}

// IsTerminal reports whether no further transition leaves the status.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusLost
}

// CanTransition reports whether from → to is allowed by the graph.
func CanTransition(from, to Status) bool {
	if to == StatusLost {
		return !IsTerminal(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionInput is the payload of the single "transition order to status X"
// operation family. Only the fields relevant to the target status are read.
type TransitionInput struct {
	OrderID int64
	To      Status
	Comment string
	ActorID int64

	// PAYMENT_CONFIRMED
	FundingAccountID int64
	ExchangeRate     decimal.Decimal
	ExpectedDate     time.Time
	IdempotencyKey   string

	// SUPPLIER_DISPATCHED
	Courier        string
	TrackingNumber string

	// SHIPPED_DESTINATION
	LotNumber string

	// ARRIVED_DESTINATION
	FreightRatePerKg decimal.Decimal

	// IN_TRANSIT_HUB
	HubTrackingNumber string

	// RECEIVED_HUB / PARTIAL_COMPLETE: received quantity per line id
	Received map[int64]int64

	// LOST: explicitly marked lost quantity per line id
	Lost map[int64]int64
}

// validatePayload rejects malformed transition payloads before any side
// effect runs.
func (in TransitionInput) validatePayload() error {
	if in.OrderID == 0 {
		return ErrValidation
	}
	switch in.To {
	case StatusPaymentConfirmed:
		if in.FundingAccountID == 0 {
			return ErrValidation
		}
		if in.ExchangeRate.Sign() < 0 {
			return ErrValidation
		}
	case StatusSupplierDispatched:
		if in.Courier == "" || in.TrackingNumber == "" {
			return ErrValidation
		}
	case StatusShippedDestination:
		if in.LotNumber == "" {
			return ErrValidation
		}
	case StatusArrivedDestination:
		if in.FreightRatePerKg.Sign() <= 0 {
			return ErrValidation
		}
	case StatusInTransitHub:
		if in.HubTrackingNumber == "" {
			return ErrValidation
		}
	case StatusReceivedHub, StatusPartialComplete:
		if len(in.Received) == 0 {
			return ErrValidation
		}
	case StatusLost:
		if len(in.Lost) == 0 {
			return ErrValidation
		}
	case StatusWarehouseReceived, StatusCompleted:
		// label-only transitions and stock posting take no extra payload
	default:
		return ErrValidation
	}
	return nil
}
