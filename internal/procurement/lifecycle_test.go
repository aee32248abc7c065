package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionGraphIsStrictlyForward(t *testing.T) {
	forward := []Status{
		StatusDraft,
		StatusPaymentConfirmed,
		StatusSupplierDispatched,
		StatusWarehouseReceived,
		StatusShippedDestination,
		StatusArrivedDestination,
		StatusInTransitHub,
	}
	for i := 0; i < len(forward)-1; i++ {
		require.True(t, CanTransition(forward[i], forward[i+1]), "%s -> %s", forward[i], forward[i+1])
	}

	// no skipping, no going back
	require.False(t, CanTransition(StatusDraft, StatusSupplierDispatched))
	require.False(t, CanTransition(StatusPaymentConfirmed, StatusDraft))
	require.False(t, CanTransition(StatusShippedDestination, StatusWarehouseReceived))
	require.False(t, CanTransition(StatusInTransitHub, StatusCompleted))
}

func TestHubReceiptBranches(t *testing.T) {
	require.True(t, CanTransition(StatusInTransitHub, StatusReceivedHub))
	require.True(t, CanTransition(StatusInTransitHub, StatusPartialComplete))
	require.True(t, CanTransition(StatusReceivedHub, StatusCompleted))
	require.True(t, CanTransition(StatusPartialComplete, StatusCompleted))
}

func TestLostReachableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []Status{
		StatusDraft, StatusPaymentConfirmed, StatusSupplierDispatched,
		StatusWarehouseReceived, StatusShippedDestination, StatusArrivedDestination,
		StatusInTransitHub, StatusReceivedHub, StatusPartialComplete,
	} {
		require.True(t, CanTransition(from, StatusLost), "from %s", from)
	}
	require.False(t, CanTransition(StatusCompleted, StatusLost))
	require.False(t, CanTransition(StatusLost, StatusLost))
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	require.True(t, IsTerminal(StatusCompleted))
	require.True(t, IsTerminal(StatusLost))
	all := []Status{
		StatusDraft, StatusPaymentConfirmed, StatusSupplierDispatched,
		StatusWarehouseReceived, StatusShippedDestination, StatusArrivedDestination,
		StatusInTransitHub, StatusReceivedHub, StatusPartialComplete,
		StatusCompleted, StatusLost,
	}
	for _, to := range all {
		require.False(t, CanTransition(StatusCompleted, to))
		require.False(t, CanTransition(StatusLost, to))
	}
}

func TestValidatePayloadPerTarget(t *testing.T) {
	base := TransitionInput{OrderID: 1}

	cases := []struct {
		name  string
		input TransitionInput
		ok    bool
	}{
		{"missing order id", TransitionInput{To: StatusWarehouseReceived}, false},
		{"payment without account", with(base, func(in *TransitionInput) { in.To = StatusPaymentConfirmed }), false},
		{"payment with account", with(base, func(in *TransitionInput) {
			in.To = StatusPaymentConfirmed
			in.FundingAccountID = 1
		}), true},
		{"payment negative rate", with(base, func(in *TransitionInput) {
			in.To = StatusPaymentConfirmed
			in.FundingAccountID = 1
			in.ExchangeRate = dec("-1")
		}), false},
		{"dispatch without tracking", with(base, func(in *TransitionInput) {
			in.To = StatusSupplierDispatched
			in.Courier = "SF"
		}), false},
		{"ship without lot", with(base, func(in *TransitionInput) { in.To = StatusShippedDestination }), false},
		{"arrival without rate", with(base, func(in *TransitionInput) { in.To = StatusArrivedDestination }), false},
		{"hub without tracking", with(base, func(in *TransitionInput) { in.To = StatusInTransitHub }), false},
		{"receipt without quantities", with(base, func(in *TransitionInput) { in.To = StatusReceivedHub }), false},
		{"lost without quantities", with(base, func(in *TransitionInput) { in.To = StatusLost }), false},
		{"warehouse label only", with(base, func(in *TransitionInput) { in.To = StatusWarehouseReceived }), true},
		{"complete label only", with(base, func(in *TransitionInput) { in.To = StatusCompleted }), true},
		{"unknown target", with(base, func(in *TransitionInput) { in.To = Status("BOGUS") }), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.validatePayload()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func with(in TransitionInput, mutate func(*TransitionInput)) TransitionInput {
	mutate(&in)
	return in
}
