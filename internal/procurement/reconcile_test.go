package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func reconciliationOrder() (PurchaseOrder, []OrderLine) {
	order := PurchaseOrder{ExchangeRate: dec("15")}
	lines := []OrderLine{
		{ID: 1, SupplierUnitPrice: dec("5"), OrderedQty: 100, HomeUnitPrice: dec("75"), LineTotal: dec("7500")},
		{ID: 2, SupplierUnitPrice: dec("10"), OrderedQty: 50, HomeUnitPrice: dec("150"), LineTotal: dec("7500")},
	}
	return order, lines
}

func TestReconcileRefundAboveThreshold(t *testing.T) {
	order, lines := reconciliationOrder()

	results, total, err := ReconcileReceipts(order, lines, map[int64]int64{1: 80, 2: 50})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, int64(20), results[0].LostQty)
	require.True(t, results[0].LostPct.Equal(dec("20")))
	require.True(t, results[0].RefundEligible)
	// 20 × 5 × 15
	require.True(t, results[0].Refund.Equal(dec("1500")))

	require.Zero(t, results[1].LostQty)
	require.False(t, results[1].RefundEligible)
	require.True(t, total.Equal(dec("1500")))
}

func TestReconcileThresholdIsStrict(t *testing.T) {
	order, lines := reconciliationOrder()

	// exactly 10% lost on line 1: not eligible
	_, total, err := ReconcileReceipts(order, lines, map[int64]int64{1: 90, 2: 50})
	require.NoError(t, err)
	require.True(t, total.IsZero())

	// 11% lost: eligible
	results, total, err := ReconcileReceipts(order, lines, map[int64]int64{1: 89, 2: 50})
	require.NoError(t, err)
	require.True(t, results[0].RefundEligible)
	require.True(t, total.Equal(dec("825")))
}

func TestReconcilePerLineNotAggregate(t *testing.T) {
	order, lines := reconciliationOrder()

	// each line 8% short; the order-wide shortage never aggregates to eligibility
	_, total, err := ReconcileReceipts(order, lines, map[int64]int64{1: 92, 2: 46})
	require.NoError(t, err)
	require.True(t, total.IsZero())
}

func TestReconcileOverReceiptIsZeroLoss(t *testing.T) {
	order, lines := reconciliationOrder()

	results, total, err := ReconcileReceipts(order, lines, map[int64]int64{1: 110, 2: 50})
	require.NoError(t, err)
	require.Equal(t, int64(10), results[0].FoundQty)
	require.Zero(t, results[0].LostQty)
	require.True(t, results[0].LostPct.IsZero())
	require.True(t, total.IsZero())
}

func TestReconcileRejectsMissingAndNegative(t *testing.T) {
	order, lines := reconciliationOrder()

	_, _, err := ReconcileReceipts(order, lines, map[int64]int64{1: 80})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = ReconcileReceipts(order, lines, map[int64]int64{1: -1, 2: 50})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRedistributeLossWeightedByValue(t *testing.T) {
	lines := []OrderLine{
		{ID: 1, OrderedQty: 100, ReceivedQty: 100, HomeUnitPrice: dec("75"), LineTotal: dec("7500")},
		{ID: 2, OrderedQty: 50, ReceivedQty: 0, HomeUnitPrice: dec("150"), LineTotal: dec("7500")},
	}

	// the whole of line 2 is lost; its value lands on line 1 only, the sole
	// line with received units
	err := RedistributeLoss(lines, map[int64]int64{2: 50})
	require.NoError(t, err)

	require.Equal(t, int64(50), lines[1].LostQty)
	require.True(t, lines[0].LossShare.Equal(dec("3750")))
	require.True(t, lines[1].LossShare.IsZero())
	require.True(t, lines[0].FinalUnitCost.Equal(dec("11250")))
}

func TestRedistributeLossAccumulates(t *testing.T) {
	lines := []OrderLine{
		{ID: 1, OrderedQty: 100, ReceivedQty: 100, HomeUnitPrice: dec("75"), LineTotal: dec("7500"), LossShare: dec("100")},
		{ID: 2, OrderedQty: 50, HomeUnitPrice: dec("150"), LineTotal: dec("7500")},
	}

	err := RedistributeLoss(lines, map[int64]int64{2: 10})
	require.NoError(t, err)
	// prior share 100 plus 1500 × (7500/15000)
	require.True(t, lines[0].LossShare.Equal(dec("850")))
}

func TestRedistributeLossRejectsBadQuantities(t *testing.T) {
	lines := []OrderLine{{ID: 1, OrderedQty: 10, LineTotal: dec("100")}}

	require.ErrorIs(t, RedistributeLoss(lines, map[int64]int64{1: -1}), ErrValidation)
	require.ErrorIs(t, RedistributeLoss(lines, map[int64]int64{1: 11}), ErrValidation)
}
