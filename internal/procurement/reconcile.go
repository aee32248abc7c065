package procurement

import "github.com/shopspring/decimal"

// refundThresholdPct is the per-line loss percentage above which the line
// contributes to the supplier refund. Evaluated per line, never on the
// order-wide average.
var refundThresholdPct = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// LineReconciliation is the per-line outcome of a receiving reconciliation.
type LineReconciliation struct {
	LineID         int64
	ReceivedQty    int64
	LostQty        int64
	FoundQty       int64
	LostPct        decimal.Decimal
	Refund         decimal.Decimal
	RefundEligible bool
}

// ReconcileReceipts compares ordered vs. received quantities. Lines whose own
// loss percentage exceeds the threshold contribute lostQty × supplierUnitPrice
// × exchangeRate to the refund. Over-received lines are a zero-loss,
// zero-refund case; the surplus is recorded as FoundQty only.
func ReconcileReceipts(order PurchaseOrder, lines []OrderLine, received map[int64]int64) ([]LineReconciliation, decimal.Decimal, error) {
	results := make([]LineReconciliation, 0, len(lines))
	totalRefund := decimal.Zero
	for _, line := range lines {
		receivedQty, ok := received[line.ID]
		if !ok {
			return nil, decimal.Zero, ErrValidation
		}
		if receivedQty < 0 {
			return nil, decimal.Zero, ErrValidation
		}
		result := LineReconciliation{LineID: line.ID, ReceivedQty: receivedQty}
		if diff := line.OrderedQty - receivedQty; diff > 0 {
			result.LostQty = diff
		} else {
			result.FoundQty = -diff
		}
		if line.OrderedQty > 0 {
			result.LostPct = decimal.NewFromInt(result.LostQty).
				Div(decimal.NewFromInt(line.OrderedQty)).
				Mul(hundred)
		}
		result.RefundEligible = result.LostPct.GreaterThan(refundThresholdPct)
		if result.RefundEligible {
			result.Refund = decimal.NewFromInt(result.LostQty).
				Mul(line.SupplierUnitPrice).
				Mul(order.ExchangeRate)
			totalRefund = totalRefund.Add(result.Refund)
		}
		results = append(results, result)
	}
	return results, totalRefund, nil
}

// RedistributeLoss spreads the home-currency value of explicitly marked-lost
// quantities across the surviving lines, weighted by each line's share of the
// order value. The supplier credit ledger is not touched on this path.
func RedistributeLoss(lines []OrderLine, lost map[int64]int64) error {
	totalLostValue := decimal.Zero
	orderValue := decimal.Zero
	for i := range lines {
		orderValue = orderValue.Add(lines[i].LineTotal)
	}
	for i := range lines {
		line := &lines[i]
		lostQty, ok := lost[line.ID]
		if !ok {
			continue
		}
		if lostQty < 0 || lostQty > line.OrderedQty {
			return ErrValidation
		}
		line.LostQty = lostQty
		totalLostValue = totalLostValue.Add(decimal.NewFromInt(lostQty).Mul(line.HomeUnitPrice))
	}
	if totalLostValue.IsZero() || orderValue.IsZero() {
		return nil
	}
	for i := range lines {
		line := &lines[i]
		if line.ReceivedQty <= 0 {
			continue
		}
		shareRatio := line.LineTotal.Div(orderValue)
		line.LossShare = line.LossShare.Add(totalLostValue.Mul(shareRatio))
		line.FinalUnitCost = line.LandedCost()
	}
	return nil
}
