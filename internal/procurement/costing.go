package procurement

import "github.com/shopspring/decimal"

var gramsPerKg = decimal.NewFromInt(1000)

// Revalue recomputes the home-currency cost fields of every line for the new
// exchange rate. A previously redistributed loss share is preserved
// additively. The shared rate registry update is the caller's side-call, not
// part of the recompute.
func Revalue(order *PurchaseOrder, lines []OrderLine, newRate decimal.Decimal) {
	order.ExchangeRate = newRate
	for i := range lines {
		line := &lines[i]
		line.HomeUnitPrice = line.SupplierUnitPrice.Mul(newRate)
		line.LineTotal = line.HomeUnitPrice.Mul(decimal.NewFromInt(line.OrderedQty))
		line.FinalUnitCost = line.LandedCost()
	}
}

// freightBasis selects which quantity an apportionment run charges.
type freightBasis int

const (
	// freightByOrdered charges the ordered quantities, used on the arrival
	// leg before any receipt has been reported.
	freightByOrdered freightBasis = iota
	// freightByReceived charges the reconciled received quantities, used on
	// the hub rerun. A line reconciled at zero then carries zero weight.
	freightByReceived
)

func (b freightBasis) qty(line OrderLine) int64 {
	if b == freightByReceived {
		return line.ReceivedQty
	}
	return line.OrderedQty
}

// lineWeightKg computes the chargeable weight of a line for the given basis.
func lineWeightKg(line OrderLine, basis freightBasis) decimal.Decimal {
	qty := basis.qty(line)
	if qty <= 0 {
		return decimal.Zero
	}
	perUnit := line.UnitWeightGrams.Add(line.ExtraWeightGrams)
	return perUnit.Mul(decimal.NewFromInt(qty)).Div(gramsPerKg)
}

// ApportionFreight distributes a per-kilogram shipping rate across the lines
// by weight. A line with units but no recorded weight falls back to an equal
// split of the order-level total weight. Recomputed from inputs, so a second
// run with identical inputs yields identical costs.
func ApportionFreight(order *PurchaseOrder, lines []OrderLine, ratePerKg decimal.Decimal, basis freightBasis) {
	lineCount := decimal.NewFromInt(int64(len(lines)))
	totalShipping := decimal.Zero
	totalWeight := decimal.Zero
	for i := range lines {
		line := &lines[i]
		weightKg := lineWeightKg(*line, basis)
		if weightKg.IsZero() && basis.qty(*line) > 0 && order.TotalWeightKg.Sign() > 0 && lineCount.Sign() > 0 {
			weightKg = order.TotalWeightKg.Div(lineCount)
		}
		line.FreightRatePerKg = ratePerKg
		line.ShippingCost = weightKg.Mul(ratePerKg)
		line.FinalUnitCost = line.LandedCost()
		totalShipping = totalShipping.Add(line.ShippingCost)
		totalWeight = totalWeight.Add(weightKg)
	}
	order.TotalShipping = totalShipping
	if basis == freightByReceived || totalWeight.Sign() > 0 {
		order.TotalWeightKg = totalWeight
	}
}
