package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRevalueRecomputesHomeFields(t *testing.T) {
	order := PurchaseOrder{ExchangeRate: dec("15")}
	lines := []OrderLine{
		{SupplierUnitPrice: dec("50"), OrderedQty: 10, HomeUnitPrice: dec("750"), LineTotal: dec("7500")},
		{SupplierUnitPrice: dec("20"), OrderedQty: 5, HomeUnitPrice: dec("300"), LineTotal: dec("1500")},
	}

	Revalue(&order, lines, dec("16"))

	require.True(t, order.ExchangeRate.Equal(dec("16")))
	require.True(t, lines[0].HomeUnitPrice.Equal(dec("800")))
	require.True(t, lines[0].LineTotal.Equal(dec("8000")))
	require.True(t, lines[1].LineTotal.Equal(dec("1600")))
	require.True(t, lines[0].FinalUnitCost.Equal(dec("8000")))
}

func TestRevaluePreservesLossShare(t *testing.T) {
	order := PurchaseOrder{ExchangeRate: dec("15")}
	lines := []OrderLine{
		{SupplierUnitPrice: dec("50"), OrderedQty: 10, LossShare: dec("120"), ShippingCost: dec("60")},
	}

	Revalue(&order, lines, dec("16"))

	require.True(t, lines[0].LossShare.Equal(dec("120")))
	// landed cost keeps the redistributed loss and freight on top of the new total
	require.True(t, lines[0].FinalUnitCost.Equal(dec("8180")))
}

func TestApportionFreightByWeight(t *testing.T) {
	order := PurchaseOrder{}
	lines := []OrderLine{
		{OrderedQty: 10, UnitWeightGrams: dec("200"), LineTotal: dec("7500")},
		{OrderedQty: 5, UnitWeightGrams: dec("400"), ExtraWeightGrams: dec("100"), LineTotal: dec("1500")},
	}

	ApportionFreight(&order, lines, dec("30"), freightByOrdered)

	// 2kg and 2.5kg at 30/kg
	require.True(t, lines[0].ShippingCost.Equal(dec("60")))
	require.True(t, lines[1].ShippingCost.Equal(dec("75")))
	require.True(t, order.TotalShipping.Equal(dec("135")))
	require.True(t, order.TotalWeightKg.Equal(dec("4.5")))
	require.True(t, lines[0].FinalUnitCost.Equal(dec("7560")))
}

func TestApportionFreightReceivedBasis(t *testing.T) {
	order := PurchaseOrder{}
	lines := []OrderLine{
		{OrderedQty: 10, ReceivedQty: 8, UnitWeightGrams: dec("200")},
	}

	ApportionFreight(&order, lines, dec("30"), freightByReceived)

	// 8 × 200g = 1.6kg
	require.True(t, lines[0].ShippingCost.Equal(dec("48")))
}

func TestApportionFreightZeroReceivedCarriesNoFreight(t *testing.T) {
	order := PurchaseOrder{TotalWeightKg: dec("2")}
	lines := []OrderLine{
		{OrderedQty: 10, ReceivedQty: 0, UnitWeightGrams: dec("200"), LineTotal: dec("7500")},
		{OrderedQty: 5, ReceivedQty: 5, UnitWeightGrams: dec("400")},
	}

	ApportionFreight(&order, lines, dec("30"), freightByReceived)

	// the fully-lost line weighs nothing on the received basis, fallback included
	require.True(t, lines[0].ShippingCost.IsZero())
	require.True(t, lines[1].ShippingCost.Equal(dec("60")))
	require.True(t, order.TotalShipping.Equal(dec("60")))
	require.True(t, order.TotalWeightKg.Equal(dec("2")))
}

func TestApportionFreightAllLostZeroesWeight(t *testing.T) {
	order := PurchaseOrder{TotalWeightKg: dec("2")}
	lines := []OrderLine{
		{OrderedQty: 10, ReceivedQty: 0, UnitWeightGrams: dec("200")},
	}

	ApportionFreight(&order, lines, dec("30"), freightByReceived)

	require.True(t, lines[0].ShippingCost.IsZero())
	require.True(t, order.TotalShipping.IsZero())
	require.True(t, order.TotalWeightKg.IsZero())
}

func TestApportionFreightZeroWeightFallback(t *testing.T) {
	order := PurchaseOrder{TotalWeightKg: dec("6")}
	lines := []OrderLine{
		{OrderedQty: 10},
		{OrderedQty: 5},
	}

	ApportionFreight(&order, lines, dec("10"), freightByOrdered)

	// each line takes an equal 3kg share
	require.True(t, lines[0].ShippingCost.Equal(dec("30")))
	require.True(t, lines[1].ShippingCost.Equal(dec("30")))
	require.True(t, order.TotalShipping.Equal(dec("60")))
}

func TestApportionFreightIdempotent(t *testing.T) {
	order := PurchaseOrder{}
	lines := []OrderLine{
		{OrderedQty: 10, UnitWeightGrams: dec("200"), LineTotal: dec("7500")},
	}

	ApportionFreight(&order, lines, dec("30"), freightByOrdered)
	first := lines[0].ShippingCost
	firstTotal := order.TotalShipping

	ApportionFreight(&order, lines, dec("30"), freightByOrdered)

	require.True(t, lines[0].ShippingCost.Equal(first))
	require.True(t, order.TotalShipping.Equal(firstTotal))
}

func TestLandedCostSumsComponents(t *testing.T) {
	line := OrderLine{LineTotal: dec("7500"), ShippingCost: dec("60"), LossShare: dec("120")}
	require.True(t, line.LandedCost().Equal(dec("7680")))

	var zero OrderLine
	require.True(t, zero.LandedCost().Equal(decimal.Zero))
}
