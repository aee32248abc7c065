package procurement

import "github.com/shopspring/decimal"

// Allocation is the split of a home-currency payment obligation between
// supplier credit and a funding account.
type Allocation struct {
	FromCredit  decimal.Decimal
	FromAccount decimal.Decimal
}

// AllocatePayment splits the obligation: supplier credit is drawn first, up
// to the available balance, and the funding account covers the remainder.
// FromCredit + FromAccount always equals the obligation.
func AllocatePayment(totalHome, creditBalance decimal.Decimal) Allocation {
	fromCredit := decimal.Zero
	if creditBalance.Sign() > 0 {
		fromCredit = decimal.Min(totalHome, creditBalance)
	}
	return Allocation{
		FromCredit:  fromCredit,
		FromAccount: totalHome.Sub(fromCredit),
	}
}
