package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatePaymentCreditFirst(t *testing.T) {
	alloc := AllocatePayment(dec("7500"), dec("3000"))
	require.True(t, alloc.FromCredit.Equal(dec("3000")))
	require.True(t, alloc.FromAccount.Equal(dec("4500")))
}

func TestAllocatePaymentCreditCoversAll(t *testing.T) {
	alloc := AllocatePayment(dec("2000"), dec("3000"))
	require.True(t, alloc.FromCredit.Equal(dec("2000")))
	require.True(t, alloc.FromAccount.IsZero())
}

func TestAllocatePaymentNoCredit(t *testing.T) {
	alloc := AllocatePayment(dec("7500"), dec("0"))
	require.True(t, alloc.FromCredit.IsZero())
	require.True(t, alloc.FromAccount.Equal(dec("7500")))
}

func TestAllocatePaymentNegativeCreditIgnored(t *testing.T) {
	alloc := AllocatePayment(dec("7500"), dec("-200"))
	require.True(t, alloc.FromCredit.IsZero())
	require.True(t, alloc.FromAccount.Equal(dec("7500")))
}

func TestAllocatePaymentPartsSumToTotal(t *testing.T) {
	totals := []string{"0", "0.01", "99.99", "7500", "123456.78"}
	credits := []string{"0", "50", "7500", "1000000"}
	for _, total := range totals {
		for _, credit := range credits {
			alloc := AllocatePayment(dec(total), dec(credit))
			require.True(t, alloc.FromCredit.Add(alloc.FromAccount).Equal(dec(total)),
				"total %s credit %s", total, credit)
			require.True(t, alloc.FromCredit.LessThanOrEqual(dec(credit)) || dec(credit).Sign() <= 0)
		}
	}
}
