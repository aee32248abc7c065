package currency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	rates map[string]decimal.Decimal
	reads int
}

func (s *memorySource) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	s.reads++
	rate, ok := s.rates[code]
	if !ok {
		return decimal.Zero, ErrUnknownCurrency
	}
	return rate, nil
}

func (s *memorySource) SetRate(ctx context.Context, code string, rate decimal.Decimal) error {
	s.rates[code] = rate
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *memorySource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &memorySource{rates: map[string]decimal.Decimal{}}
	return NewRegistry(source, client, time.Minute), source
}

func TestRegistryCachesReads(t *testing.T) {
	reg, source := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, source.SetRate(ctx, "USD", decimal.NewFromInt(15)))

	first, err := reg.Rate(ctx, "USD")
	require.NoError(t, err)
	require.True(t, first.Equal(decimal.NewFromInt(15)))

	second, err := reg.Rate(ctx, "USD")
	require.NoError(t, err)
	require.True(t, second.Equal(first))
	require.Equal(t, 1, source.reads)
}

func TestRegistrySetRateInvalidatesCache(t *testing.T) {
	reg, source := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, source.SetRate(ctx, "USD", decimal.NewFromInt(15)))
	_, err := reg.Rate(ctx, "USD")
	require.NoError(t, err)

	require.NoError(t, reg.SetRate(ctx, "USD", decimal.RequireFromString("15.5")))

	rate, err := reg.Rate(ctx, "USD")
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("15.5")))
}

func TestRegistryRejectsBadInput(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Rate(ctx, "XXX")
	require.ErrorIs(t, err, ErrUnknownCurrency)

	require.Error(t, reg.SetRate(ctx, "USD", decimal.Zero))
}
