// Package currency implements the exchange-rate registry shared by all
// procurement orders. Rates are stored per currency code, last write wins.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownCurrency indicates no rate is registered for the code.
var ErrUnknownCurrency = errors.New("currency: unknown currency code")

// Source provides the persistent rate storage behind the registry.
type Source interface {
	Rate(ctx context.Context, code string) (decimal.Decimal, error)
	SetRate(ctx context.Context, code string, rate decimal.Decimal) error
}

// Registry caches rate lookups in redis in front of a Source. Concurrent
// misses for the same code are collapsed through singleflight.
type Registry struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewRegistry constructs a Registry. A nil redis client disables caching.
func NewRegistry(source Source, rdb *redis.Client, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Registry{source: source, rdb: rdb, ttl: ttl}
}

func cacheKey(code string) string {
	return fmt.Sprintf("currency:rate:%s", code)
}

// Rate returns the registered rate for the code.
func (r *Registry) Rate(ctx context.Context, code string) (decimal.Decimal, error) {
	if code == "" {
		return decimal.Zero, ErrUnknownCurrency
	}
	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, cacheKey(code)).Result()
		if err == nil {
			if rate, perr := decimal.NewFromString(cached); perr == nil {
				return rate, nil
			}
		}
	}
	value, err, _ := r.group.Do(code, func() (any, error) {
		rate, err := r.source.Rate(ctx, code)
		if err != nil {
			return nil, err
		}
		if r.rdb != nil {
			_ = r.rdb.Set(ctx, cacheKey(code), rate.String(), r.ttl).Err()
		}
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return value.(decimal.Decimal), nil
}

// SetRate stores the rate and drops the cached value. The write is global:
// every later order in the same currency observes it.
func (r *Registry) SetRate(ctx context.Context, code string, rate decimal.Decimal) error {
	if code == "" {
		return ErrUnknownCurrency
	}
	if rate.Sign() <= 0 {
		return errors.New("currency: rate must be positive")
	}
	if err := r.source.SetRate(ctx, code, rate); err != nil {
		return err
	}
	return r.Invalidate(ctx, code)
}

// Invalidate drops the cached rate for the code. Used after a rate change
// committed through another transaction touched the underlying row.
func (r *Registry) Invalidate(ctx context.Context, code string) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, cacheKey(code)).Err()
}
