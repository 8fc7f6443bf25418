package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type bankCatalog interface {
	ListBanks(ctx context.Context) ([]Bank, error)
	GetTransferFee(ctx context.Context, amount int64) (int64, error)
}

// CachedCatalog keeps slow-changing provider lookups in redis. A redis fault
// falls through to the provider; it never fails the call.
type CachedCatalog struct {
	inner bankCatalog
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(inner bankCatalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{inner: inner, rdb: rdb, ttl: ttl}
}

const banksKey = "catalog:banks:NG"

func feeKey(amount int64) string {
	return "catalog:fee:NGN:" + strconv.FormatInt(amount, 10)
}

func (c *CachedCatalog) ListBanks(ctx context.Context) ([]Bank, error) {
	log := logging.FromContext(ctx)

	raw, err := c.rdb.Get(ctx, banksKey).Bytes()
	switch {
	case err == nil:
		var banks []Bank
		if jsonErr := json.Unmarshal(raw, &banks); jsonErr == nil {
			return banks, nil
		}
		log.Warn("discarding corrupt bank list cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn("bank list cache read failed", "error", err)
	}

	banks, err := c.inner.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBanks: %w", err)
	}

	if encoded, err := json.Marshal(banks); err == nil {
		if err := c.rdb.Set(ctx, banksKey, encoded, c.ttl).Err(); err != nil {
			log.Warn("bank list cache write failed", "error", err)
		}
	}
	return banks, nil
}

func (c *CachedCatalog) GetTransferFee(ctx context.Context, amount int64) (int64, error) {
	log := logging.FromContext(ctx)
	key := feeKey(amount)

	fee, err := c.rdb.Get(ctx, key).Int64()
	switch {
	case err == nil:
		return fee, nil
	case !errors.Is(err, redis.Nil):
		log.Warn("transfer fee cache read failed", "error", err)
	}

	fee, err = c.inner.GetTransferFee(ctx, amount)
	if err != nil {
		return 0, fmt.Errorf("GetTransferFee: %w", err)
	}
	if err := c.rdb.Set(ctx, key, fee, c.ttl).Err(); err != nil {
		log.Warn("transfer fee cache write failed", "error", err)
	}
	return fee, nil
}

// CachedPayouts is a Flutterwave client whose fee quotes are served from the
// catalog cache. Payout calls themselves are never cached.
type CachedPayouts struct {
	*Flutterwave
	fees *CachedCatalog
}

func NewCachedPayouts(flw *Flutterwave, fees *CachedCatalog) *CachedPayouts {
	return &CachedPayouts{Flutterwave: flw, fees: fees}
}

func (p *CachedPayouts) GetTransferFee(ctx context.Context, amount int64) (int64, error) {
	return p.fees.GetTransferFee(ctx, amount)
}
