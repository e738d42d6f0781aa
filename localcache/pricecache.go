package localcache

import (
	"context"
	"sync"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	cacheRefreshInterval = time.Minute
	maxRetries           = 5
	retryBackoff         = time.Second
	ratePrecision        = 18
)

// PriceStorage is where the coin price feed lands
type PriceStorage interface {
	GetCoinPrices(ctx context.Context) (map[uint64]decimal.Decimal, error)
}

// PriceCache keeps the USD price of the native coin of each chain in memory
type PriceCache struct {
	lock     sync.RWMutex
	prices   map[uint64]decimal.Decimal
	storage  PriceStorage
	interval time.Duration
	backoff  time.Duration
}

// NewPriceCache loads the prices once. A zero interval uses the default
func NewPriceCache(ctx context.Context, storage PriceStorage, interval time.Duration) (*PriceCache, error) {
	if storage == nil {
		return nil, errors.New("NewPriceCache storage is nil")
	}
	if interval == 0 {
		interval = cacheRefreshInterval
	}
	cache := &PriceCache{
		prices:   make(map[uint64]decimal.Decimal),
		storage:  storage,
		interval: interval,
		backoff:  retryBackoff,
	}
	if err := cache.doRefresh(ctx); err != nil {
		log.Errorf("init price cache err[%v]", err)
		return nil, err
	}
	return cache, nil
}

// Refresh reloads the prices every interval until ctx is done
func (c *PriceCache) Refresh(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.doRefresh(ctx); err != nil {
				log.Errorf("refresh price cache error[%v]", err)
			}
		}
	}
}

// doRefresh replaces the cached prices, retrying a failing read up to maxRetries times
func (c *PriceCache) doRefresh(ctx context.Context) error {
	var (
		prices map[uint64]decimal.Decimal
		err    error
	)
	for i := 0; i <= maxRetries; i++ {
		prices, err = c.storage.GetCoinPrices(ctx)
		if err == nil {
			break
		}
		if i == maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	c.lock.Lock()
	c.prices = prices
	c.lock.Unlock()
	return nil
}

// Price returns the cached price of the native coin of chainID
func (c *PriceCache) Price(chainID uint64) (decimal.Decimal, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	p, ok := c.prices[chainID]
	return p, ok
}

// MarketRate returns how many destination coins one source coin is worth
func (c *PriceCache) MarketRate(_ context.Context, sourceChain, destinationChain uint64) (decimal.Decimal, error) {
	src, ok := c.Price(sourceChain)
	if !ok || !src.IsPositive() {
		return decimal.Zero, errors.Wrapf(gerror.ErrNoMarketRate, "no price for chain %d", sourceChain)
	}
	dst, ok := c.Price(destinationChain)
	if !ok || !dst.IsPositive() {
		return decimal.Zero, errors.Wrapf(gerror.ErrNoMarketRate, "no price for chain %d", destinationChain)
	}
	return src.DivRound(dst, ratePrecision), nil
}
