package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/pkg/logger"
	"github.com/wonny/aegis-backtest/pkg/redis"
)

// CachedStore is a read-through Redis cache in front of another store.
// With a disabled cache every call goes straight to the inner store.
type CachedStore struct {
	inner  contracts.MarketDataStore
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

var _ contracts.MarketDataStore = (*CachedStore)(nil)

// NewCachedStore wraps inner with cache
func NewCachedStore(inner contracts.MarketDataStore, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.OrNop(log).WithField("module", "cached_store"),
	}
}

// through reads key from cache or fills it with load
func through[T any](ctx context.Context, s *CachedStore, key string, load func() (T, error)) (T, error) {
	var cached T
	if s.cache.Enabled() {
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		} else if found {
			return cached, nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return value, nil
}

// ListSymbols is cached under a single key
func (s *CachedStore) ListSymbols(ctx context.Context) ([]string, error) {
	return through(ctx, s, "symbols", func() ([]string, error) {
		return s.inner.ListSymbols(ctx)
	})
}

type resolvedCorp struct {
	Symbol string `json:"symbol"`
	OK     bool   `json:"ok"`
}

// ResolveCorpName caches both hits and misses
func (s *CachedStore) ResolveCorpName(ctx context.Context, corpName string) (string, bool, error) {
	res, err := through(ctx, s, fmt.Sprintf("resolve:%s", corpName), func() (resolvedCorp, error) {
		symbol, ok, err := s.inner.ResolveCorpName(ctx, corpName)
		return resolvedCorp{Symbol: symbol, OK: ok}, err
	})
	return res.Symbol, res.OK, err
}

// LookupCorpName is cached per symbol
func (s *CachedStore) LookupCorpName(ctx context.Context, symbol string) (string, error) {
	return through(ctx, s, redis.CorpNameKey(symbol), func() (string, error) {
		return s.inner.LookupCorpName(ctx, symbol)
	})
}

// LoadPrices is cached per (symbol, range)
func (s *CachedStore) LoadPrices(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	return through(ctx, s, redis.PriceSeriesKey(symbol, start, end), func() (contracts.PriceSeries, error) {
		return s.inner.LoadPrices(ctx, symbol, start, end)
	})
}

// LoadDisclosures is cached per full query
func (s *CachedStore) LoadDisclosures(ctx context.Context, q contracts.DisclosureQuery) (contracts.DisclosureHistory, error) {
	return through(ctx, s, redis.DisclosureKey(q.Symbol, q.CorpName, q.Start, q.End), func() (contracts.DisclosureHistory, error) {
		return s.inner.LoadDisclosures(ctx, q)
	})
}

// LoadIndicators is cached per full query
func (s *CachedStore) LoadIndicators(ctx context.Context, q contracts.IndicatorQuery) ([]contracts.IndicatorRecord, error) {
	key := redis.IndicatorKey(q.Symbol, q.CorpName, q.Start, q.End, q.ReportTypes)
	return through(ctx, s, key, func() ([]contracts.IndicatorRecord, error) {
		return s.inner.LoadIndicators(ctx, q)
	})
}
