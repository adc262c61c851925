package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encoded values under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether reads and writes reach Redis
func (c *Cache) Enabled() bool {
	return c != nil && c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLLong  = 1 * time.Hour  // 마스터 데이터 (종목 목록)
	TTLDaily = 24 * time.Hour // 일별 데이터
)

const keyDate = "20060102"

// PriceSeriesKey is the cache key of a price range query
func PriceSeriesKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("price:%s:%s:%s", symbol, start.Format(keyDate), end.Format(keyDate))
}

// DisclosureKey is the cache key of a disclosure range query
func DisclosureKey(symbol, corpName string, start, end time.Time) string {
	return fmt.Sprintf("disclosure:%s:%s:%s:%s", symbol, corpName, start.Format(keyDate), end.Format(keyDate))
}

// IndicatorKey is the cache key of an indicator query
func IndicatorKey(symbol, corpName string, start, end time.Time, reportTypes []string) string {
	return fmt.Sprintf("indicator:%s:%s:%s:%s:%s",
		symbol, corpName, start.Format(keyDate), end.Format(keyDate), strings.Join(reportTypes, "|"))
}

// CorpNameKey is the cache key of a symbol → company name lookup
func CorpNameKey(symbol string) string {
	return fmt.Sprintf("corp:%s", symbol)
}
