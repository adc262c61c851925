package redis

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-backtest/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCacheKeys(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"PriceSeriesKey", PriceSeriesKey("005930", start, end), "price:005930:20240102:20240628"},
		{"DisclosureKey", DisclosureKey("005930", "", start, end), "disclosure:005930::20240102:20240628"},
		{"DisclosureKeyByName", DisclosureKey("", "삼성전자", start, end), "disclosure::삼성전자:20240102:20240628"},
		{"IndicatorKey", IndicatorKey("005930", "삼성전자", start, end, []string{"a", "b"}), "indicator:005930:삼성전자:20240102:20240628:a|b"},
		{"CorpNameKey", CorpNameKey("005930"), "corp:005930"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestCache_RoundTrip(t *testing.T) {
	if os.Getenv("REDIS_TEST_ADDR") == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping integration test")
	}
	host, port, err := net.SplitHostPort(os.Getenv("REDIS_TEST_ADDR"))
	require.NoError(t, err)

	ctx := context.Background()
	client, err := New(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "aegis-backtest-test")
	require.NoError(t, cache.Set(ctx, "roundtrip", []int{1, 2, 3}, time.Minute))

	var got []int
	found, err := cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{1, 2, 3}, got)

	require.NoError(t, cache.Delete(ctx, "roundtrip"))
	found, err = cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
