package s0_data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/pkg/config"
	"github.com/wonny/aegis-backtest/pkg/logger"
	"github.com/wonny/aegis-backtest/pkg/redis"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(d string, close float64) contracts.PriceBar {
	return contracts.PriceBar{Date: day(d), Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func fixtureStore() *MemoryStore {
	store := NewMemoryStore()
	store.AddPrices("005930", bar("2024-01-03", 71000), bar("2024-01-02", 70000), bar("2024-01-04", 72000))
	store.AddPrices("000660", bar("2024-01-02", 130000))
	store.AddDisclosures(
		contracts.NewDisclosureEvent(day("2024-01-02"), "005930", "삼성전자", "자기주식 취득 결정", "자기주식", "R1"),
		contracts.NewDisclosureEvent(day("2024-01-10"), "005930", "삼성전자", "감자 결정", "증자감자", "R2"),
	)
	score := 12.5
	store.AddIndicators("005930",
		contracts.IndicatorRecord{Date: day("2024-01-02"), ReportType: "자기주식 취득 결정", IndicatorName: "취득비율", Score: &score},
		contracts.IndicatorRecord{Date: day("2024-01-02"), ReportType: "감자 결정", IndicatorName: "감자비율"},
	)
	return store
}

func TestMemoryStore_Queries(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore()

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"000660", "005930"}, symbols)

	prices, err := store.LoadPrices(ctx, "005930", day("2024-01-03"), day("2024-01-04"))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 71000.0, prices[0].Close)

	empty, err := store.LoadPrices(ctx, "999999", day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	symbol, ok, err := store.ResolveCorpName(ctx, "삼성전자")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "005930", symbol)

	_, ok, err = store.ResolveCorpName(ctx, "삼성")
	require.NoError(t, err)
	assert.False(t, ok, "corp names resolve by exact match only")

	recs, err := store.LoadIndicators(ctx, contracts.IndicatorQuery{
		Symbol:      "005930",
		Start:       day("2024-01-01"),
		End:         day("2024-01-31"),
		ReportTypes: []string{"감자 결정"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].HasScore())
}

func TestLoader_DegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore()
	store.FailQuery(QueryPrices, errors.New("connection reset"))

	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)
	loader := NewLoader(store, LoaderConfig{Concurrency: 2}, log)

	before := testutil.ToFloat64(metrics.StoreQueryErrorsTotal.WithLabelValues(QueryPrices))

	prices := loader.Prices(ctx, "005930", day("2024-01-01"), day("2024-01-31"))
	assert.NotNil(t, prices)
	assert.Empty(t, prices)

	after := testutil.ToFloat64(metrics.StoreQueryErrorsTotal.WithLabelValues(QueryPrices))
	assert.Equal(t, before+1, after)
	assert.Contains(t, buf.String(), "connection reset")
	assert.Contains(t, buf.String(), "Data query failed")

	// 다른 쿼리는 영향 없음
	history := loader.Disclosures(ctx, contracts.DisclosureQuery{Symbol: "005930", Start: day("2024-01-01"), End: day("2024-01-31")})
	assert.Len(t, history, 2)
}

func TestLoader_DisclosuresByCorpName(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore()
	// 종목코드 없이 회사명으로만 접수된 공시
	store.AddDisclosures(
		contracts.NewDisclosureEvent(day("2024-01-05"), "", "삼성전자", "소송 등의 제기", "소송", "R3"),
		contracts.NewDisclosureEvent(day("2024-01-06"), "000660", "SK하이닉스", "유상증자 결정", "증자감자", "R4"),
	)
	loader := NewLoader(store, LoaderConfig{}, nil)
	from, to := day("2024-01-01"), day("2024-01-31")

	tests := []struct {
		name     string
		query    contracts.DisclosureQuery
		receipts []string
	}{
		{"symbol only", contracts.DisclosureQuery{Symbol: "005930"}, []string{"R1", "R2"}},
		{"corp name only", contracts.DisclosureQuery{CorpName: "삼성전자"}, []string{"R1", "R3", "R2"}},
		{"symbol and corp name", contracts.DisclosureQuery{Symbol: "000660", CorpName: "SK하이닉스"}, []string{"R4"}},
		{"mismatched corp name", contracts.DisclosureQuery{Symbol: "005930", CorpName: "SK하이닉스"}, []string{}},
		{"neither", contracts.DisclosureQuery{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Start, q.End = from, to
			history := loader.Disclosures(ctx, q)

			receipts := make([]string, 0, len(history))
			for _, ev := range history {
				receipts = append(receipts, ev.ReceiptNo)
			}
			assert.Equal(t, tt.receipts, receipts)
		})
	}
}

func TestLoader_LoadAll(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(fixtureStore(), LoaderConfig{Concurrency: 1, QueriesPerSecond: 1000}, nil)

	md, err := loader.LoadAll(ctx, []string{"005930", "999999", "000660", "005930"}, LoadRequest{
		Start:          day("2024-01-01"),
		End:            day("2024-01-31"),
		WithPrices:     true,
		WithDisclosure: true,
		ReportTypes:    []string{"자기주식 취득 결정"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"005930", "999999", "000660"}, md.Symbols)
	assert.Equal(t, []string{"005930", "000660"}, md.WithPrices())

	samsung := md.Get("005930")
	assert.Equal(t, "삼성전자", samsung.CorpName)
	assert.Len(t, samsung.Prices, 3)
	assert.Len(t, samsung.Disclosures, 2)
	require.Len(t, samsung.Indicators, 1)
	assert.Equal(t, "취득비율", samsung.Indicators[0].IndicatorName)

	missing := md.Get("123456")
	assert.Equal(t, "123456", missing.Symbol)
	assert.True(t, missing.Prices.Empty())
}

func TestLoader_LoadAll_SkipsDisabledQueries(t *testing.T) {
	store := fixtureStore()
	store.FailQuery(QueryIndicators, fmt.Errorf("must not be called"))
	loader := NewLoader(store, LoaderConfig{}, nil)

	md, err := loader.LoadAll(context.Background(), []string{"005930"}, LoadRequest{
		Start:      day("2024-01-01"),
		End:        day("2024-01-31"),
		WithPrices: true,
	})
	require.NoError(t, err)

	d := md.Get("005930")
	assert.Len(t, d.Prices, 3)
	assert.Empty(t, d.Disclosures)
	assert.Empty(t, d.Indicators)
	assert.Equal(t, 20, loader.Concurrency())
}

func TestLoader_LoadAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(fixtureStore(), LoaderConfig{}, nil)
	_, err := loader.LoadAll(ctx, []string{"005930"}, LoadRequest{WithPrices: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedStore_DisabledPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := fixtureStore()
	cache := redis.NewCache(redis.Disabled(), "test")
	store := NewCachedStore(inner, cache, 0, nil)

	prices, err := store.LoadPrices(ctx, "005930", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, prices, 3)

	inner.FailQuery(QueryPrices, errors.New("down"))
	_, err = store.LoadPrices(ctx, "005930", day("2024-01-01"), day("2024-01-31"))
	assert.Error(t, err, "disabled cache must not serve stale values")

	symbol, ok, err := store.ResolveCorpName(ctx, "삼성전자")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "005930", symbol)

	history, err := store.LoadDisclosures(ctx, contracts.DisclosureQuery{CorpName: "삼성전자", Start: day("2024-01-01"), End: day("2024-01-05")})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "R1", history[0].ReceiptNo)
}
