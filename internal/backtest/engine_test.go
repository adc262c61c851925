package backtest

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/internal/s0_data"
)

func engineConfig() contracts.BacktestConfig {
	cfg := contracts.DefaultBacktestConfig()
	cfg.StartDate = day("2024-01-01")
	cfg.EndDate = day("2024-06-30")
	cfg.Commission = 0
	cfg.Slippage = 0
	return cfg
}

func newEngine(store *s0_data.MemoryStore) *Engine {
	return NewEngine(s0_data.NewLoader(store, s0_data.LoaderConfig{Concurrency: 4}, nil), nil)
}

// 두 종목, 6개월 일봉, 공시 없음 → 거래 없음
func TestEngine_NoDisclosuresHoldsCash(t *testing.T) {
	store := s0_data.NewMemoryStore()
	days := weekdays(day("2024-01-02"), 125)
	for i, symbol := range []string{"005930", "000660"} {
		store.AddPrices(symbol, flatBars(days, float64(70_000+i*50_000), 500)...)
	}

	cfg := engineConfig()
	cfg.UseDisclosures = false
	cfg.TargetSymbols = []string{"005930", "000660"}

	result, err := newEngine(store).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Zero(t, result.TotalTrades)
	assert.Empty(t, result.Trades)
	assert.Zero(t, result.TotalReturn)
	assert.Zero(t, result.WinRate)
	assert.Equal(t, cfg.InitialCash, result.FinalEquity)
	assert.Equal(t, 125, result.TradingDays)
	assert.Len(t, result.EquityCurve, 125)
	assert.Equal(t, []string{"005930", "000660"}, result.Symbols)
}

// 종목 하나, 첫 리밸런싱 전 호재 공시 하나, 규칙 없음 → 첫날 BUY 한 건
func TestEngine_SinglePositiveDisclosureBuysOnce(t *testing.T) {
	store := s0_data.NewMemoryStore()
	days := weekdays(day("2024-01-02"), 10)
	store.AddPrices("005930", flatBars(days, 70_000, 0)...)
	store.AddDisclosures(contracts.NewDisclosureEvent(day("2024-01-01"), "005930", "삼성전자", "유상증자 결정", "", "20240101000001"))

	cfg := engineConfig()
	cfg.EndDate = day("2024-01-31")
	cfg.TargetSymbols = []string{"005930"}
	cfg.CategorySignals = nil
	cfg.EventSignals = nil

	result, err := newEngine(store).Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	buy := result.Trades[0]
	assert.Equal(t, contracts.ActionBuy, buy.Action)
	assert.Equal(t, days[0], buy.Date)
	assert.Equal(t, int64(100_000_000/70_000), buy.Size)
	assert.True(t, strings.Contains(buy.Reason, "disclosure"), buy.Reason)
	assert.Equal(t, 1, result.BuyCount)
	assert.Equal(t, 0, result.TotalTrades)
	assert.Equal(t, 1, result.EventPerformance["유상증자"].Count)
}

func TestEngine_EmptyOutcomes(t *testing.T) {
	store := s0_data.NewMemoryStore()
	store.AddPrices("005930", flatBars(weekdays(day("2024-01-02"), 5), 100, 1)...)
	store.SetCorpName("005930", "삼성전자")

	tests := []struct {
		name    string
		mutate  func(*contracts.BacktestConfig)
		wantErr error
	}{
		{"unknown corp name", func(c *contracts.BacktestConfig) { c.TargetCorpNames = []string{"없는회사"} }, ErrEmptyUniverse},
		{"filter keeps nothing", func(c *contracts.BacktestConfig) {
			c.SortBy = contracts.SortMomentum
			c.Filter = contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 0}
		}, ErrNoCandidates},
		{"no bars for targets", func(c *contracts.BacktestConfig) { c.TargetSymbols = []string{"999999"} }, ErrNoPriceData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engineConfig()
			tt.mutate(&cfg)
			before := testutil.ToFloat64(metrics.BacktestRunsTotal.WithLabelValues("empty"))

			result, err := newEngine(store).Run(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, result)
			assert.Equal(t, cfg.InitialCash, result.FinalEquity)
			assert.Empty(t, result.Trades)
			assert.Equal(t, cfg.Hash(), result.ConfigHash)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.BacktestRunsTotal.WithLabelValues("empty")))
		})
	}
}

func TestEngine_RerunIsIdentical(t *testing.T) {
	store := s0_data.NewMemoryStore()
	days := weekdays(day("2024-01-02"), 120)
	for i, symbol := range []string{"A", "B", "C"} {
		series := make(contracts.PriceSeries, len(days))
		for j, d := range days {
			c := 1000 + float64((j*(i+3))%17)*10
			series[j] = contracts.PriceBar{Date: d, Open: c - 5, High: c + 20, Low: c - 25, Close: c, Volume: 100}
		}
		store.AddPrices(symbol, series...)
	}
	store.AddDisclosures(
		contracts.NewDisclosureEvent(day("2024-01-03"), "A", "", "자기주식취득 결정", "자기주식", ""),
		contracts.NewDisclosureEvent(day("2024-02-15"), "B", "", "유상증자 결정", "증자감자", ""),
		contracts.NewDisclosureEvent(day("2024-03-04"), "A", "", "소송 등의 제기", "소송", ""),
		contracts.NewDisclosureEvent(day("2024-04-01"), "C", "", "전환사채권 발행결정", "사채발행", ""),
	)

	cfg := engineConfig()
	cfg.Commission, cfg.Slippage = 0.0005, 0.001
	cfg.RebalancePeriod = contracts.RebalanceWeekly
	cfg.MaxPositions = 2

	first, err := newEngine(store).Run(context.Background(), cfg)
	require.NoError(t, err)
	second, err := newEngine(store).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Trades)
}

func TestEngine_Canceled(t *testing.T) {
	store := s0_data.NewMemoryStore()
	store.AddPrices("A", flatBars(weekdays(day("2024-01-02"), 5), 100, 1)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEngine(store).Run(ctx, engineConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}
