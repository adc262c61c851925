package backtest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/pkg/config"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// weekdays returns n business days starting at from
func weekdays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := from; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func flatBars(days []time.Time, close, spread float64) contracts.PriceSeries {
	series := make(contracts.PriceSeries, len(days))
	for i, d := range days {
		series[i] = contracts.PriceBar{Date: d, Open: close, High: close + spread, Low: close - spread, Close: close, Volume: 1000}
	}
	return series
}

func market(data ...*s0_data.SymbolData) *s0_data.MarketData {
	m := &s0_data.MarketData{Data: make(map[string]*s0_data.SymbolData, len(data))}
	for _, d := range data {
		m.Symbols = append(m.Symbols, d.Symbol)
		m.Data[d.Symbol] = d
	}
	return m
}

func positive(symbol string, date time.Time) contracts.DisclosureHistory {
	return contracts.DisclosureHistory{contracts.NewDisclosureEvent(date, symbol, "", "유상증자 결정", "", "")}
}

func simConfig() contracts.BacktestConfig {
	cfg := contracts.DefaultBacktestConfig()
	cfg.InitialCash = 1_000_000
	cfg.Commission = 0
	cfg.Slippage = 0
	cfg.CategorySignals = nil
	cfg.EventSignals = nil
	cfg.MaxPositions = 2
	return cfg
}

func TestSimulator_RebalanceSellsBeforeBuys(t *testing.T) {
	days := weekdays(day("2024-01-02"), 5)
	cfg := simConfig()
	cfg.RebalancePeriod = contracts.RebalanceDaily

	m := market(
		&s0_data.SymbolData{Symbol: "A", Prices: flatBars(days, 100, 0), Disclosures: positive("A", days[0])},
		&s0_data.SymbolData{Symbol: "B", Prices: flatBars(days, 200, 0), Disclosures: positive("B", days[0])},
	)

	sim, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A", "B"}, m)
	require.NoError(t, err)
	assert.Equal(t, 5, sim.RebalanceCount)
	assert.Equal(t, 5, sim.TradingDays)

	byDay := map[time.Time][]contracts.TradeRecord{}
	for _, tr := range sim.Trades {
		byDay[tr.Date] = append(byDay[tr.Date], tr)
	}
	require.Len(t, byDay[days[0]], 2)
	for _, d := range days[1:] {
		trades := byDay[d]
		require.Len(t, trades, 4, d.Format("2006-01-02"))
		assert.Equal(t, contracts.ActionSell, trades[0].Action)
		assert.Equal(t, contracts.ActionSell, trades[1].Action)
		assert.Equal(t, ReasonRebalance, trades[0].Reason)
		assert.Equal(t, contracts.ActionBuy, trades[2].Action)
		assert.Equal(t, contracts.ActionBuy, trades[3].Action)
	}

	// 슬롯당 500,000원
	first := byDay[days[0]]
	assert.Equal(t, "A", first[0].Symbol)
	assert.Equal(t, int64(5000), first[0].Size)
	assert.Equal(t, int64(2500), first[1].Size)
	assert.Equal(t, "disclosure positive: 유상증자", first[0].Reason)
}

func TestSimulator_StopLossAndTakeProfit(t *testing.T) {
	days := weekdays(day("2024-01-02"), 6)
	cfg := simConfig()
	cfg.MaxPositions = 1

	tests := []struct {
		name       string
		last       contracts.PriceBar
		wantReason string
		wantPrice  float64
	}{
		// ATR = 2 → stop 96, target 106
		{"stop below close", contracts.PriceBar{Open: 99, High: 100, Low: 94, Close: 95}, ReasonStopLoss, 96},
		{"target above close", contracts.PriceBar{Open: 101, High: 108, Low: 100, Close: 107}, ReasonTakeProfit, 106},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := flatBars(days[:5], 100, 1)
			tt.last.Date = days[5]
			series = append(series, tt.last)
			m := market(&s0_data.SymbolData{Symbol: "A", Prices: series, Disclosures: positive("A", days[0])})

			sim, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A"}, m)
			require.NoError(t, err)
			require.Len(t, sim.Trades, 2)

			buy, exit := sim.Trades[0], sim.Trades[1]
			assert.Equal(t, contracts.ActionBuy, buy.Action)
			assert.Equal(t, days[5], exit.Date)
			assert.Equal(t, tt.wantReason, exit.Reason)
			assert.InDelta(t, tt.wantPrice, exit.Price, 1e-9)
		})
	}
}

func TestSimulator_BracketLogsTrendAverages(t *testing.T) {
	days := weekdays(day("2024-01-02"), 3)
	cfg := simConfig()
	cfg.MaxPositions = 1

	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{Env: "test", LogLevel: "debug"}, &buf)
	m := market(&s0_data.SymbolData{Symbol: "A", Prices: flatBars(days, 100, 1), Disclosures: positive("A", days[0])})

	_, err := NewSimulator(cfg, log).Run(context.Background(), []string{"A"}, m)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Bracket placed")
	assert.Contains(t, out, `"atr":2`)
	assert.Contains(t, out, `"sma_fast":100`)
	assert.Contains(t, out, `"sma_slow":100`)
}

func TestSimulator_SellSignalLiquidates(t *testing.T) {
	days := weekdays(day("2024-01-02"), 4)
	cfg := simConfig()

	history := contracts.DisclosureHistory{
		contracts.NewDisclosureEvent(days[0], "A", "", "유상증자 결정", "", ""),
		contracts.NewDisclosureEvent(days[2], "A", "", "감자 결정", "", ""),
	}
	m := market(&s0_data.SymbolData{Symbol: "A", Prices: flatBars(days, 100, 0), Disclosures: history})

	sim, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A"}, m)
	require.NoError(t, err)
	require.Len(t, sim.Trades, 2)
	assert.Equal(t, contracts.ActionSell, sim.Trades[1].Action)
	assert.Equal(t, days[2], sim.Trades[1].Date)
	assert.Equal(t, "disclosure negative: 감자", sim.Trades[1].Reason)
}

func TestSimulator_MissingBarSellsAtLastClose(t *testing.T) {
	days := weekdays(day("2024-01-02"), 3)
	cfg := simConfig()
	cfg.RebalancePeriod = contracts.RebalanceDaily

	m := market(
		&s0_data.SymbolData{Symbol: "A", Prices: flatBars(days, 100, 0), Disclosures: positive("A", days[0])},
		&s0_data.SymbolData{Symbol: "B", Prices: flatBars(days[:1], 250, 0), Disclosures: positive("B", days[0])},
	)

	sim, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A", "B"}, m)
	require.NoError(t, err)

	var sold *contracts.TradeRecord
	for i, tr := range sim.Trades {
		if tr.Symbol == "B" && tr.Action == contracts.ActionSell {
			sold = &sim.Trades[i]
			break
		}
	}
	require.NotNil(t, sold)
	assert.Equal(t, days[1], sold.Date)
	assert.Equal(t, 250.0, sold.Price)
	assert.Zero(t, sold.PnL)
}

func TestSimulator_EquityCurve(t *testing.T) {
	days := weekdays(day("2024-01-02"), 3)
	cfg := simConfig()
	cfg.MaxPositions = 1

	// ATR 10 → 밴드 80 / 130
	series := flatBars(days, 100, 5)
	series[2] = contracts.PriceBar{Date: days[2], Open: 110, High: 115, Low: 105, Close: 110}
	m := market(&s0_data.SymbolData{Symbol: "A", Prices: series, Disclosures: positive("A", days[0])})

	sim, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A"}, m)
	require.NoError(t, err)
	require.Len(t, sim.EquityCurve, 3)

	assert.InDelta(t, 1_000_000.0, sim.EquityCurve[0].Equity, 1e-6)
	assert.InDelta(t, 1_100_000.0, sim.EquityCurve[2].Equity, 1e-6)
	assert.InDelta(t, 0.1, sim.EquityCurve[2].Return, 1e-9)
	assert.Equal(t, sim.EquityCurve[2].Equity, sim.FinalEquity)
}

func TestSimulator_Deterministic(t *testing.T) {
	days := weekdays(day("2024-01-02"), 40)
	cfg := simConfig()
	cfg.Commission, cfg.Slippage = 0.0005, 0.001
	cfg.RebalancePeriod = contracts.RebalanceWeekly

	series := make(contracts.PriceSeries, len(days))
	for i, d := range days {
		c := 100 + float64(i%7)*3 - float64(i%5)*2
		series[i] = contracts.PriceBar{Date: d, Open: c - 1, High: c + 2, Low: c - 3, Close: c}
	}
	build := func() *s0_data.MarketData {
		return market(
			&s0_data.SymbolData{Symbol: "A", Prices: series, Disclosures: positive("A", days[0])},
			&s0_data.SymbolData{Symbol: "B", Prices: flatBars(days, 50, 1), Disclosures: positive("B", days[3])},
		)
	}

	first, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A", "B"}, build())
	require.NoError(t, err)
	second, err := NewSimulator(cfg, nil).Run(context.Background(), []string{"A", "B"}, build())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Trades)
}

func TestSimulator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	days := weekdays(day("2024-01-02"), 3)
	m := market(&s0_data.SymbolData{Symbol: "A", Prices: flatBars(days, 100, 0)})

	_, err := NewSimulator(simConfig(), nil).Run(ctx, []string{"A"}, m)
	assert.ErrorIs(t, err, context.Canceled)
}
