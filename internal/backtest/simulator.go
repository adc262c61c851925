package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/internal/s2_signals"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// Simulator steps the portfolio strategy one trading day at a time
// ⭐ SSOT: 백테스팅 시뮬레이션은 여기서만
type Simulator struct {
	config   contracts.BacktestConfig
	resolver *s2_signals.Resolver
	logger   *logger.Logger
}

// Simulation is the raw output of one simulated run
type Simulation struct {
	Trades         []contracts.TradeRecord
	EquityCurve    []contracts.EquityPoint
	FinalEquity    float64
	TradingDays    int
	RebalanceCount int
}

// symbolFeed walks one symbol's price series in step with the calendar
type symbolFeed struct {
	symbol     string
	series     contracts.PriceSeries
	cursor     int
	indicators *s2_signals.RollingIndicators
	state      *s2_signals.SymbolState
}

// advance returns the bar dated day, if the series has one
func (f *symbolFeed) advance(day time.Time) (contracts.PriceBar, bool) {
	for f.cursor < len(f.series) && f.series[f.cursor].Date.Before(day) {
		f.cursor++
	}
	if f.cursor < len(f.series) && f.series[f.cursor].Date.Equal(day) {
		bar := f.series[f.cursor]
		f.cursor++
		return bar, true
	}
	return contracts.PriceBar{}, false
}

// NewSimulator creates a simulator for cfg
func NewSimulator(cfg contracts.BacktestConfig, log *logger.Logger) *Simulator {
	log = logger.OrNop(log)
	return &Simulator{
		config:   cfg,
		resolver: s2_signals.NewResolver(cfg, log),
		logger:   log.WithField("module", "simulator"),
	}
}

// Run simulates candidates over the joined price calendar of market.
// Each day: settle pending orders, rebalance when due, manage open
// positions, then mark equity at close.
func (s *Simulator) Run(ctx context.Context, candidates []string, market *s0_data.MarketData) (*Simulation, error) {
	feeds := make([]*symbolFeed, 0, len(candidates))
	bySymbol := make(map[string]*symbolFeed, len(candidates))
	for _, symbol := range candidates {
		if _, dup := bySymbol[symbol]; dup {
			continue
		}
		d := market.Get(symbol)
		f := &symbolFeed{
			symbol:     symbol,
			series:     d.Prices,
			indicators: s2_signals.NewRollingIndicators(s.config.Risk),
			state:      s2_signals.NewSymbolState(symbol, d.Disclosures, d.Indicators),
		}
		feeds = append(feeds, f)
		bySymbol[symbol] = f
	}

	calendar := joinCalendar(feeds)
	broker := NewBroker(s.config.InitialCash, s.config.Commission, s.config.Slippage)
	period := s.config.RebalancePeriod.Days()

	sim := &Simulation{
		Trades:      []contracts.TradeRecord{},
		EquityCurve: make([]contracts.EquityPoint, 0, len(calendar)),
		FinalEquity: s.config.InitialCash,
	}

	lastClose := make(map[string]float64, len(feeds))
	var lastRebalance time.Time
	prevEquity := s.config.InitialCash
	logged := 0

	for i, day := range calendar {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulate %s: %w", day.Format("2006-01-02"), err)
		}

		today := make(map[string]contracts.PriceBar, len(feeds))
		for _, f := range feeds {
			bar, ok := f.advance(day)
			if !ok {
				continue
			}
			f.indicators.Push(bar)
			lastClose[f.symbol] = bar.Close
			today[f.symbol] = bar
		}

		// 0. 미체결 손절/익절 주문 정산
		for _, symbol := range broker.Held() {
			if bar, ok := today[symbol]; ok {
				broker.Settle(symbol, bar)
			}
		}

		// 1. 리밸런싱
		if i == 0 || contracts.DaysBetween(lastRebalance, day) >= period {
			s.rebalance(day, candidates, bySymbol, today, lastClose, broker)
			lastRebalance = day
			sim.RebalanceCount++
		}

		// 2. 포지션 관리
		for _, symbol := range broker.Held() {
			bar, ok := today[symbol]
			if !ok {
				continue
			}
			f := bySymbol[symbol]
			d := s.resolver.Resolve(f.state, day)
			if d.Action == contracts.ActionSell {
				broker.Sell(day, symbol, bar.Close, reasonOf(d))
				continue
			}
			broker.CancelOrders(symbol)
			stop, target := f.indicators.Bands(bar.Close)
			broker.PlaceBracket(symbol, stop, target)
			s.logBracket(day, symbol, f.indicators, stop, target)
		}

		// 3. 평가금액
		equity := broker.Equity(lastClose)
		ret := 0.0
		if prevEquity != 0 {
			ret = equity/prevEquity - 1
		}
		sim.EquityCurve = append(sim.EquityCurve, contracts.EquityPoint{Date: day, Equity: equity, Return: ret})
		prevEquity = equity

		logged = s.recordTrades(broker.Trades(), logged)
	}

	sim.Trades = append(sim.Trades, broker.Trades()...)
	sim.TradingDays = len(calendar)
	if n := len(sim.EquityCurve); n > 0 {
		sim.FinalEquity = sim.EquityCurve[n-1].Equity
	}

	s.logger.WithFields(map[string]interface{}{
		"trading_days": sim.TradingDays,
		"rebalances":   sim.RebalanceCount,
		"trades":       len(sim.Trades),
		"final_equity": sim.FinalEquity,
	}).Info("Simulation completed")

	return sim, nil
}

// rebalance closes every position at close and reopens the BUY candidates
// with an equal cash slot each
func (s *Simulator) rebalance(
	day time.Time,
	candidates []string,
	feeds map[string]*symbolFeed,
	today map[string]contracts.PriceBar,
	lastClose map[string]float64,
	broker *Broker,
) {
	for _, symbol := range broker.Held() {
		price, ok := lastClose[symbol]
		if bar, has := today[symbol]; has {
			price, ok = bar.Close, true
		}
		if !ok {
			continue
		}
		broker.Sell(day, symbol, price, ReasonRebalance)
	}

	slots := s.config.MaxPositions
	if len(candidates) < slots {
		slots = len(candidates)
	}
	if slots <= 0 {
		return
	}
	cashPerSlot := broker.Cash() / float64(slots)

	for _, symbol := range candidates[:slots] {
		bar, ok := today[symbol]
		if !ok || bar.Close <= 0 {
			continue
		}
		d := s.resolver.Resolve(feeds[symbol].state, day)
		if d.Action != contracts.ActionBuy {
			continue
		}
		size := int64(cashPerSlot / bar.Close)
		if size <= 0 {
			continue
		}
		broker.Buy(day, symbol, size, bar.Close, reasonOf(d))
	}
}

// logBracket records the bands with the trend averages behind them
func (s *Simulator) logBracket(day time.Time, symbol string, ind *s2_signals.RollingIndicators, stop, target float64) {
	s.logger.WithFields(map[string]interface{}{
		"date":     day.Format("2006-01-02"),
		"symbol":   symbol,
		"stop":     stop,
		"target":   target,
		"atr":      ind.ATR(),
		"sma_fast": ind.SMAFast(),
		"sma_slow": ind.SMASlow(),
	}).Debug("Bracket placed")
}

// recordTrades counts and logs the fills appended since the last call
func (s *Simulator) recordTrades(trades []contracts.TradeRecord, from int) int {
	for _, t := range trades[from:] {
		metrics.TradesTotal.WithLabelValues(string(t.Action)).Inc()
		s.logger.WithFields(map[string]interface{}{
			"date":   t.Date.Format("2006-01-02"),
			"symbol": t.Symbol,
			"action": t.Action,
			"size":   t.Size,
			"price":  t.Price,
			"reason": t.Reason,
		}).Debug("Trade filled")
	}
	return len(trades)
}

func reasonOf(d contracts.Decision) string {
	if d.Reason != "" {
		return d.Reason
	}
	return string(d.Action)
}

// joinCalendar returns the sorted union of every feed's bar dates
func joinCalendar(feeds []*symbolFeed) []time.Time {
	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0)
	for _, f := range feeds {
		for _, bar := range f.series {
			if !seen[bar.Date] {
				seen[bar.Date] = true
				days = append(days, bar.Date)
			}
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
