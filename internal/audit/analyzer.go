package audit

import (
	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// Analyzer turns a finished simulation into the run result
// ⭐ SSOT: 결과 집계는 여기서만
type Analyzer struct {
	logger *logger.Logger
}

// RunOutput is what the execution loop hands over for analysis
type RunOutput struct {
	Symbols        []string
	Trades         []contracts.TradeRecord
	EquityCurve    []contracts.EquityPoint
	TradingDays    int
	RebalanceCount int
	Histories      map[string]contracts.DisclosureHistory
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{logger: logger.OrNop(log).WithField("module", "audit")}
}

// Analyze computes metrics, event buckets and the report
func (a *Analyzer) Analyze(cfg contracts.BacktestConfig, out RunOutput) *contracts.BacktestResult {
	result := contracts.EmptyResult(cfg)
	result.ConfigHash = cfg.Hash()
	result.Symbols = append([]string{}, out.Symbols...)
	result.TradingDays = out.TradingDays
	result.RebalanceCount = out.RebalanceCount
	if out.Trades != nil {
		result.Trades = out.Trades
	}
	if out.EquityCurve != nil {
		result.EquityCurve = out.EquityCurve
	}
	if n := len(result.EquityCurve); n > 0 {
		result.FinalEquity = result.EquityCurve[n-1].Equity
	}

	perf := CalculatePerformance(cfg.InitialCash, result.EquityCurve, result.Trades)
	result.CumulativeReturn = perf.CumulativeReturn
	result.TotalReturn = perf.TotalReturn
	result.AnnualizedReturn = perf.AnnualizedReturn
	result.MaxDrawdown = perf.MaxDrawdown
	result.SharpeRatio = perf.SharpeRatio
	result.WinRate = perf.WinRate
	result.TotalTrades = perf.TotalTrades
	result.WinningTrades = perf.WinningTrades
	result.LosingTrades = perf.LosingTrades
	result.BuyCount = perf.BuyCount
	result.SellCount = perf.SellCount
	result.TotalProfit = perf.TotalProfit
	result.TotalLoss = perf.TotalLoss

	result.EventPerformance = EventPerformance(result.Trades, out.Histories)
	result.Report = RenderReport(cfg, result)

	a.logger.WithFields(map[string]interface{}{
		"total_return": result.TotalReturn,
		"sharpe":       result.SharpeRatio,
		"max_drawdown": result.MaxDrawdown,
		"win_rate":     result.WinRate,
		"trades":       len(result.Trades),
	}).Info("Performance analysis completed")

	return result
}
