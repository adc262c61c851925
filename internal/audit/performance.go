package audit

import (
	"math"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// TradingDaysPerYear annualizes daily figures
const TradingDaysPerYear = 252

// Performance holds the run-level metrics derived from the equity curve and trade log
type Performance struct {
	// 수익률
	CumulativeReturn float64 `json:"cumulative_return"` // fraction
	TotalReturn      float64 `json:"total_return"`      // %
	AnnualizedReturn float64 `json:"annualized_return"` // %

	// 리스크 지표
	MaxDrawdown float64 `json:"mdd"` // %
	SharpeRatio float64 `json:"sharpe_ratio"`

	// 트레이딩 지표
	WinRate       float64 `json:"win_rate"` // %
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	BuyCount      int     `json:"buy_count"`
	SellCount     int     `json:"sell_count"`
	TotalProfit   float64 `json:"total_profit"`
	TotalLoss     float64 `json:"total_loss"` // 양수
}

// CalculatePerformance computes every metric of a finished run
// ⭐ SSOT: 성과 지표 계산은 여기서만
func CalculatePerformance(initialCash float64, curve []contracts.EquityPoint, trades []contracts.TradeRecord) Performance {
	var p Performance

	final := initialCash
	if n := len(curve); n > 0 {
		final = curve[n-1].Equity
	}
	if initialCash > 0 {
		p.CumulativeReturn = final/initialCash - 1
	}
	p.TotalReturn = p.CumulativeReturn * 100
	p.AnnualizedReturn = Annualize(p.CumulativeReturn, len(curve))
	p.MaxDrawdown = MaxDrawdown(curve)
	p.SharpeRatio = SharpeRatio(DailyReturns(curve))

	for _, t := range trades {
		switch t.Action {
		case contracts.ActionBuy:
			p.BuyCount++
		case contracts.ActionSell:
			p.SellCount++
			p.TotalTrades++
			switch {
			case t.PnL > 0:
				p.WinningTrades++
				p.TotalProfit += t.PnL
			case t.PnL < 0:
				p.LosingTrades++
				p.TotalLoss += -t.PnL
			}
		}
	}
	p.WinRate = WinRate(p.WinningTrades, p.TotalTrades)

	return p
}

// Annualize converts a cumulative return to an annual % over tradingDays
func Annualize(cumulative float64, tradingDays int) float64 {
	if tradingDays <= 0 {
		return 0
	}
	growth := 1 + cumulative
	if growth <= 0 {
		return -100
	}
	return (math.Pow(growth, float64(TradingDaysPerYear)/float64(tradingDays)) - 1) * 100
}

// MaxDrawdown returns the largest peak-to-trough decline of the curve in %
func MaxDrawdown(curve []contracts.EquityPoint) float64 {
	peak := 0.0
	mdd := 0.0
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - pt.Equity) / peak; dd > mdd {
			mdd = dd
		}
	}
	return mdd * 100
}

// DailyReturns extracts the day-over-day returns of the curve
func DailyReturns(curve []contracts.EquityPoint) []float64 {
	returns := make([]float64, len(curve))
	for i, pt := range curve {
		returns[i] = pt.Return
	}
	return returns
}

// SharpeRatio is mean / sample stdev of daily returns, annualized by √252.
// It is 0 with fewer than two returns or zero volatility.
func SharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	stdev := math.Sqrt(variance / float64(n-1))
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}

	return mean / stdev * math.Sqrt(TradingDaysPerYear)
}

// WinRate returns won / closed in %
func WinRate(won, closed int) float64 {
	if closed == 0 {
		return 0
	}
	return float64(won) / float64(closed) * 100
}
