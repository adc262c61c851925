package s2_signals

import (
	"math"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// RollingIndicators keeps SMA fast/slow and ATR for one symbol,
// updated one bar at a time during the day loop.
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type RollingIndicators struct {
	params contracts.RiskParams

	closes    []float64 // 최근 max(fast, slow)개
	trs       []float64 // 최근 ATRPeriod개 true range
	prevClose float64
	bars      int
}

// NewRollingIndicators creates an empty indicator state
func NewRollingIndicators(params contracts.RiskParams) *RollingIndicators {
	return &RollingIndicators{params: params}
}

// Push adds the next bar. Bars must arrive in date order.
func (r *RollingIndicators) Push(bar contracts.PriceBar) {
	tr := bar.High - bar.Low
	if r.bars > 0 {
		tr = math.Max(tr, math.Max(math.Abs(bar.High-r.prevClose), math.Abs(bar.Low-r.prevClose)))
	}

	r.trs = appendWindow(r.trs, tr, r.params.ATRPeriod)
	r.closes = appendWindow(r.closes, bar.Close, maxInt(r.params.SMAFastPeriod, r.params.SMASlowPeriod))
	r.prevClose = bar.Close
	r.bars++
}

// Bars returns how many bars have been pushed
func (r *RollingIndicators) Bars() int {
	return r.bars
}

// ATR is the simple mean of the last ATRPeriod true ranges,
// or of all of them while fewer exist
func (r *RollingIndicators) ATR() float64 {
	return mean(r.trs)
}

// SMAFast returns the fast simple moving average of closes
func (r *RollingIndicators) SMAFast() float64 {
	return mean(tail(r.closes, r.params.SMAFastPeriod))
}

// SMASlow returns the slow simple moving average of closes
func (r *RollingIndicators) SMASlow() float64 {
	return mean(tail(r.closes, r.params.SMASlowPeriod))
}

// Bands returns the stop and take-profit prices around close.
// ATR is floored at ATRFloor so the bands never collapse onto close.
func (r *RollingIndicators) Bands(close float64) (stop, target float64) {
	atr := math.Max(r.ATR(), r.params.ATRFloor)
	return close - r.params.StopATRMultiple*atr, close + r.params.TakeProfitATRMultiple*atr
}

// SMA returns the mean of the last n values, or of all values when fewer exist
func SMA(values []float64, n int) float64 {
	return mean(tail(values, n))
}

// ATR computes the same value as RollingIndicators over a full series
func ATR(series contracts.PriceSeries, n int) float64 {
	r := NewRollingIndicators(contracts.RiskParams{ATRPeriod: n})
	for _, bar := range series {
		r.Push(bar)
	}
	return r.ATR()
}

func appendWindow(window []float64, v float64, size int) []float64 {
	window = append(window, v)
	if size > 0 && len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}

func tail(values []float64, n int) []float64 {
	if n > 0 && len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
