package selection

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/s0_data"
)

// estimatedShares is the fixed share count behind the market-cap proxy
const estimatedShares = 10_000_000

// eventTypeRows is how many recent filings the event_type criterion sums
const eventTypeRows = 30

// Scorer computes one screening score per symbol
// ⭐ SSOT: 스크리닝 점수 계산은 여기서만
type Scorer struct {
	criterion         contracts.SortCriterion
	momentumLookback  int
	sentimentLookback int
	sentimentWeight   float64
	useDisclosures    bool
	start             time.Time
	end               time.Time
}

// NewScorer creates a scorer for cfg's criterion and window
func NewScorer(cfg contracts.BacktestConfig) *Scorer {
	return &Scorer{
		criterion:         cfg.SortBy,
		momentumLookback:  cfg.MomentumLookback,
		sentimentLookback: cfg.SentimentLookbackDays,
		sentimentWeight:   cfg.DisclosureScoreWeight,
		useDisclosures:    cfg.UseDisclosures,
		start:             cfg.StartDate,
		end:               cfg.EndDate,
	}
}

// Criterion returns the scoring criterion
func (s *Scorer) Criterion() contracts.SortCriterion {
	return s.criterion
}

// Needs reports which data the criterion reads.
// Disclosure criteria read nothing when disclosures are off.
func (s *Scorer) Needs() (prices, disclosures bool) {
	switch {
	case s.criterion == contracts.SortMomentum, s.criterion == contracts.SortMarketCap:
		return true, false
	case s.criterion.UsesDisclosures():
		return false, s.useDisclosures
	default:
		return false, false
	}
}

// Score returns the symbol's score. A non-finite result is an error.
func (s *Scorer) Score(d *s0_data.SymbolData) (float64, error) {
	if s.criterion.UsesDisclosures() && !s.useDisclosures {
		// 공시 미사용 → 공시 기준 점수는 0
		return 0, nil
	}

	var score float64
	switch s.criterion {
	case contracts.SortMomentum:
		score = MomentumScore(d.Prices, s.momentumLookback)
	case contracts.SortMarketCap:
		score = MarketCapScore(d.Prices)
	case contracts.SortEventType:
		score = EventTypeScore(d.Disclosures)
	case contracts.SortDisclosure:
		score = DisclosureScore(d.Disclosures)
	case contracts.SortSentimentScore:
		score = SentimentScore(d.Disclosures, s.start, s.end, s.sentimentLookback, s.sentimentWeight)
	case contracts.SortFundamental:
		score = 0
	default:
		return 0, fmt.Errorf("criterion %q has no score", s.criterion)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%s score for %s is not finite", s.criterion, d.Symbol)
	}
	return score, nil
}

// MomentumScore is the percent change over the last lookback closes.
// Fewer than 2 bars, or a non-positive first close, scores 0.
func MomentumScore(series contracts.PriceSeries, lookback int) float64 {
	if lookback <= 0 {
		lookback = 20
	}
	closes := series.Closes()
	if len(closes) > lookback {
		closes = closes[len(closes)-lookback:]
	}
	if len(closes) < 2 || closes[0] <= 0 {
		return 0
	}
	first, last := closes[0], closes[len(closes)-1]
	return (last - first) / first * 100
}

// MarketCapScore is last close × estimatedShares
func MarketCapScore(series contracts.PriceSeries) float64 {
	last, ok := series.Last()
	if !ok {
		return 0
	}
	return last.Close * estimatedShares
}

// EventTypeScore sums the disclosure codes of the last 30 filings
func EventTypeScore(history contracts.DisclosureHistory) float64 {
	if len(history) > eventTypeRows {
		history = history[len(history)-eventTypeRows:]
	}
	return DisclosureScore(history)
}

// DisclosureScore sums every disclosure code
func DisclosureScore(history contracts.DisclosureHistory) float64 {
	var sum float64
	for _, ev := range history {
		sum += float64(ev.Code)
	}
	return sum
}

// SentimentScore averages filings over [max(start, end-lookback), end]:
// positive → +weight, negative → -weight, neutral → 0, with linear weights
// from 0.5 (oldest) to 1.0 (newest). The result is clipped to [-1, 1].
func SentimentScore(history contracts.DisclosureHistory, start, end time.Time, lookbackDays int, weight float64) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	from := start
	if lookbackDays > 0 {
		if ws := end.AddDate(0, 0, -lookbackDays); ws.After(from) {
			from = ws
		}
	}

	window := history.Between(from, end)
	n := len(window)
	if n == 0 {
		return 0
	}

	var weighted, total float64
	for i, ev := range window {
		w := 1.0
		if n > 1 {
			w = 0.5 + 0.5*float64(i)/float64(n-1)
		}
		var v float64
		switch ev.Code {
		case contracts.DisclosurePositive:
			v = weight
		case contracts.DisclosureNegative:
			v = -weight
		}
		weighted += v * w
		total += w
	}

	return math.Max(-1, math.Min(1, weighted/total))
}
