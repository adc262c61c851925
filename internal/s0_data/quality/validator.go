package quality

import (
	"math"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// QualityGate sanitizes price bars and scores per-symbol data coverage
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage  float64 `yaml:"min_price_coverage"`  // 0.90
	MinVolumeCoverage float64 `yaml:"min_volume_coverage"` // 0.90
}

// DefaultConfig returns the thresholds used by data-check
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:  0.90,
		MinVolumeCoverage: 0.90,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Issues counts what Sanitize changed
type Issues struct {
	Dropped    int `json:"dropped"`    // close <= 0 또는 NaN
	Duplicates int `json:"duplicates"` // 같은 날짜 중복 (마지막 행 유지)
	Repaired   int `json:"repaired"`   // high/low 범위 보정
}

// Any reports whether anything was changed
func (i Issues) Any() bool {
	return i.Dropped+i.Duplicates+i.Repaired > 0
}

// Sanitize drops unusable bars and repairs inconsistent high/low.
// Input must be date ascending; output keeps that order.
// ⭐ SSOT: S0 → 시뮬레이션 가격 정합성 보정은 여기서만
func Sanitize(series contracts.PriceSeries) (contracts.PriceSeries, Issues) {
	var issues Issues
	out := make(contracts.PriceSeries, 0, len(series))

	for _, bar := range series {
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
			issues.Dropped++
			continue
		}
		if bar.Open <= 0 || math.IsNaN(bar.Open) {
			bar.Open = bar.Close
			issues.Repaired++
		}

		hi := math.Max(bar.Open, bar.Close)
		lo := math.Min(bar.Open, bar.Close)
		if math.IsNaN(bar.High) || bar.High < hi {
			bar.High = hi
			issues.Repaired++
		}
		if math.IsNaN(bar.Low) || bar.Low <= 0 || bar.Low > lo {
			bar.Low = lo
			issues.Repaired++
		}
		if bar.Volume < 0 {
			bar.Volume = 0
		}

		if n := len(out); n > 0 && out[n-1].Date.Equal(bar.Date) {
			out[n-1] = bar
			issues.Duplicates++
			continue
		}
		out = append(out, bar)
	}

	return out, issues
}

// CoverageSnapshot is the data-check result for one symbol
type CoverageSnapshot struct {
	Symbol       string             `json:"symbol"`
	CorpName     string             `json:"corp_name,omitempty"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	PriceBars    int                `json:"price_bars"`
	FirstBar     time.Time          `json:"first_bar,omitempty"`
	LastBar      time.Time          `json:"last_bar,omitempty"`
	Disclosures  int                `json:"disclosures"`
	Positive     int                `json:"positive"`
	Negative     int                `json:"negative"`
	Indicators   int                `json:"indicators"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Issues       Issues             `json:"issues"`
}

// Check scores the loaded data of one symbol over [start, end]
func (g *QualityGate) Check(symbol string, start, end time.Time, prices contracts.PriceSeries, disclosures contracts.DisclosureHistory, indicators []contracts.IndicatorRecord) *CoverageSnapshot {
	clean, issues := Sanitize(prices)

	snapshot := &CoverageSnapshot{
		Symbol:      symbol,
		Start:       contracts.DateOf(start),
		End:         contracts.DateOf(end),
		PriceBars:   len(clean),
		Disclosures: len(disclosures),
		Indicators:  len(indicators),
		Coverage:    make(map[string]float64),
		Issues:      issues,
	}
	if len(clean) > 0 {
		snapshot.FirstBar = clean[0].Date
		snapshot.LastBar = clean[len(clean)-1].Date
	}
	for _, ev := range disclosures {
		switch ev.Code {
		case contracts.DisclosurePositive:
			snapshot.Positive++
		case contracts.DisclosureNegative:
			snapshot.Negative++
		}
		if snapshot.CorpName == "" {
			snapshot.CorpName = ev.CorpName
		}
	}

	snapshot.Coverage["price"] = priceCoverage(clean, start, end)
	snapshot.Coverage["volume"] = volumeCoverage(clean)
	snapshot.Coverage["disclosure"] = boolCoverage(len(disclosures) > 0)
	snapshot.Coverage["indicator"] = indicatorCoverage(indicators)

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage["price"] >= g.config.MinPriceCoverage &&
		snapshot.Coverage["volume"] >= g.config.MinVolumeCoverage

	return snapshot
}

// priceCoverage is bars over weekdays in range, capped at 1
func priceCoverage(series contracts.PriceSeries, start, end time.Time) float64 {
	expected := Weekdays(start, end)
	if expected == 0 {
		return 0
	}
	return math.Min(1, float64(len(series))/float64(expected))
}

// volumeCoverage is the share of bars with positive volume
func volumeCoverage(series contracts.PriceSeries) float64 {
	if len(series) == 0 {
		return 0
	}
	n := 0
	for _, bar := range series {
		if bar.Volume > 0 {
			n++
		}
	}
	return float64(n) / float64(len(series))
}

// indicatorCoverage is the share of indicator rows carrying a score
func indicatorCoverage(records []contracts.IndicatorRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, rec := range records {
		if rec.HasScore() {
			n++
		}
	}
	return float64(n) / float64(len(records))
}

func boolCoverage(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// Weekdays counts Monday..Friday dates in [start, end]
func Weekdays(start, end time.Time) int {
	start, end = contracts.DateOf(start), contracts.DateOf(end)
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := []struct {
		key    string
		weight float64
	}{
		{"price", 0.50},      // 가격 데이터 필수
		{"volume", 0.20},     // 거래량 데이터
		{"disclosure", 0.20}, // 공시
		{"indicator", 0.10},  // 지표 점수
	}

	score := 0.0
	for _, w := range weights {
		score += coverage[w.key] * w.weight
	}

	return score
}
