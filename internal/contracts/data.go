package contracts

import "time"

// PriceBar is one daily OHLCV row
// ⭐ SSOT: S0 → 시뮬레이션 가격 데이터 전달
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a date-ascending sequence of bars for one symbol.
// An empty series is valid and means "no data in range".
type PriceSeries []PriceBar

// Empty reports whether the series has no bars
func (s PriceSeries) Empty() bool {
	return len(s) == 0
}

// Last returns the most recent bar
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close prices in order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}
	return closes
}

// IndicatorRecord is a numeric measurement attached to a disclosure
// (e.g. 희석률 for a 유상증자 filing)
type IndicatorRecord struct {
	Date          time.Time `json:"date"`
	ReportType    string    `json:"report_type"`
	IndicatorName string    `json:"indicator_name"`
	Score         *float64  `json:"score,omitempty"` // nil이면 조건 평가에서 제외
}

// HasScore reports whether the record carries a usable score
func (r IndicatorRecord) HasScore() bool {
	return r.Score != nil
}

// DateOf truncates t to a calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
