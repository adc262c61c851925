package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// RebalancePeriod is the rebalancing cadence name
type RebalancePeriod string

const (
	RebalanceDaily     RebalancePeriod = "daily"
	RebalanceWeekly    RebalancePeriod = "weekly"
	RebalanceMonthly   RebalancePeriod = "monthly"
	RebalanceQuarterly RebalancePeriod = "quarterly"
)

// Days returns the calendar-day count for the cadence.
// Unknown names fall back to monthly (30).
func (p RebalancePeriod) Days() int {
	switch RebalancePeriod(strings.ToLower(string(p))) {
	case RebalanceDaily:
		return 1
	case RebalanceWeekly:
		return 7
	case RebalanceMonthly:
		return 30
	case RebalanceQuarterly:
		return 90
	default:
		return 30
	}
}

// SortCriterion is the screening score used to rank the universe
type SortCriterion string

const (
	SortNone           SortCriterion = "none"
	SortMomentum       SortCriterion = "momentum"
	SortMarketCap      SortCriterion = "market_cap"
	SortEventType      SortCriterion = "event_type"
	SortDisclosure     SortCriterion = "disclosure"
	SortSentimentScore SortCriterion = "sentiment_score"
	SortFundamental    SortCriterion = "fundamental"
)

// Scored reports whether the criterion triggers scoring at all
func (c SortCriterion) Scored() bool {
	switch c {
	case SortMomentum, SortMarketCap, SortEventType, SortDisclosure, SortSentimentScore, SortFundamental:
		return true
	default:
		return false
	}
}

// UsesDisclosures reports whether the criterion scores disclosure rows
func (c SortCriterion) UsesDisclosures() bool {
	switch c {
	case SortEventType, SortDisclosure, SortSentimentScore:
		return true
	default:
		return false
	}
}

// FilterType selects the screening cutoff
type FilterType string

const (
	FilterNone   FilterType = ""
	FilterValue  FilterType = "value"
	FilterTop    FilterType = "top"
	FilterBottom FilterType = "bottom"
)

// ScreenFilter is the optional value or percentile cutoff
type ScreenFilter struct {
	Type    FilterType `json:"type"`
	Value   float64    `json:"value"`
	Percent float64    `json:"percent"`
}

// RiskParams controls the rolling indicators and ATR bands
type RiskParams struct {
	ATRPeriod             int     `json:"atr_period"`
	StopATRMultiple       float64 `json:"stop_atr_multiple"`
	TakeProfitATRMultiple float64 `json:"take_profit_atr_multiple"`
	ATRFloor              float64 `json:"atr_floor"`
	SMAFastPeriod         int     `json:"sma_fast_period"`
	SMASlowPeriod         int     `json:"sma_slow_period"`
}

// BacktestConfig is the immutable input of one run
// ⭐ SSOT: 엔진은 이 값만 참고한다 (환경변수 직접 참조 금지)
type BacktestConfig struct {
	Name string `json:"name"`

	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	InitialCash float64   `json:"initial_cash"`
	Commission  float64   `json:"commission"`
	Slippage    float64   `json:"slippage"`

	RebalancePeriod  RebalancePeriod `json:"rebalance_period"`
	MaxPositions     int             `json:"max_positions"`
	MaxPortfolioSize int             `json:"max_portfolio_size"`

	// 스크리닝
	SortBy        SortCriterion `json:"sort_by"`
	SortAscending bool          `json:"sort_ascending"`
	Filter        ScreenFilter  `json:"filter"`

	// 유니버스 (지정 시 전체 스캔 대체)
	TargetSymbols   []string `json:"target_symbols,omitempty"`
	TargetCorpNames []string `json:"target_corp_names,omitempty"`

	// 시그널
	UseDisclosures      bool                 `json:"use_disclosures"`
	CategorySignals     []SignalRule         `json:"category_signals"`
	EventSignals        []SignalRule         `json:"event_signals"`
	IndicatorConditions []IndicatorCondition `json:"indicator_conditions"`

	SentimentLookbackDays int     `json:"sentiment_lookback_days"`
	DisclosureScoreWeight float64 `json:"disclosure_score_weight"`
	MomentumLookback      int     `json:"momentum_lookback"`
	ScreeningConcurrency  int     `json:"screening_concurrency"`

	Risk RiskParams `json:"risk"`
}

// IndicatorReportTypes returns the distinct report types the conditions reference, in order
func (c BacktestConfig) IndicatorReportTypes() []string {
	seen := make(map[string]bool, len(c.IndicatorConditions))
	out := make([]string, 0, len(c.IndicatorConditions))
	for _, cond := range c.IndicatorConditions {
		if cond.ReportType == "" || seen[cond.ReportType] {
			continue
		}
		seen[cond.ReportType] = true
		out = append(out, cond.ReportType)
	}
	return out
}

// Hash returns a stable short digest of the config, used to tell runs apart
func (c BacktestConfig) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// DefaultRiskParams returns ATR14 with 2x/3x bands and SMA10/30
func DefaultRiskParams() RiskParams {
	return RiskParams{
		ATRPeriod:             14,
		StopATRMultiple:       2,
		TakeProfitATRMultiple: 3,
		ATRFloor:              0.1,
		SMAFastPeriod:         10,
		SMASlowPeriod:         30,
	}
}

// DefaultCategorySignals returns the stock category → action table
func DefaultCategorySignals() []SignalRule {
	return []SignalRule{
		{Name: "증자감자", Action: ActionBuy},
		{Name: "자기주식", Action: ActionBuy},
		{Name: "사채발행", Action: ActionBuy},
		{Name: "영업양수도", Action: ActionBuy},
		{Name: "자산양수도", Action: ActionNeutral},
		{Name: "타법인주식", Action: ActionNeutral},
		{Name: "사채권양수도", Action: ActionNeutral},
		{Name: "합병분할", Action: ActionNeutral},
		{Name: "해외상장", Action: ActionNeutral},
		{Name: "기업상태", Action: ActionSell},
		{Name: "채권은행", Action: ActionSell},
		{Name: "소송", Action: ActionSell},
	}
}

// DefaultEventSignals returns the event rules that override categories
func DefaultEventSignals() []SignalRule {
	return []SignalRule{
		{Name: "감자", Action: ActionSell},
		{Name: "영업양도", Action: ActionSell},
		{Name: "자기주식 처분", Action: ActionSell},
	}
}

// DefaultBacktestConfig returns the stock run defaults.
// Dates are left zero and must be set by the caller.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Name:                  "disclosure-portfolio",
		InitialCash:           100_000_000,
		Commission:            0.0005,
		Slippage:              0.001,
		RebalancePeriod:       RebalanceMonthly,
		MaxPositions:          10,
		MaxPortfolioSize:      20,
		SortBy:                SortDisclosure,
		UseDisclosures:        true,
		CategorySignals:       DefaultCategorySignals(),
		EventSignals:          DefaultEventSignals(),
		SentimentLookbackDays: 30,
		DisclosureScoreWeight: 1.0,
		MomentumLookback:      20,
		ScreeningConcurrency:  20,
		Risk:                  DefaultRiskParams(),
	}
}
