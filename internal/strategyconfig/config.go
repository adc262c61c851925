package strategyconfig

import "time"

// DateLayout is the date format of period.start / period.end
const DateLayout = "2006-01-02"

// Config는 백테스트 실행 설정 파일의 전체 구조
// 생략된 값은 contracts.DefaultBacktestConfig 기본값을 따른다
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Period    Period    `yaml:"period" json:"period"`
	Capital   Capital   `yaml:"capital" json:"capital"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Screening Screening `yaml:"screening" json:"screening"`
	Signals   Signals   `yaml:"signals" json:"signals"`
	Risk      Risk      `yaml:"risk" json:"risk"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Period 백테스트 기간 (YYYY-MM-DD, 양끝 포함)
type Period struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Capital 자본 및 거래비용
type Capital struct {
	InitialCash float64  `yaml:"initial_cash" json:"initial_cash"`
	Commission  *float64 `yaml:"commission" json:"commission"` // 0.0005 = 0.05%
	Slippage    *float64 `yaml:"slippage" json:"slippage"`
}

// Portfolio 리밸런싱 및 보유 제한
type Portfolio struct {
	RebalancePeriod  string `yaml:"rebalance_period" json:"rebalance_period"` // daily / weekly / monthly / quarterly
	MaxPositions     int    `yaml:"max_positions" json:"max_positions"`
	MaxPortfolioSize int    `yaml:"max_portfolio_size" json:"max_portfolio_size"`
}

// Universe S1: 대상 종목 (둘 다 비면 전체)
type Universe struct {
	TargetSymbols   []string `yaml:"target_symbols" json:"target_symbols"`
	TargetCorpNames []string `yaml:"target_corp_names" json:"target_corp_names"`
}

// Screening 스크리닝 기준
type Screening struct {
	SortBy                string   `yaml:"sort_by" json:"sort_by"`
	SortAscending         bool     `yaml:"sort_ascending" json:"sort_ascending"`
	Filter                *Filter  `yaml:"filter" json:"filter"`
	MomentumLookback      int      `yaml:"momentum_lookback" json:"momentum_lookback"`
	SentimentLookbackDays *int     `yaml:"sentiment_lookback_days" json:"sentiment_lookback_days"`
	DisclosureScoreWeight *float64 `yaml:"disclosure_score_weight" json:"disclosure_score_weight"`
	Concurrency           int      `yaml:"concurrency" json:"concurrency"`
}

// Filter 점수 컷 (value / top / bottom)
type Filter struct {
	Type    string  `yaml:"type" json:"type"`
	Value   float64 `yaml:"value" json:"value"`
	Percent float64 `yaml:"percent" json:"percent"`
}

// Signals S2: 공시 기반 매매 신호 규칙
type Signals struct {
	UseDisclosures      *bool       `yaml:"use_disclosures" json:"use_disclosures"`
	CategorySignals     []Rule      `yaml:"category_signals" json:"category_signals"` // nil이면 기본 테이블
	EventSignals        []Rule      `yaml:"event_signals" json:"event_signals"`
	IndicatorConditions []Condition `yaml:"indicator_conditions" json:"indicator_conditions"`
}

// Rule 카테고리명 / 이벤트명 → 액션
type Rule struct {
	Name      string `yaml:"name" json:"name"`
	Action    string `yaml:"action" json:"action"`
	DelayDays int    `yaml:"delay_days" json:"delay_days"`
}

// Condition 공시 지표 조건
type Condition struct {
	ReportType    string   `yaml:"report_type" json:"report_type"`
	IndicatorName string   `yaml:"indicator_name" json:"indicator_name"`
	Operator      string   `yaml:"operator" json:"operator"`
	Min           *float64 `yaml:"min" json:"min"`
	Max           *float64 `yaml:"max" json:"max"`
	Action        string   `yaml:"action" json:"action"`
	DelayDays     int      `yaml:"delay_days" json:"delay_days"`
}

// Risk ATR 손절/익절 및 이동평균
type Risk struct {
	ATRPeriod             int     `yaml:"atr_period" json:"atr_period"`
	StopATRMultiple       float64 `yaml:"stop_atr_multiple" json:"stop_atr_multiple"`
	TakeProfitATRMultiple float64 `yaml:"take_profit_atr_multiple" json:"take_profit_atr_multiple"`
	ATRFloor              float64 `yaml:"atr_floor" json:"atr_floor"`
	SMAFastPeriod         int     `yaml:"sma_fast_period" json:"sma_fast_period"`
	SMASlowPeriod         int     `yaml:"sma_slow_period" json:"sma_slow_period"`
}

// RunSnapshot 실행 설정 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"` // 실행 설정 해시 (결과와 동일)
	FileHash   string    `json:"file_hash"`   // 파일 구조체 SHA256
	ConfigRaw  string    `json:"config_raw"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}
