package strategyconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var (
	knownPeriods = map[string]bool{
		string(contracts.RebalanceDaily):     true,
		string(contracts.RebalanceWeekly):    true,
		string(contracts.RebalanceMonthly):   true,
		string(contracts.RebalanceQuarterly): true,
	}
	knownCriteria = map[string]bool{
		string(contracts.SortNone):           true,
		string(contracts.SortMomentum):       true,
		string(contracts.SortMarketCap):      true,
		string(contracts.SortEventType):      true,
		string(contracts.SortDisclosure):     true,
		string(contracts.SortSentimentScore): true,
		string(contracts.SortFundamental):    true,
	}
	knownFilters = map[string]bool{
		string(contracts.FilterValue):  true,
		string(contracts.FilterTop):    true,
		string(contracts.FilterBottom): true,
	}
)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Period ===
	start, err := parseDate(cfg.Period.Start, "period.start")
	if err != nil {
		return err
	}
	end, err := parseDate(cfg.Period.End, "period.end")
	if err != nil {
		return err
	}
	if end.Before(start) {
		return ValidationError{"period", "start must be on or before end"}
	}

	// === Capital ===
	if cfg.Capital.InitialCash < 0 {
		return ValidationError{"capital.initial_cash", "must not be negative"}
	}
	if err := validateRate(cfg.Capital.Commission, "capital.commission"); err != nil {
		return err
	}
	if err := validateRate(cfg.Capital.Slippage, "capital.slippage"); err != nil {
		return err
	}

	// === Portfolio ===
	if p := cfg.Portfolio.RebalancePeriod; p != "" && !knownPeriods[strings.ToLower(p)] {
		return ValidationError{"portfolio.rebalance_period", fmt.Sprintf("unknown period %q", p)}
	}
	if cfg.Portfolio.MaxPositions < 0 {
		return ValidationError{"portfolio.max_positions", "must not be negative"}
	}
	if cfg.Portfolio.MaxPortfolioSize < 0 {
		return ValidationError{"portfolio.max_portfolio_size", "must not be negative"}
	}

	// === Universe ===
	for i, s := range cfg.Universe.TargetSymbols {
		if strings.TrimSpace(s) == "" {
			return ValidationError{fmt.Sprintf("universe.target_symbols[%d]", i), "must not be blank"}
		}
	}
	for i, s := range cfg.Universe.TargetCorpNames {
		if strings.TrimSpace(s) == "" {
			return ValidationError{fmt.Sprintf("universe.target_corp_names[%d]", i), "must not be blank"}
		}
	}

	// === Screening ===
	sc := cfg.Screening
	if sc.SortBy != "" && !knownCriteria[sc.SortBy] {
		return ValidationError{"screening.sort_by", fmt.Sprintf("unknown criterion %q", sc.SortBy)}
	}
	if f := sc.Filter; f != nil {
		if !knownFilters[f.Type] {
			return ValidationError{"screening.filter.type", fmt.Sprintf("must be value, top or bottom, got %q", f.Type)}
		}
		if f.Type != string(contracts.FilterValue) && (f.Percent < 0 || f.Percent > 100) {
			return ValidationError{"screening.filter.percent", "must be in range [0, 100]"}
		}
	}
	if sc.MomentumLookback < 0 {
		return ValidationError{"screening.momentum_lookback", "must be >= 0"}
	}
	if sc.SentimentLookbackDays != nil && *sc.SentimentLookbackDays < 0 {
		return ValidationError{"screening.sentiment_lookback_days", "must be >= 0"}
	}
	if sc.Concurrency < 0 {
		return ValidationError{"screening.concurrency", "must be >= 0"}
	}

	// === Signals ===
	if err := validateRules(cfg.Signals.CategorySignals, "signals.category_signals"); err != nil {
		return err
	}
	if err := validateRules(cfg.Signals.EventSignals, "signals.event_signals"); err != nil {
		return err
	}
	for i, c := range cfg.Signals.IndicatorConditions {
		field := fmt.Sprintf("signals.indicator_conditions[%d]", i)
		if c.ReportType == "" {
			return ValidationError{field + ".report_type", "required"}
		}
		if c.IndicatorName == "" {
			return ValidationError{field + ".indicator_name", "required"}
		}
		if _, err := contracts.ParseAction(c.Action); err != nil {
			return ValidationError{field + ".action", err.Error()}
		}
		if c.DelayDays < 0 {
			return ValidationError{field + ".delay_days", "must be >= 0"}
		}
		if err := rangeTestOf(c).Validate(); err != nil {
			return ValidationError{field + ".operator", err.Error()}
		}
	}

	// === Risk ===
	r := cfg.Risk
	if r.ATRPeriod < 0 || r.SMAFastPeriod < 0 || r.SMASlowPeriod < 0 {
		return ValidationError{"risk", "periods must be >= 0"}
	}
	if r.StopATRMultiple < 0 || r.TakeProfitATRMultiple < 0 || r.ATRFloor < 0 {
		return ValidationError{"risk", "multiples and atr_floor must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if len(cfg.Universe.TargetSymbols) > 0 && len(cfg.Universe.TargetCorpNames) > 0 {
		warnings = append(warnings, Warning{
			Code:    "TARGETS_SHADOWED",
			Message: "target_symbols가 있으면 target_corp_names는 무시됨",
		})
	}

	if p := cfg.Portfolio; p.MaxPositions > 0 && p.MaxPortfolioSize > 0 && p.MaxPositions > p.MaxPortfolioSize {
		warnings = append(warnings, Warning{
			Code:    "POSITIONS_EXCEED_PORTFOLIO",
			Message: "max_positions > max_portfolio_size: 슬롯 일부는 항상 비어 있음",
		})
	}

	if c := cfg.Capital.Commission; c != nil && *c > 0.01 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_COMMISSION",
			Message: "수수료 > 1%: 단위 확인 필요 (0.0005 = 0.05%)",
		})
	}

	if u := cfg.Signals.UseDisclosures; u != nil && !*u && len(cfg.Signals.IndicatorConditions) > 0 {
		warnings = append(warnings, Warning{
			Code:    "SIGNALS_DISABLED",
			Message: "use_disclosures=false: 모든 신호 규칙이 무시됨",
		})
	}

	return warnings
}

// === Helper Functions ===

func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ValidationError{field, "required"}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ValidationError{field, "must be YYYY-MM-DD format"}
	}
	return t, nil
}

// validateRate는 비율 값이 0~1 범위인지 검증
func validateRate(rate *float64, field string) error {
	if rate != nil && (*rate < 0 || *rate >= 1) {
		return ValidationError{field, "must be in range [0, 1)"}
	}
	return nil
}

func validateRules(rules []Rule, field string) error {
	for i, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			return ValidationError{fmt.Sprintf("%s[%d].name", field, i), "required"}
		}
		if _, err := contracts.ParseAction(r.Action); err != nil {
			return ValidationError{fmt.Sprintf("%s[%d].action", field, i), err.Error()}
		}
		if r.DelayDays < 0 {
			return ValidationError{fmt.Sprintf("%s[%d].delay_days", field, i), "must be >= 0"}
		}
	}
	return nil
}

func rangeTestOf(c Condition) contracts.RangeTest {
	return contracts.RangeTest{
		Op:  contracts.RangeOp(strings.ToLower(strings.TrimSpace(c.Operator))),
		Min: c.Min,
		Max: c.Max,
	}
}
