package strategyconfig

import (
	"strings"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// ToBacktestConfig builds the immutable run config of the engine.
// Values left zero in the file keep contracts.DefaultBacktestConfig.
// ⭐ SSOT: 파일 설정 → contracts.BacktestConfig 변환은 여기서만
func ToBacktestConfig(cfg *Config) (contracts.BacktestConfig, error) {
	if err := Validate(cfg); err != nil {
		return contracts.BacktestConfig{}, err
	}

	out := contracts.DefaultBacktestConfig()
	out.StartDate, _ = parseDate(cfg.Period.Start, "period.start")
	out.EndDate, _ = parseDate(cfg.Period.End, "period.end")

	if cfg.Meta.Name != "" {
		out.Name = cfg.Meta.Name
	}

	// 자본
	if cfg.Capital.InitialCash > 0 {
		out.InitialCash = cfg.Capital.InitialCash
	}
	if cfg.Capital.Commission != nil {
		out.Commission = *cfg.Capital.Commission
	}
	if cfg.Capital.Slippage != nil {
		out.Slippage = *cfg.Capital.Slippage
	}

	// 포트폴리오
	if p := cfg.Portfolio.RebalancePeriod; p != "" {
		out.RebalancePeriod = contracts.RebalancePeriod(strings.ToLower(p))
	}
	if cfg.Portfolio.MaxPositions > 0 {
		out.MaxPositions = cfg.Portfolio.MaxPositions
	}
	if cfg.Portfolio.MaxPortfolioSize > 0 {
		out.MaxPortfolioSize = cfg.Portfolio.MaxPortfolioSize
	}

	// 유니버스
	out.TargetSymbols = trimAll(cfg.Universe.TargetSymbols)
	out.TargetCorpNames = trimAll(cfg.Universe.TargetCorpNames)

	// 스크리닝
	sc := cfg.Screening
	if sc.SortBy != "" {
		out.SortBy = contracts.SortCriterion(sc.SortBy)
	}
	out.SortAscending = sc.SortAscending
	if sc.Filter != nil {
		out.Filter = contracts.ScreenFilter{
			Type:    contracts.FilterType(sc.Filter.Type),
			Value:   sc.Filter.Value,
			Percent: sc.Filter.Percent,
		}
	}
	if sc.MomentumLookback > 0 {
		out.MomentumLookback = sc.MomentumLookback
	}
	if sc.SentimentLookbackDays != nil {
		out.SentimentLookbackDays = *sc.SentimentLookbackDays
	}
	if sc.DisclosureScoreWeight != nil {
		out.DisclosureScoreWeight = *sc.DisclosureScoreWeight
	}
	if sc.Concurrency > 0 {
		out.ScreeningConcurrency = sc.Concurrency
	}

	// 시그널
	if cfg.Signals.UseDisclosures != nil {
		out.UseDisclosures = *cfg.Signals.UseDisclosures
	}
	if cfg.Signals.CategorySignals != nil {
		out.CategorySignals = toRules(cfg.Signals.CategorySignals)
	}
	if cfg.Signals.EventSignals != nil {
		out.EventSignals = toRules(cfg.Signals.EventSignals)
	}
	out.IndicatorConditions = make([]contracts.IndicatorCondition, 0, len(cfg.Signals.IndicatorConditions))
	for _, c := range cfg.Signals.IndicatorConditions {
		action, _ := contracts.ParseAction(c.Action)
		out.IndicatorConditions = append(out.IndicatorConditions, contracts.IndicatorCondition{
			ReportType:    c.ReportType,
			IndicatorName: c.IndicatorName,
			Action:        action,
			DelayDays:     c.DelayDays,
			Test:          rangeTestOf(c),
		})
	}

	// 리스크
	r := cfg.Risk
	if r.ATRPeriod > 0 {
		out.Risk.ATRPeriod = r.ATRPeriod
	}
	if r.StopATRMultiple > 0 {
		out.Risk.StopATRMultiple = r.StopATRMultiple
	}
	if r.TakeProfitATRMultiple > 0 {
		out.Risk.TakeProfitATRMultiple = r.TakeProfitATRMultiple
	}
	if r.ATRFloor > 0 {
		out.Risk.ATRFloor = r.ATRFloor
	}
	if r.SMAFastPeriod > 0 {
		out.Risk.SMAFastPeriod = r.SMAFastPeriod
	}
	if r.SMASlowPeriod > 0 {
		out.Risk.SMASlowPeriod = r.SMASlowPeriod
	}

	return out, nil
}

func toRules(rules []Rule) []contracts.SignalRule {
	out := make([]contracts.SignalRule, 0, len(rules))
	for _, r := range rules {
		action, _ := contracts.ParseAction(r.Action)
		out = append(out, contracts.SignalRule{
			Name:      strings.TrimSpace(r.Name),
			Action:    action,
			DelayDays: r.DelayDays,
		})
	}
	return out
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
