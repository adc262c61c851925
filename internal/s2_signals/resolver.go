package s2_signals

import (
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// SymbolState is the signal input of one symbol for a run
type SymbolState struct {
	Symbol      string
	Disclosures contracts.DisclosureHistory
	Indicators  *IndicatorIndex
}

// NewSymbolState builds the state from loaded rows
func NewSymbolState(symbol string, disclosures contracts.DisclosureHistory, indicators []contracts.IndicatorRecord) *SymbolState {
	return &SymbolState{
		Symbol:      symbol,
		Disclosures: disclosures,
		Indicators:  NewIndicatorIndex(indicators),
	}
}

// Resolver turns a symbol's disclosures and indicators into a trading decision.
// Tiers run in order (indicator → event/category → disclosure polarity)
// and the first one yielding BUY or SELL wins.
// ⭐ SSOT: 시그널 판정은 여기서만
type Resolver struct {
	useDisclosures bool
	conditions     []contracts.IndicatorCondition
	eventRules     []contracts.SignalRule
	categoryRules  []contracts.SignalRule
	logger         *logger.Logger
}

// NewResolver creates a resolver over cfg's rule tables
func NewResolver(cfg contracts.BacktestConfig, log *logger.Logger) *Resolver {
	return &Resolver{
		useDisclosures: cfg.UseDisclosures,
		conditions:     cfg.IndicatorConditions,
		eventRules:     cfg.EventSignals,
		categoryRules:  cfg.CategorySignals,
		logger:         logger.OrNop(log).WithField("module", "s2_resolver"),
	}
}

// Resolve returns the decision for state as of asOf
func (r *Resolver) Resolve(state *SymbolState, asOf time.Time) contracts.Decision {
	d := r.resolve(state, asOf)
	if d.Action.IsTrade() {
		metrics.SignalDecisionsTotal.WithLabelValues(d.Tier.String(), string(d.Action)).Inc()
		r.logger.WithFields(map[string]interface{}{
			"symbol": state.Symbol,
			"date":   asOf.Format("2006-01-02"),
			"action": d.Action,
			"tier":   d.Tier.String(),
			"reason": d.Reason,
		}).Debug("Signal resolved")
	}
	return d
}

func (r *Resolver) resolve(state *SymbolState, asOf time.Time) contracts.Decision {
	if !r.useDisclosures || state == nil {
		return contracts.Neutral()
	}

	// 1. 지표 조건
	if len(r.conditions) > 0 {
		if d, ok := evaluateIndicators(r.conditions, state.Indicators, asOf); ok {
			return d
		}
	}

	// 2. 이벤트 / 카테고리 규칙
	if (len(r.eventRules) > 0 || len(r.categoryRules) > 0) && len(state.Disclosures) > 0 {
		if d, ok := evaluateRules(r.eventRules, r.categoryRules, state.Disclosures, asOf); ok {
			return d
		}
	}

	// 3. 공시 극성
	if d, ok := evaluateDisclosure(state.Disclosures, asOf); ok {
		return d
	}

	return contracts.Neutral()
}
