package s2_signals

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// evaluateRules resolves the event and category rules against the most
// recent filing on or before asOf. Same-day filings resolve to the last one
// in store order, the same row the polarity tier reads.
func evaluateRules(eventRules, categoryRules []contracts.SignalRule, history contracts.DisclosureHistory, asOf time.Time) (contracts.Decision, bool) {
	ev, ok := history.LatestAsOf(asOf)
	if !ok {
		return contracts.Decision{}, false
	}
	return evaluateRow(eventRules, categoryRules, ev, asOf)
}

// evaluateRow decides one filing: event rules first, then its category
func evaluateRow(eventRules, categoryRules []contracts.SignalRule, ev contracts.DisclosureEvent, asOf time.Time) (contracts.Decision, bool) {
	eventType := strings.ToLower(ev.EventType)
	reportType := strings.ToLower(ev.ReportType)

	for _, rule := range eventRules {
		name := strings.ToLower(rule.Name)
		if name == "" || !(strings.Contains(eventType, name) || strings.Contains(reportType, name)) {
			continue
		}
		if !rule.Ready(ev.Date, asOf) {
			continue
		}
		if !rule.Action.IsTrade() {
			// NEUTRAL 이벤트 → 카테고리로 대체
			break
		}
		return contracts.Decision{
			Action:     rule.Action,
			Tier:       contracts.TierEvent,
			Reason:     fmt.Sprintf("event signal: %s", rule.Name),
			ReportType: ev.ReportType,
		}, true
	}

	for _, rule := range categoryRules {
		if rule.Name != ev.Category {
			continue
		}
		if !rule.Ready(ev.Date, asOf) || !rule.Action.IsTrade() {
			return contracts.Decision{}, false
		}
		return contracts.Decision{
			Action:     rule.Action,
			Tier:       contracts.TierEvent,
			Reason:     fmt.Sprintf("category signal: %s", ev.Category),
			ReportType: ev.ReportType,
		}, true
	}
	return contracts.Decision{}, false
}

// evaluateDisclosure maps the latest filing's polarity to an action
func evaluateDisclosure(history contracts.DisclosureHistory, asOf time.Time) (contracts.Decision, bool) {
	ev, ok := history.LatestAsOf(asOf)
	if !ok {
		return contracts.Decision{}, false
	}
	switch ev.Code {
	case contracts.DisclosurePositive:
		return contracts.Decision{
			Action:     contracts.ActionBuy,
			Tier:       contracts.TierDisclosure,
			Reason:     fmt.Sprintf("disclosure positive: %s", ev.EventType),
			ReportType: ev.ReportType,
		}, true
	case contracts.DisclosureNegative:
		return contracts.Decision{
			Action:     contracts.ActionSell,
			Tier:       contracts.TierDisclosure,
			Reason:     fmt.Sprintf("disclosure negative: %s", ev.EventType),
			ReportType: ev.ReportType,
		}, true
	default:
		return contracts.Decision{}, false
	}
}
