package audit

import (
	"sort"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// DefaultEventType labels disclosures whose report type strips to nothing
const DefaultEventType = "general"

// EventPerformance buckets trades by the event type active on the trade date:
// the latest disclosure of the symbol on or before that date.
// Trades of symbols without any such disclosure are left out.
func EventPerformance(trades []contracts.TradeRecord, histories map[string]contracts.DisclosureHistory) map[string]contracts.EventStats {
	stats := make(map[string]contracts.EventStats)

	for _, t := range trades {
		history := histories[t.Symbol]
		if len(history) == 0 {
			continue
		}
		ev, ok := history.LatestAsOf(t.Date)
		if !ok {
			continue
		}
		eventType := ev.EventType
		if eventType == "" {
			eventType = DefaultEventType
		}

		s := stats[eventType]
		s.Count++
		if t.Closed() {
			switch {
			case t.PnL > 0:
				s.WinCount++
				s.TotalProfit += t.PnL
			case t.PnL < 0:
				s.LossCount++
				s.TotalLoss += -t.PnL
			}
		}
		stats[eventType] = s
	}

	return stats
}

// SortedEventTypes returns the bucket keys in lexical order
func SortedEventTypes(stats map[string]contracts.EventStats) []string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
