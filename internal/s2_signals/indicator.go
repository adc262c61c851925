package s2_signals

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

type indicatorKey struct {
	reportType string
	name       string
}

// IndicatorIndex groups a symbol's indicator records by
// (report_type, indicator_name), each group date ascending
type IndicatorIndex struct {
	groups map[indicatorKey][]contracts.IndicatorRecord
}

// NewIndicatorIndex builds an index. Input order within a date is kept.
func NewIndicatorIndex(records []contracts.IndicatorRecord) *IndicatorIndex {
	idx := &IndicatorIndex{groups: make(map[indicatorKey][]contracts.IndicatorRecord)}
	for _, rec := range records {
		rec.Date = contracts.DateOf(rec.Date)
		k := indicatorKey{reportType: rec.ReportType, name: rec.IndicatorName}
		idx.groups[k] = append(idx.groups[k], rec)
	}
	for k, group := range idx.groups {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
		idx.groups[k] = group
	}
	return idx
}

// Len returns the number of indexed records
func (idx *IndicatorIndex) Len() int {
	if idx == nil {
		return 0
	}
	n := 0
	for _, group := range idx.groups {
		n += len(group)
	}
	return n
}

// LatestAsOf returns the most recent record for (reportType, name) dated on or before asOf
func (idx *IndicatorIndex) LatestAsOf(reportType, name string, asOf time.Time) (contracts.IndicatorRecord, bool) {
	if idx == nil {
		return contracts.IndicatorRecord{}, false
	}
	group := idx.groups[indicatorKey{reportType: reportType, name: name}]
	day := contracts.DateOf(asOf)
	i := sort.Search(len(group), func(i int) bool { return group[i].Date.After(day) })
	if i == 0 {
		return contracts.IndicatorRecord{}, false
	}
	return group[i-1], true
}

// evaluateIndicators returns the first matching condition's decision.
// A matched NEUTRAL condition stops the scan without a decision.
func evaluateIndicators(conds []contracts.IndicatorCondition, idx *IndicatorIndex, asOf time.Time) (contracts.Decision, bool) {
	for _, cond := range conds {
		rec, ok := idx.LatestAsOf(cond.ReportType, cond.IndicatorName, asOf)
		if !ok || !rec.HasScore() {
			continue
		}
		if !cond.Test.Match(*rec.Score) {
			continue
		}
		if rec.Date.AddDate(0, 0, cond.DelayDays).After(contracts.DateOf(asOf)) {
			continue
		}

		if !cond.Action.IsTrade() {
			return contracts.Decision{}, false
		}
		score := *rec.Score
		return contracts.Decision{
			Action:         cond.Action,
			Tier:           contracts.TierIndicator,
			Reason:         fmt.Sprintf("indicator condition: %s (%s=%.4f)", cond.ReportType, cond.IndicatorName, score),
			ReportType:     cond.ReportType,
			IndicatorName:  cond.IndicatorName,
			IndicatorScore: &score,
		}, true
	}
	return contracts.Decision{}, false
}
