package contracts

import (
	"sort"
	"strings"
	"time"
)

// DisclosureCode is the polarity of a disclosure's report type
type DisclosureCode int

const (
	DisclosurePositive DisclosureCode = 1
	DisclosureNegative DisclosureCode = 2
	DisclosureNeutral  DisclosureCode = 3
)

// String returns the lower-case polarity name
func (c DisclosureCode) String() string {
	switch c {
	case DisclosurePositive:
		return "positive"
	case DisclosureNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// DefaultCategory is assigned when the store has no category for a row
const DefaultCategory = "기타"

// ⭐ SSOT: report_type → disclosure_code 키워드 매핑은 여기서만
// 긍정 키워드를 먼저 검사한다
var (
	positiveKeywords = []string{
		"유상증자",
		"무상증자",
		"유무상증자",
		"자기주식 취득",
		"신탁계약 체결",
		"전환사채권 발행",
		"신주인수권부사채권 발행",
	}
	negativeKeywords = []string{
		"감자",
		"자기주식 처분",
	}
)

// ClassifyReportType maps a report type to its disclosure code
func ClassifyReportType(reportType string) DisclosureCode {
	if reportType == "" {
		return DisclosureNeutral
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(reportType, kw) {
			return DisclosurePositive
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(reportType, kw) {
			return DisclosureNegative
		}
	}
	return DisclosureNeutral
}

// EventTypeOf strips the decision suffixes from a report type and lower-cases it.
// "유상증자 결정" → "유상증자", "전환사채권 발행결정" → "전환사채권"
func EventTypeOf(reportType string) string {
	s := strings.ReplaceAll(reportType, " 결정", "")
	s = strings.ReplaceAll(s, " 발행결정", "")
	return strings.ToLower(s)
}

// DisclosureEvent is one DART filing with its derived fields
type DisclosureEvent struct {
	Date       time.Time      `json:"date"`
	Symbol     string         `json:"symbol"`
	CorpName   string         `json:"corp_name"`
	ReportType string         `json:"report_type"`
	Category   string         `json:"category"`
	ReceiptNo  string         `json:"receipt_no"`
	EventType  string         `json:"event_type"`
	Code       DisclosureCode `json:"disclosure_code"`
}

// NewDisclosureEvent builds an event and derives EventType, Code and the default category
func NewDisclosureEvent(date time.Time, symbol, corpName, reportType, category, receiptNo string) DisclosureEvent {
	if category == "" {
		category = DefaultCategory
	}
	return DisclosureEvent{
		Date:       DateOf(date),
		Symbol:     symbol,
		CorpName:   corpName,
		ReportType: reportType,
		Category:   category,
		ReceiptNo:  receiptNo,
		EventType:  EventTypeOf(reportType),
		Code:       ClassifyReportType(reportType),
	}
}

// DisclosureHistory is a date-ascending disclosure sequence for one symbol
type DisclosureHistory []DisclosureEvent

// lastIndexAsOf returns the index of the last event dated on or before asOf, or -1
func (h DisclosureHistory) lastIndexAsOf(asOf time.Time) int {
	day := DateOf(asOf)
	// 첫 번째로 asOf보다 늦은 이벤트 위치
	i := sort.Search(len(h), func(i int) bool {
		return h[i].Date.After(day)
	})
	return i - 1
}

// LatestAsOf returns the most recent event dated on or before asOf.
// Same-day duplicates resolve to the last one in store order.
func (h DisclosureHistory) LatestAsOf(asOf time.Time) (DisclosureEvent, bool) {
	i := h.lastIndexAsOf(asOf)
	if i < 0 {
		return DisclosureEvent{}, false
	}
	return h[i], true
}

// Between returns events dated in [from, to]
func (h DisclosureHistory) Between(from, to time.Time) DisclosureHistory {
	from, to = DateOf(from), DateOf(to)
	out := make(DisclosureHistory, 0, len(h))
	for _, ev := range h {
		if ev.Date.Before(from) || ev.Date.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
