package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 데이터 저장소 인터페이스 정의는 여기서만

// DisclosureQuery selects filings by symbol, company name or both.
// Set fields are ANDed; a query with neither matches nothing.
type DisclosureQuery struct {
	Symbol   string
	CorpName string
	Start    time.Time
	End      time.Time
}

// Key returns the symbol, or the company name when no symbol is set
func (q DisclosureQuery) Key() string {
	if q.Symbol != "" {
		return q.Symbol
	}
	return q.CorpName
}

// IndicatorQuery selects indicator records for one symbol.
// CorpName and ReportTypes narrow the query when set.
type IndicatorQuery struct {
	Symbol      string
	CorpName    string
	Start       time.Time
	End         time.Time
	ReportTypes []string
}

// MarketDataStore is the read-only tabular store behind a run.
// Date ranges are inclusive on both ends and results are date ascending.
// A query with no rows returns an empty result and a nil error.
type MarketDataStore interface {
	ListSymbols(ctx context.Context) ([]string, error)
	ResolveCorpName(ctx context.Context, corpName string) (symbol string, ok bool, err error)
	LookupCorpName(ctx context.Context, symbol string) (string, error)

	LoadPrices(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error)
	LoadDisclosures(ctx context.Context, q DisclosureQuery) (DisclosureHistory, error)
	LoadIndicators(ctx context.Context, q IndicatorQuery) ([]IndicatorRecord, error)
}
