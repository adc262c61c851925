package s0_data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// MemoryStore is an in-process contracts.MarketDataStore for fixtures and tests
type MemoryStore struct {
	mu          sync.RWMutex
	prices      map[string]contracts.PriceSeries
	disclosures map[string]contracts.DisclosureHistory
	indicators  map[string][]contracts.IndicatorRecord
	corpNames   map[string]string // symbol → corp_name
	failures    map[string]error  // query name → forced error
}

var _ contracts.MarketDataStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:      make(map[string]contracts.PriceSeries),
		disclosures: make(map[string]contracts.DisclosureHistory),
		indicators:  make(map[string][]contracts.IndicatorRecord),
		corpNames:   make(map[string]string),
		failures:    make(map[string]error),
	}
}

// AddPrices appends bars for symbol and keeps them date-sorted
func (m *MemoryStore) AddPrices(symbol string, bars ...contracts.PriceBar) {
	m.mu.Lock()
	defer m.mu.Unlock()

	series := append(m.prices[symbol], bars...)
	for i := range series {
		series[i].Date = contracts.DateOf(series[i].Date)
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	m.prices[symbol] = series
}

// AddDisclosures appends events for their symbols and keeps them date-sorted
func (m *MemoryStore) AddDisclosures(events ...contracts.DisclosureEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ev := range events {
		m.disclosures[ev.Symbol] = append(m.disclosures[ev.Symbol], ev)
		if ev.Symbol != "" && ev.CorpName != "" {
			m.corpNames[ev.Symbol] = ev.CorpName
		}
	}
	for symbol, h := range m.disclosures {
		sort.SliceStable(h, func(i, j int) bool { return h[i].Date.Before(h[j].Date) })
		m.disclosures[symbol] = h
	}
}

// AddIndicators appends indicator records for symbol
func (m *MemoryStore) AddIndicators(symbol string, records ...contracts.IndicatorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := append(m.indicators[symbol], records...)
	for i := range recs {
		recs[i].Date = contracts.DateOf(recs[i].Date)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		if recs[i].ReportType != recs[j].ReportType {
			return recs[i].ReportType < recs[j].ReportType
		}
		return recs[i].IndicatorName < recs[j].IndicatorName
	})
	m.indicators[symbol] = recs
}

// SetCorpName registers a company name for symbol
func (m *MemoryStore) SetCorpName(symbol, corpName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpNames[symbol] = corpName
}

// FailQuery makes every call of the named query ("prices", "disclosures",
// "indicators", "symbols", "corp_name") return err
func (m *MemoryStore) FailQuery(query string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[query] = err
}

func (m *MemoryStore) failure(query string) error {
	return m.failures[query]
}

func inRange(d, start, end time.Time) bool {
	return !d.Before(contracts.DateOf(start)) && !d.After(contracts.DateOf(end))
}

// ListSymbols returns every symbol with price data, sorted
func (m *MemoryStore) ListSymbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QuerySymbols); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(m.prices))
	for s := range m.prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ResolveCorpName returns the first symbol (sorted) registered under corpName
func (m *MemoryStore) ResolveCorpName(ctx context.Context, corpName string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QueryCorpName); err != nil {
		return "", false, err
	}

	matches := make([]string, 0, 1)
	for symbol, name := range m.corpNames {
		if name == corpName {
			matches = append(matches, symbol)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Strings(matches)
	return matches[0], true, nil
}

// LookupCorpName returns the company name for symbol, or ""
func (m *MemoryStore) LookupCorpName(ctx context.Context, symbol string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QueryCorpName); err != nil {
		return "", err
	}
	return m.corpNames[symbol], nil
}

// LoadPrices returns bars in [start, end]
func (m *MemoryStore) LoadPrices(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QueryPrices); err != nil {
		return nil, err
	}

	out := make(contracts.PriceSeries, 0)
	for _, b := range m.prices[symbol] {
		if inRange(b.Date, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// LoadDisclosures returns events matching q in [start, end].
// Without a symbol every symbol's filings are searched by company name.
func (m *MemoryStore) LoadDisclosures(ctx context.Context, q contracts.DisclosureQuery) (contracts.DisclosureHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QueryDisclosures); err != nil {
		return nil, err
	}

	var candidates contracts.DisclosureHistory
	switch {
	case q.Symbol != "":
		candidates = m.disclosures[q.Symbol]
	case q.CorpName != "":
		symbols := make([]string, 0, len(m.disclosures))
		for s := range m.disclosures {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			candidates = append(candidates, m.disclosures[s]...)
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Date.Before(candidates[j].Date) })
	default:
		return contracts.DisclosureHistory{}, nil
	}

	out := make(contracts.DisclosureHistory, 0)
	for _, ev := range candidates.Between(q.Start, q.End) {
		if q.CorpName != "" && ev.CorpName != q.CorpName {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// LoadIndicators returns records matching q
func (m *MemoryStore) LoadIndicators(ctx context.Context, q contracts.IndicatorQuery) ([]contracts.IndicatorRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(QueryIndicators); err != nil {
		return nil, err
	}
	if q.CorpName != "" && m.corpNames[q.Symbol] != "" && m.corpNames[q.Symbol] != q.CorpName {
		return []contracts.IndicatorRecord{}, nil
	}

	wanted := make(map[string]bool, len(q.ReportTypes))
	for _, rt := range q.ReportTypes {
		wanted[rt] = true
	}

	out := make([]contracts.IndicatorRecord, 0)
	for _, rec := range m.indicators[q.Symbol] {
		if !inRange(rec.Date, q.Start, q.End) {
			continue
		}
		if len(wanted) > 0 && !wanted[rec.ReportType] {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
