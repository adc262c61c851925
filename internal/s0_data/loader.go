package s0_data

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/internal/s0_data/quality"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// Query names used by metrics labels and MemoryStore.FailQuery
const (
	QuerySymbols     = "symbols"
	QueryCorpName    = "corp_name"
	QueryPrices      = "prices"
	QueryDisclosures = "disclosures"
	QueryIndicators  = "indicators"
)

// LoaderConfig bounds the load fan-out
type LoaderConfig struct {
	Concurrency      int     // 동시 종목 로드 수 (0 → 20)
	QueriesPerSecond float64 // 0 = 제한 없음
}

// Loader wraps a store with throttling, metrics and the degrade policy.
// ⭐ SSOT: 데이터 오류 → 빈 결과 + 경고 로그 변환은 여기서만
type Loader struct {
	store       contracts.MarketDataStore
	limiter     *rate.Limiter
	concurrency int
	logger      *logger.Logger
}

// NewLoader creates a loader over store
func NewLoader(store contracts.MarketDataStore, cfg LoaderConfig, log *logger.Logger) *Loader {
	l := &Loader{
		store:       store,
		concurrency: cfg.Concurrency,
		logger:      logger.OrNop(log).WithField("module", "s0_loader"),
	}
	if l.concurrency <= 0 {
		l.concurrency = 20
	}
	if cfg.QueriesPerSecond > 0 {
		burst := int(cfg.QueriesPerSecond)
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), burst)
	}
	return l
}

// Concurrency returns the fan-out bound
func (l *Loader) Concurrency() int {
	return l.concurrency
}

// degrade runs one store call and turns any failure into empty plus a warning
func degrade[T any](ctx context.Context, l *Loader, query, symbol string, empty T, call func() (T, error)) T {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			l.warn(query, symbol, err)
			return empty
		}
	}

	started := time.Now()
	value, err := call()
	metrics.ObserveQuery(query, started)
	if err != nil {
		l.warn(query, symbol, err)
		return empty
	}
	return value
}

func (l *Loader) warn(query, symbol string, err error) {
	metrics.StoreQueryErrorsTotal.WithLabelValues(query).Inc()
	l.logger.WithFields(map[string]interface{}{
		"query":  query,
		"symbol": symbol,
		"error":  err.Error(),
	}).Warn("Data query failed, using empty result")
}

// ListSymbols returns every symbol in the store, or none on failure
func (l *Loader) ListSymbols(ctx context.Context) []string {
	return degrade(ctx, l, QuerySymbols, "", []string{}, func() ([]string, error) {
		return l.store.ListSymbols(ctx)
	})
}

// ResolveCorpName maps an exact company name to a symbol
func (l *Loader) ResolveCorpName(ctx context.Context, corpName string) (string, bool) {
	type resolved struct {
		symbol string
		ok     bool
	}
	res := degrade(ctx, l, QueryCorpName, corpName, resolved{}, func() (resolved, error) {
		symbol, ok, err := l.store.ResolveCorpName(ctx, corpName)
		return resolved{symbol: symbol, ok: ok}, err
	})
	return res.symbol, res.ok
}

// LookupCorpName returns the company name filed under symbol, or ""
func (l *Loader) LookupCorpName(ctx context.Context, symbol string) string {
	return degrade(ctx, l, QueryCorpName, symbol, "", func() (string, error) {
		return l.store.LookupCorpName(ctx, symbol)
	})
}

// Prices returns sanitized bars in [start, end]
func (l *Loader) Prices(ctx context.Context, symbol string, start, end time.Time) contracts.PriceSeries {
	series := degrade(ctx, l, QueryPrices, symbol, contracts.PriceSeries{}, func() (contracts.PriceSeries, error) {
		return l.store.LoadPrices(ctx, symbol, start, end)
	})

	clean, issues := quality.Sanitize(series)
	if issues.Any() {
		l.logger.WithFields(map[string]interface{}{
			"symbol":     symbol,
			"dropped":    issues.Dropped,
			"duplicates": issues.Duplicates,
			"repaired":   issues.Repaired,
		}).Debug("Price bars sanitized")
	}
	return clean
}

// Disclosures returns filings matching q
func (l *Loader) Disclosures(ctx context.Context, q contracts.DisclosureQuery) contracts.DisclosureHistory {
	return degrade(ctx, l, QueryDisclosures, q.Key(), contracts.DisclosureHistory{}, func() (contracts.DisclosureHistory, error) {
		return l.store.LoadDisclosures(ctx, q)
	})
}

// Indicators returns indicator rows matching q
func (l *Loader) Indicators(ctx context.Context, q contracts.IndicatorQuery) []contracts.IndicatorRecord {
	return degrade(ctx, l, QueryIndicators, q.Symbol, []contracts.IndicatorRecord{}, func() ([]contracts.IndicatorRecord, error) {
		return l.store.LoadIndicators(ctx, q)
	})
}

// LoadRequest selects what LoadAll fetches per symbol
type LoadRequest struct {
	Start          time.Time
	End            time.Time
	WithPrices     bool
	WithDisclosure bool
	ReportTypes    []string // 비어 있으면 지표 로드 생략
}

// SymbolData is everything loaded for one symbol
type SymbolData struct {
	Symbol      string
	CorpName    string
	Prices      contracts.PriceSeries
	Disclosures contracts.DisclosureHistory
	Indicators  []contracts.IndicatorRecord
}

// MarketData is the per-run bundle keyed by symbol.
// Symbols keeps the request order.
type MarketData struct {
	Symbols []string
	Data    map[string]*SymbolData
}

// Get returns the data for symbol, or an empty value
func (m *MarketData) Get(symbol string) *SymbolData {
	if d, ok := m.Data[symbol]; ok {
		return d
	}
	return &SymbolData{Symbol: symbol}
}

// WithPrices returns the symbols that have at least one bar, in order
func (m *MarketData) WithPrices() []string {
	out := make([]string, 0, len(m.Symbols))
	for _, s := range m.Symbols {
		if d, ok := m.Data[s]; ok && !d.Prices.Empty() {
			out = append(out, s)
		}
	}
	return out
}

// LoadAll fetches symbols concurrently. Per-query failures degrade to empty;
// only context cancellation is returned.
func (l *Loader) LoadAll(ctx context.Context, symbols []string, req LoadRequest) (*MarketData, error) {
	results := make([]*SymbolData, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.loadOne(gctx, symbol, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	md := &MarketData{
		Symbols: make([]string, 0, len(symbols)),
		Data:    make(map[string]*SymbolData, len(symbols)),
	}
	for i, symbol := range symbols {
		if _, dup := md.Data[symbol]; dup {
			continue
		}
		md.Symbols = append(md.Symbols, symbol)
		md.Data[symbol] = results[i]
	}

	l.logger.WithFields(map[string]interface{}{
		"symbols":     len(md.Symbols),
		"with_prices": len(md.WithPrices()),
	}).Debug("Market data loaded")

	return md, nil
}

func (l *Loader) loadOne(ctx context.Context, symbol string, req LoadRequest) *SymbolData {
	d := &SymbolData{
		Symbol:      symbol,
		Prices:      contracts.PriceSeries{},
		Disclosures: contracts.DisclosureHistory{},
		Indicators:  []contracts.IndicatorRecord{},
	}
	if req.WithPrices {
		d.Prices = l.Prices(ctx, symbol, req.Start, req.End)
	}
	if req.WithDisclosure {
		d.Disclosures = l.Disclosures(ctx, contracts.DisclosureQuery{Symbol: symbol, Start: req.Start, End: req.End})
	}
	if len(req.ReportTypes) > 0 {
		d.CorpName = l.LookupCorpName(ctx, symbol)
		d.Indicators = l.Indicators(ctx, contracts.IndicatorQuery{
			Symbol:      symbol,
			CorpName:    d.CorpName,
			Start:       req.Start,
			End:         req.End,
			ReportTypes: req.ReportTypes,
		})
	}
	return d
}
