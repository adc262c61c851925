package selection

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// Screener scores the universe, applies the filter and keeps the best
// MaxPortfolioSize symbols
// ⭐ SSOT: 스크리닝 로직은 여기서만
type Screener struct {
	loader *s0_data.Loader
	scorer *Scorer
	config ScreenerConfig
	logger *logger.Logger
}

// ScreenerConfig defines the cut conditions
type ScreenerConfig struct {
	SortAscending    bool
	Filter           contracts.ScreenFilter
	MaxPortfolioSize int
	Concurrency      int
}

// ScreenResult is the ordered survivor list with every computed score
type ScreenResult struct {
	Symbols []string
	Scores  map[string]float64 // 점수 미사용 시 nil
}

// NewScreener creates a new screener for cfg
func NewScreener(loader *s0_data.Loader, cfg contracts.BacktestConfig, log *logger.Logger) *Screener {
	return &Screener{
		loader: loader,
		scorer: NewScorer(cfg),
		config: ScreenerConfig{
			SortAscending:    cfg.SortAscending,
			Filter:           cfg.Filter,
			MaxPortfolioSize: cfg.MaxPortfolioSize,
			Concurrency:      cfg.ScreeningConcurrency,
		},
		logger: logger.OrNop(log).WithField("module", "selection"),
	}
}

// Screen returns the candidates in rank order.
// Without a scoring criterion the universe order is kept.
func (s *Screener) Screen(ctx context.Context, universe []string) (*ScreenResult, error) {
	if !s.scorer.Criterion().Scored() {
		return &ScreenResult{Symbols: truncate(universe, s.config.MaxPortfolioSize)}, nil
	}

	scores, err := s.scoreAll(ctx, universe)
	if err != nil {
		return nil, err
	}

	ranked := Rank(universe, scores, s.config.Filter, s.config.SortAscending)
	ranked = truncate(ranked, s.config.MaxPortfolioSize)

	s.logger.WithFields(map[string]interface{}{
		"criterion":   s.scorer.Criterion(),
		"total_input": len(universe),
		"passed":      len(ranked),
		"filter_type": s.config.Filter.Type,
	}).Info("Screening completed")

	return &ScreenResult{Symbols: ranked, Scores: scores}, nil
}

// scoreAll loads what the criterion needs and scores each symbol concurrently
func (s *Screener) scoreAll(ctx context.Context, universe []string) (map[string]float64, error) {
	needPrices, needDisclosures := s.scorer.Needs()
	values := make([]float64, len(universe))

	limit := s.config.Concurrency
	if limit <= 0 {
		limit = s.loader.Concurrency()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, symbol := range universe {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d := &s0_data.SymbolData{Symbol: symbol}
			if needPrices {
				d.Prices = s.loader.Prices(gctx, symbol, s.scorer.start, s.scorer.end)
			}
			if needDisclosures {
				d.Disclosures = s.loader.Disclosures(gctx, contracts.DisclosureQuery{Symbol: symbol, Start: s.scorer.start, End: s.scorer.end})
			}

			score, err := s.scorer.Score(d)
			if err != nil {
				s.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				}).Warn("Scoring failed, using 0")
				score = 0
			}
			values[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(universe))
	for i, symbol := range universe {
		scores[symbol] = values[i]
	}
	return scores, nil
}

// Rank applies the value filter, sorts stably by score and applies the
// percentile cut. Ties keep universe order.
func Rank(universe []string, scores map[string]float64, filter contracts.ScreenFilter, ascending bool) []string {
	items := make([]string, 0, len(universe))
	seen := make(map[string]bool, len(universe))
	for _, symbol := range universe {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		if filter.Type == contracts.FilterValue {
			v := scores[symbol]
			if ascending && v > filter.Value {
				continue
			}
			if !ascending && v < filter.Value {
				continue
			}
		}
		items = append(items, symbol)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if ascending {
			return scores[items[i]] < scores[items[j]]
		}
		return scores[items[i]] > scores[items[j]]
	})

	if filter.Type == contracts.FilterTop || filter.Type == contracts.FilterBottom {
		k := PercentileCount(len(items), filter.Percent)
		if filter.Type == contracts.FilterTop {
			items = items[:k]
		} else {
			items = items[len(items)-k:]
		}
	}

	return items
}

// PercentileCount returns ceil(n × p / 100) with a minimum of 1.
// p is clamped to [0, 100] and 0 selects nothing.
func PercentileCount(n int, p float64) int {
	p = math.Max(0, math.Min(100, p))
	if p == 0 || n == 0 {
		return 0
	}
	k := int(math.Ceil(float64(n) * p / 100))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

func truncate(symbols []string, max int) []string {
	out := make([]string, 0, len(symbols))
	out = append(out, symbols...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
