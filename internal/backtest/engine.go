package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wonny/aegis-backtest/internal/audit"
	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/internal/s1_universe"
	"github.com/wonny/aegis-backtest/internal/selection"
	"github.com/wonny/aegis-backtest/pkg/logger"
	"github.com/wonny/aegis-backtest/pkg/tracing"
)

// Run-level failures. Each comes with a zeroed result.
var (
	ErrEmptyUniverse = errors.New("universe resolved to no symbols")
	ErrNoCandidates  = errors.New("screening kept no candidates")
	ErrNoPriceData   = errors.New("no price data for any candidate")
)

// Engine runs one backtest: universe → screening → load → simulate → analyze
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	loader *s0_data.Loader
	logger *logger.Logger
}

// NewEngine creates a new backtest engine over loader
func NewEngine(loader *s0_data.Loader, log *logger.Logger) *Engine {
	return &Engine{
		loader: loader,
		logger: logger.OrNop(log),
	}
}

// Run executes a backtest for cfg. The only errors besides the three
// sentinels are context cancellation and deadline.
func (e *Engine) Run(ctx context.Context, cfg contracts.BacktestConfig) (result *contracts.BacktestResult, err error) {
	started := time.Now()
	log := e.logger.WithField("module", "backtest")

	ctx, span := tracing.StartSpan(ctx, "backtest.run")
	span.SetAttributes(
		attribute.String("backtest.name", cfg.Name),
		attribute.String("backtest.config_hash", cfg.Hash()),
	)
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, ErrEmptyUniverse), errors.Is(err, ErrNoCandidates), errors.Is(err, ErrNoPriceData):
			status = "empty"
		case err != nil:
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.BacktestRunsTotal.WithLabelValues(status).Inc()
		metrics.BacktestRunDuration.Observe(time.Since(started).Seconds())
		span.End()
	}()

	log.WithFields(map[string]interface{}{
		"name":         cfg.Name,
		"start_date":   cfg.StartDate.Format("2006-01-02"),
		"end_date":     cfg.EndDate.Format("2006-01-02"),
		"initial_cash": cfg.InitialCash,
		"rebalance":    cfg.RebalancePeriod,
		"sort_by":      cfg.SortBy,
	}).Info("Starting backtest")

	empty := func(reason error) (*contracts.BacktestResult, error) {
		r := contracts.EmptyResult(cfg)
		r.ConfigHash = cfg.Hash()
		log.WithField("reason", reason.Error()).Warn("Backtest has nothing to simulate")
		return r, reason
	}

	// 1. 유니버스
	uctx, uspan := tracing.StartSpan(ctx, "backtest.universe")
	universe := s1_universe.NewBuilder(e.loader, e.logger).Build(uctx, cfg)
	uspan.SetAttributes(attribute.Int("universe.size", len(universe.Symbols)))
	uspan.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if universe.Empty() {
		return empty(ErrEmptyUniverse)
	}

	// 2. 스크리닝
	sctx, sspan := tracing.StartSpan(ctx, "backtest.screening")
	screened, err := selection.NewScreener(e.loader, cfg, e.logger).Screen(sctx, universe.Symbols)
	if err == nil {
		sspan.SetAttributes(attribute.Int("screening.passed", len(screened.Symbols)))
	}
	sspan.End()
	if err != nil {
		return nil, fmt.Errorf("screening: %w", err)
	}
	if len(screened.Symbols) == 0 {
		return empty(ErrNoCandidates)
	}

	// 3. 데이터 로드
	lctx, lspan := tracing.StartSpan(ctx, "backtest.load")
	market, err := e.loader.LoadAll(lctx, screened.Symbols, s0_data.LoadRequest{
		Start:          cfg.StartDate,
		End:            cfg.EndDate,
		WithPrices:     true,
		WithDisclosure: cfg.UseDisclosures,
		ReportTypes:    cfg.IndicatorReportTypes(),
	})
	lspan.End()
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}
	candidates := market.WithPrices()
	if len(candidates) == 0 {
		return empty(ErrNoPriceData)
	}

	// 4. 시뮬레이션
	simctx, simspan := tracing.StartSpan(ctx, "backtest.simulate")
	sim, err := NewSimulator(cfg, e.logger).Run(simctx, candidates, market)
	if err == nil {
		simspan.SetAttributes(
			attribute.Int("simulate.trading_days", sim.TradingDays),
			attribute.Int("simulate.trades", len(sim.Trades)),
		)
	}
	simspan.End()
	if err != nil {
		return nil, err
	}

	// 5. 성과 분석
	_, aspan := tracing.StartSpan(ctx, "backtest.analyze")
	histories := make(map[string]contracts.DisclosureHistory, len(candidates))
	for _, symbol := range candidates {
		histories[symbol] = market.Get(symbol).Disclosures
	}
	result = audit.NewAnalyzer(e.logger).Analyze(cfg, audit.RunOutput{
		Symbols:        candidates,
		Trades:         sim.Trades,
		EquityCurve:    sim.EquityCurve,
		TradingDays:    sim.TradingDays,
		RebalanceCount: sim.RebalanceCount,
		Histories:      histories,
	})
	aspan.End()

	log.WithFields(map[string]interface{}{
		"duration":     time.Since(started).Seconds(),
		"trading_days": result.TradingDays,
		"rebalances":   result.RebalanceCount,
		"total_return": fmt.Sprintf("%.2f%%", result.TotalReturn),
		"sharpe_ratio": fmt.Sprintf("%.2f", result.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.MaxDrawdown),
	}).Info("Backtest completed")

	return result, nil
}
