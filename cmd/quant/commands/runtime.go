package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/metrics"
	"github.com/wonny/aegis-backtest/internal/s0_data"
	"github.com/wonny/aegis-backtest/pkg/config"
	"github.com/wonny/aegis-backtest/pkg/database"
	"github.com/wonny/aegis-backtest/pkg/logger"
	"github.com/wonny/aegis-backtest/pkg/redis"
	"github.com/wonny/aegis-backtest/pkg/tracing"
)

const cachePrefix = "aegis-backtest"

// appRuntime holds the process-level dependencies of a command
// ⭐ SSOT: 환경 설정 → 인프라 의존성 조립은 여기서만
type appRuntime struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	cache      *redis.Client
	metricsSrv *http.Server
}

// newRuntime loads .env config and connects the market data store
func newRuntime(ctx context.Context) (*appRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &appRuntime{cfg: cfg, log: logger.New(cfg)}

	if err := tracing.Init(ctx, cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if cfg.MetricsEnabled {
		rt.metricsSrv = metrics.Serve(":" + cfg.MetricsPort)
		rt.log.WithField("port", cfg.MetricsPort).Info("Metrics server started")
	}

	rt.db, err = database.New(ctx, cfg.Database)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rt.cache, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		// 캐시 장애는 실행을 막지 않음
		rt.log.WithError(err).Warn("Redis unavailable, running without cache")
		rt.cache = redis.Disabled()
	}

	return rt, nil
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loader returns the market data loader, cached when Redis is on
func (r *appRuntime) loader() *s0_data.Loader {
	var store contracts.MarketDataStore = s0_data.NewPostgresStore(r.db.Pool)
	if r.cache.Enabled() {
		store = s0_data.NewCachedStore(store, redis.NewCache(r.cache, cachePrefix), r.cfg.Redis.CacheTTL, r.log)
	}
	return s0_data.NewLoader(store, s0_data.LoaderConfig{
		Concurrency:      r.cfg.Backtest.ScreeningConcurrency,
		QueriesPerSecond: r.cfg.Backtest.StoreQueryRPS,
	}, r.log)
}

// Close releases connections and flushes spans
func (r *appRuntime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.cache != nil {
		_ = r.cache.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
	if r.metricsSrv != nil {
		_ = r.metricsSrv.Shutdown(ctx)
	}
	if err := tracing.Shutdown(ctx); err != nil {
		r.log.WithError(err).Warn("Tracing shutdown failed")
	}
}
