package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BacktestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_runs_total", Help: "Backtest runs by outcome"},
		[]string{"status"},
	)
	BacktestRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a full backtest run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_trades_total", Help: "Simulated fills"},
		[]string{"action"},
	)
	SignalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_decisions_total", Help: "Non-neutral signal decisions by tier"},
		[]string{"tier", "action"},
	)
	StoreQueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_query_errors_total", Help: "Market data queries degraded to empty"},
		[]string{"query"},
	)
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Market data query latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

func init() {
	prometheus.MustRegister(
		BacktestRunsTotal,
		BacktestRunDuration,
		TradesTotal,
		SignalDecisionsTotal,
		StoreQueryErrorsTotal,
		StoreQueryDuration,
	)
}

// ObserveQuery records the latency of one store query
func ObserveQuery(query string, started time.Time) {
	StoreQueryDuration.WithLabelValues(query).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr in the background
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
