package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// PriceRepository reads daily_stock_price
// ⭐ SSOT: 가격 데이터 조회는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// ListSymbols returns every symbol with price rows, sorted
func (r *PriceRepository) ListSymbols(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM daily_stock_price ORDER BY symbol`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// LoadPrices returns bars for symbol in [start, end], date ascending
func (r *PriceRepository) LoadPrices(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT date,
		       COALESCE(open, close)::float8,
		       COALESCE(high, close)::float8,
		       COALESCE(low, close)::float8,
		       close::float8,
		       COALESCE(volume, 0)::bigint
		FROM daily_stock_price
		WHERE symbol = $1
		  AND date >= $2
		  AND date <= $3
		  AND close IS NOT NULL
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, contracts.DateOf(start), contracts.DateOf(end))
	if err != nil {
		return nil, fmt.Errorf("query prices %s: %w", symbol, err)
	}
	defer rows.Close()

	series := make(contracts.PriceSeries, 0)
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price %s: %w", symbol, err)
		}
		b.Date = contracts.DateOf(b.Date)
		series = append(series, b)
	}
	return series, rows.Err()
}
