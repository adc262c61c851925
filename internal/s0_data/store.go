package s0_data

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// PostgresStore is the pgx-backed contracts.MarketDataStore
type PostgresStore struct {
	*PriceRepository
	*DisclosureRepository
}

var _ contracts.MarketDataStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store over both tables
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		PriceRepository:      NewPriceRepository(pool),
		DisclosureRepository: NewDisclosureRepository(pool),
	}
}
