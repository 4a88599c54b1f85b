// Package cli holds the wiring shared by the command-line binaries:
// store selection across the memory, PostgreSQL, and ClickHouse backends,
// and bar-series loading from CSV fixtures.
package cli

import (
	"context"
	"fmt"

	"campaign-lab/internal/storage"
	"campaign-lab/internal/storage/clickhouse"
	"campaign-lab/internal/storage/memory"
	"campaign-lab/internal/storage/migrations"
	"campaign-lab/internal/storage/postgres"
)

// Stores bundles every store a binary can need. Unused fields are still
// valid (memory-backed) so callers never nil-check.
type Stores struct {
	Bars      storage.PriceBarStore
	Trades    storage.TradeStore
	Equity    storage.EquityCurveStore
	Results   storage.CampaignResultStore
	Champions storage.ChampionStore
	Events    storage.RecalibrationEventStore

	pool *postgres.Pool
	ch   *clickhouse.Conn
}

// OpenStores wires the storage backends. With both DSNs empty everything
// is memory-backed. A PostgreSQL DSN moves the records of record there;
// a ClickHouse DSN additionally moves the high-volume timeseries (bars,
// equity points) to ClickHouse. Migrations run on connect.
func OpenStores(ctx context.Context, postgresDSN, clickhouseDSN string) (*Stores, error) {
	s := &Stores{
		Bars:      memory.NewPriceBarStore(),
		Trades:    memory.NewTradeStore(),
		Equity:    memory.NewEquityCurveStore(),
		Results:   memory.NewCampaignResultStore(),
		Champions: memory.NewChampionStore(),
		Events:    memory.NewRecalibrationEventStore(),
	}

	if postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.pool = pool
		s.Bars = postgres.NewPriceBarStore(pool)
		s.Trades = postgres.NewTradeStore(pool)
		s.Equity = postgres.NewEquityCurveStore(pool)
		s.Results = postgres.NewCampaignResultStore(pool)
		s.Champions = postgres.NewChampionStore(pool)
		s.Events = postgres.NewRecalibrationEventStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		s.ch = conn
		s.Bars = clickhouse.NewPriceBarStore(conn)
		s.Equity = clickhouse.NewEquityCurveStore(conn)
	}

	return s, nil
}

// Close releases backend connections. Safe on a memory-only bundle.
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.ch != nil {
		s.ch.Close()
	}
}
