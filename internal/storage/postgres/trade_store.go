package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, asset, venue,
	entry_timestamp_ms, entry_theoretical, entry_realistic, direction, position_pct,
	exit_timestamp_ms, exit_theoretical, exit_realistic, exit_reason,
	pnl_theoretical_pct, pnl_realistic_pct, hold_bars, hold_duration_ms,
	regime_timestamp_ms, regime_calm, regime_balanced, regime_stress
`

const insertTradeQuery = `
	INSERT INTO trades (` + tradeColumns + `
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17,
		$18, $19, $20, $21
	)
`

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.TradeID, t.RunID, t.Asset, t.Venue,
		t.EntryTimestampMs, t.EntryTheoretical, t.EntryRealistic, string(t.Direction), t.PositionPct,
		t.ExitTimestampMs, t.ExitTheoretical, t.ExitRealistic, t.ExitReason,
		t.PnLTheoreticalPct, t.PnLRealisticPct, t.HoldBars, t.HoldDurationMs,
		t.EntryRegime.TimestampMs, t.EntryRegime.Calm, t.EntryRegime.Balanced, t.EntryRegime.Stress,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if _, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades for a run, ordered by entry timestamp ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY entry_timestamp_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var direction string

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.Asset, &t.Venue,
		&t.EntryTimestampMs, &t.EntryTheoretical, &t.EntryRealistic, &direction, &t.PositionPct,
		&t.ExitTimestampMs, &t.ExitTheoretical, &t.ExitRealistic, &t.ExitReason,
		&t.PnLTheoreticalPct, &t.PnLRealisticPct, &t.HoldBars, &t.HoldDurationMs,
		&t.EntryRegime.TimestampMs, &t.EntryRegime.Calm, &t.EntryRegime.Balanced, &t.EntryRegime.Stress,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	return &t, nil
}
