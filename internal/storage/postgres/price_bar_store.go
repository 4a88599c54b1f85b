package postgres

import (
	"context"
	"fmt"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using PostgreSQL.
type PriceBarStore struct {
	pool *Pool
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(pool *Pool) *PriceBarStore {
	return &PriceBarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds multiple bars atomically. Fails entire batch on
// duplicate (asset, venue, interval, timestamp_ms).
func (s *PriceBarStore) InsertBulk(ctx context.Context, asset, venue, interval string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bars (
			asset, venue, interval, timestamp_ms,
			open, high, low, close, volume
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			asset, venue, interval, b.TimestampMs,
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price bar in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetSeries retrieves bars within [startMs, endMs] inclusive, ordered by
// timestamp ASC.
func (s *PriceBarStore) GetSeries(ctx context.Context, asset, venue, interval string, startMs, endMs int64) ([]domain.PriceBar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM price_bars
		WHERE asset = $1 AND venue = $2 AND interval = $3
		  AND timestamp_ms >= $4 AND timestamp_ms <= $5
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, asset, venue, interval, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("get price bar series: %w", err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.TimestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
