package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// ChampionStore implements storage.ChampionStore using PostgreSQL.
// The single-active invariant is enforced twice: Swap runs the
// deactivate+insert in one transaction, and the schema carries a partial
// unique index on (asset, venue) WHERE active.
type ChampionStore struct {
	pool *Pool
}

// NewChampionStore creates a new ChampionStore.
func NewChampionStore(pool *Pool) *ChampionStore {
	return &ChampionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChampionStore = (*ChampionStore)(nil)

const championColumns = `
	champion_id, asset, venue, params, params_version,
	result_id, regime_timestamp_ms, regime_calm, regime_balanced, regime_stress,
	significance,
	baseline_timestamp_ms, baseline_sharpe, baseline_volatility_pct, baseline_window_days, baseline_trade_count,
	active, activated_at_ms, superseded_at_ms
`

// Swap atomically deactivates the incumbent for the champion's
// (asset, venue) and inserts the new champion as active.
func (s *ChampionStore) Swap(ctx context.Context, c *domain.Champion) error {
	params, err := json.Marshal(c.Params)
	if err != nil {
		return fmt.Errorf("marshal champion params: %w", err)
	}
	significance, err := json.Marshal(c.Significance)
	if err != nil {
		return fmt.Errorf("marshal champion significance: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	deactivate := `
		UPDATE champions
		SET active = false, superseded_at_ms = $3
		WHERE asset = $1 AND venue = $2 AND active
	`
	if _, err := tx.Exec(ctx, deactivate, c.Asset, c.Venue, c.ActivatedAtMs); err != nil {
		return fmt.Errorf("deactivate incumbent champion: %w", err)
	}

	insert := `
		INSERT INTO champions (` + championColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11,
			$12, $13, $14, $15, $16,
			true, $17, 0
		)
	`
	_, err = tx.Exec(ctx, insert,
		c.ChampionID, c.Asset, c.Venue, params, c.ParamsVersion,
		c.ResultID, c.TrainedOn.TimestampMs, c.TrainedOn.Calm, c.TrainedOn.Balanced, c.TrainedOn.Stress,
		significance,
		c.Baseline.TimestampMs, c.Baseline.Sharpe, c.Baseline.VolatilityPct, c.Baseline.WindowDays, c.Baseline.TradeCount,
		c.ActivatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert champion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetActive retrieves the active champion for the pair. Returns
// ErrNotFound when no champion has ever been promoted.
func (s *ChampionStore) GetActive(ctx context.Context, asset, venue string) (*domain.Champion, error) {
	query := `
		SELECT ` + championColumns + `
		FROM champions
		WHERE asset = $1 AND venue = $2 AND active
	`

	row := s.pool.QueryRow(ctx, query, asset, venue)
	c, err := scanChampion(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active champion: %w", err)
	}
	return c, nil
}

// History retrieves all champions for the pair, ordered by activated_at
// ASC, superseded and active alike.
func (s *ChampionStore) History(ctx context.Context, asset, venue string) ([]*domain.Champion, error) {
	query := `
		SELECT ` + championColumns + `
		FROM champions
		WHERE asset = $1 AND venue = $2
		ORDER BY activated_at_ms ASC, champion_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asset, venue)
	if err != nil {
		return nil, fmt.Errorf("get champion history: %w", err)
	}
	defer rows.Close()

	var champions []*domain.Champion
	for rows.Next() {
		c, err := scanChampion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan champion row: %w", err)
		}
		champions = append(champions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate champion rows: %w", err)
	}

	return champions, nil
}

// scanChampion scans a single row into a Champion.
func scanChampion(row pgx.Row) (*domain.Champion, error) {
	var c domain.Champion
	var params, significance []byte

	err := row.Scan(
		&c.ChampionID, &c.Asset, &c.Venue, &params, &c.ParamsVersion,
		&c.ResultID, &c.TrainedOn.TimestampMs, &c.TrainedOn.Calm, &c.TrainedOn.Balanced, &c.TrainedOn.Stress,
		&significance,
		&c.Baseline.TimestampMs, &c.Baseline.Sharpe, &c.Baseline.VolatilityPct, &c.Baseline.WindowDays, &c.Baseline.TradeCount,
		&c.Active, &c.ActivatedAtMs, &c.SupersededAtMs,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &c.Params); err != nil {
		return nil, fmt.Errorf("unmarshal champion params: %w", err)
	}
	if err := json.Unmarshal(significance, &c.Significance); err != nil {
		return nil, fmt.Errorf("unmarshal champion significance: %w", err)
	}

	return &c, nil
}
