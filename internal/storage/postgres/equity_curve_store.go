package postgres

import (
	"context"
	"fmt"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using PostgreSQL.
type EquityCurveStore struct {
	pool *Pool
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(pool *Pool) *EquityCurveStore {
	return &EquityCurveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk adds the run's points atomically. Fails entire batch on
// duplicate (run_id, timestamp_ms).
func (s *EquityCurveStore) InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO equity_points (
			run_id, timestamp_ms, theoretical, realistic, divergence_pct
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	for _, p := range points {
		_, err := tx.Exec(ctx, query,
			runID, p.TimestampMs, p.Theoretical, p.Realistic, p.DivergencePct,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert equity point in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	query := `
		SELECT timestamp_ms, theoretical, realistic, divergence_pct
		FROM equity_points
		WHERE run_id = $1
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get equity points by run id: %w", err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.TimestampMs, &p.Theoretical, &p.Realistic, &p.DivergencePct); err != nil {
			return nil, fmt.Errorf("scan equity point row: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity point rows: %w", err)
	}

	return points, nil
}
