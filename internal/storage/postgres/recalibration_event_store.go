package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// RecalibrationEventStore implements storage.RecalibrationEventStore
// using PostgreSQL. MarkConsumed relies on a conditional UPDATE so two
// concurrent jobs can never both claim the same event.
type RecalibrationEventStore struct {
	pool *Pool
}

// NewRecalibrationEventStore creates a new RecalibrationEventStore.
func NewRecalibrationEventStore(pool *Pool) *RecalibrationEventStore {
	return &RecalibrationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecalibrationEventStore = (*RecalibrationEventStore)(nil)

const recalibrationEventColumns = `
	event_id, asset, venue, reason,
	baseline_timestamp_ms, baseline_sharpe, baseline_volatility_pct, baseline_window_days, baseline_trade_count,
	current_timestamp_ms, current_sharpe, current_volatility_pct, current_window_days, current_trade_count,
	regime_timestamp_ms, regime_calm, regime_balanced, regime_stress,
	triggered_at_ms, consumed, consumed_at_ms
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *RecalibrationEventStore) Insert(ctx context.Context, e *domain.RecalibrationEvent) error {
	query := `
		INSERT INTO recalibration_events (` + recalibrationEventColumns + `
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.EventID, e.Asset, e.Venue, e.Reason,
		e.Baseline.TimestampMs, e.Baseline.Sharpe, e.Baseline.VolatilityPct, e.Baseline.WindowDays, e.Baseline.TradeCount,
		e.Current.TimestampMs, e.Current.Sharpe, e.Current.VolatilityPct, e.Current.WindowDays, e.Current.TradeCount,
		e.Regime.TimestampMs, e.Regime.Calm, e.Regime.Balanced, e.Regime.Stress,
		e.TriggeredAtMs, e.Consumed, e.ConsumedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert recalibration event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *RecalibrationEventStore) GetByID(ctx context.Context, eventID string) (*domain.RecalibrationEvent, error) {
	query := `SELECT ` + recalibrationEventColumns + ` FROM recalibration_events WHERE event_id = $1`

	row := s.pool.QueryRow(ctx, query, eventID)
	e, err := scanRecalibrationEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get recalibration event by id: %w", err)
	}
	return e, nil
}

// GetPending retrieves unconsumed events for the pair, ordered by
// triggered_at ASC.
func (s *RecalibrationEventStore) GetPending(ctx context.Context, asset, venue string) ([]*domain.RecalibrationEvent, error) {
	query := `
		SELECT ` + recalibrationEventColumns + `
		FROM recalibration_events
		WHERE asset = $1 AND venue = $2 AND NOT consumed
		ORDER BY triggered_at_ms ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asset, venue)
	if err != nil {
		return nil, fmt.Errorf("get pending recalibration events: %w", err)
	}
	defer rows.Close()

	var events []*domain.RecalibrationEvent
	for rows.Next() {
		e, err := scanRecalibrationEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recalibration event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recalibration event rows: %w", err)
	}

	return events, nil
}

// MarkConsumed flips the consumed flag exactly once. Returns
// ErrAlreadyConsumed on a second call and ErrNotFound for an unknown event.
func (s *RecalibrationEventStore) MarkConsumed(ctx context.Context, eventID string, consumedAtMs int64) error {
	query := `
		UPDATE recalibration_events
		SET consumed = true, consumed_at_ms = $2
		WHERE event_id = $1 AND NOT consumed
	`

	tag, err := s.pool.Exec(ctx, query, eventID, consumedAtMs)
	if err != nil {
		return fmt.Errorf("mark recalibration event consumed: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row claimed: either the event does not exist or someone else
	// consumed it first.
	var consumed bool
	row := s.pool.QueryRow(ctx, `SELECT consumed FROM recalibration_events WHERE event_id = $1`, eventID)
	if err := row.Scan(&consumed); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check recalibration event state: %w", err)
	}
	if consumed {
		return storage.ErrAlreadyConsumed
	}
	return storage.ErrNotFound
}

// scanRecalibrationEvent scans a single row into a RecalibrationEvent.
func scanRecalibrationEvent(row pgx.Row) (*domain.RecalibrationEvent, error) {
	var e domain.RecalibrationEvent

	err := row.Scan(
		&e.EventID, &e.Asset, &e.Venue, &e.Reason,
		&e.Baseline.TimestampMs, &e.Baseline.Sharpe, &e.Baseline.VolatilityPct, &e.Baseline.WindowDays, &e.Baseline.TradeCount,
		&e.Current.TimestampMs, &e.Current.Sharpe, &e.Current.VolatilityPct, &e.Current.WindowDays, &e.Current.TradeCount,
		&e.Regime.TimestampMs, &e.Regime.Calm, &e.Regime.Balanced, &e.Regime.Stress,
		&e.TriggeredAtMs, &e.Consumed, &e.ConsumedAtMs,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}
