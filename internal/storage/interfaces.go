package storage

import (
	"context"

	"campaign-lab/internal/domain"
)

// PriceBarStore provides access to price_bars storage. Series are keyed
// by (asset, venue, interval) and bars are write-once.
type PriceBarStore interface {
	// InsertBulk adds multiple bars atomically. Fails entire batch on
	// duplicate (asset, venue, interval, timestamp_ms).
	InsertBulk(ctx context.Context, asset, venue, interval string, bars []domain.PriceBar) error

	// GetSeries retrieves bars within [startMs, endMs] (inclusive),
	// ordered by timestamp ASC.
	GetSeries(ctx context.Context, asset, venue, interval string, startMs, endMs int64) ([]domain.PriceBar, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades for a run, ordered by entry_timestamp_ms ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// EquityCurveStore provides access to equity_points storage. Points are
// appended per run in bar order.
type EquityCurveStore interface {
	// InsertBulk adds the run's points atomically. Fails entire batch on
	// duplicate (run_id, timestamp_ms).
	InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error

	// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}

// CampaignResultStore provides access to campaign_results storage.
type CampaignResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
	Insert(ctx context.Context, r *domain.CampaignResult) error

	// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, resultID string) (*domain.CampaignResult, error)

	// GetByCampaignID retrieves all results for a campaign, ordered by created_at ASC.
	GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.CampaignResult, error)
}

// ChampionStore provides access to champions storage. At most one
// champion is active per (asset, venue); history rows are superseded,
// never deleted.
type ChampionStore interface {
	// Swap atomically deactivates the current active champion for the
	// new champion's (asset, venue) and inserts the new one as active.
	// There is no observable state with zero or two active champions.
	Swap(ctx context.Context, c *domain.Champion) error

	// GetActive retrieves the active champion. Returns ErrNotFound when
	// no champion has ever been promoted for the pair.
	GetActive(ctx context.Context, asset, venue string) (*domain.Champion, error)

	// History retrieves all champions for the pair, ordered by
	// activated_at ASC, superseded and active alike.
	History(ctx context.Context, asset, venue string) ([]*domain.Champion, error)
}

// RecalibrationEventStore provides access to recalibration_events
// storage. Events are immutable except for the consumed flag, which
// flips exactly once.
type RecalibrationEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.RecalibrationEvent) error

	// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, eventID string) (*domain.RecalibrationEvent, error)

	// GetPending retrieves unconsumed events for the pair, ordered by
	// triggered_at ASC.
	GetPending(ctx context.Context, asset, venue string) ([]*domain.RecalibrationEvent, error)

	// MarkConsumed flips the consumed flag. Returns ErrAlreadyConsumed
	// on a second call and ErrNotFound for an unknown event.
	MarkConsumed(ctx context.Context, eventID string, consumedAtMs int64) error
}
