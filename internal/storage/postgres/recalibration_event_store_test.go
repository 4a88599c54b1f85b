package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func createTestEvent(eventID string, triggeredAtMs int64) *domain.RecalibrationEvent {
	return &domain.RecalibrationEvent{
		EventID: eventID,
		Asset:   "SOL",
		Venue:   "raydium",
		Reason:  domain.TriggerSharpeDrift,
		Baseline: domain.MetricsSnapshot{
			TimestampMs:   triggeredAtMs - 1000,
			Sharpe:        2.0,
			VolatilityPct: 30,
			WindowDays:    30,
			TradeCount:    60,
		},
		Current: domain.MetricsSnapshot{
			TimestampMs:   triggeredAtMs,
			Sharpe:        1.5,
			VolatilityPct: 38,
			WindowDays:    30,
			TradeCount:    48,
		},
		Regime: domain.RegimeSnapshot{
			TimestampMs: triggeredAtMs,
			Calm:        0.2,
			Balanced:    0.3,
			Stress:      0.5,
		},
		TriggeredAtMs: triggeredAtMs,
	}
}

func TestRecalibrationEventStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecalibrationEventStore(pool)

	event := createTestEvent("evt-001", 5000)
	require.NoError(t, store.Insert(ctx, event))

	retrieved, err := store.GetByID(ctx, "evt-001")
	require.NoError(t, err)

	assert.Equal(t, event.EventID, retrieved.EventID)
	assert.Equal(t, event.Reason, retrieved.Reason)
	assert.Equal(t, event.TriggeredAtMs, retrieved.TriggeredAtMs)
	assert.False(t, retrieved.Consumed)
	assert.Equal(t, int64(0), retrieved.ConsumedAtMs)
	assert.InDelta(t, event.Baseline.Sharpe, retrieved.Baseline.Sharpe, 1e-9)
	assert.InDelta(t, event.Current.VolatilityPct, retrieved.Current.VolatilityPct, 1e-9)
	assert.InDelta(t, event.Regime.Stress, retrieved.Regime.Stress, 1e-9)
}

func TestRecalibrationEventStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecalibrationEventStore(pool)

	event := createTestEvent("evt-dup", 5000)
	require.NoError(t, store.Insert(ctx, event))

	err := store.Insert(ctx, event)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRecalibrationEventStore_MarkConsumedExactlyOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecalibrationEventStore(pool)

	require.NoError(t, store.Insert(ctx, createTestEvent("evt-once", 5000)))

	require.NoError(t, store.MarkConsumed(ctx, "evt-once", 6000))

	retrieved, err := store.GetByID(ctx, "evt-once")
	require.NoError(t, err)
	assert.True(t, retrieved.Consumed)
	assert.Equal(t, int64(6000), retrieved.ConsumedAtMs)

	err = store.MarkConsumed(ctx, "evt-once", 7000)
	assert.ErrorIs(t, err, storage.ErrAlreadyConsumed)

	// Second attempt must not move the consumption timestamp.
	retrieved, err = store.GetByID(ctx, "evt-once")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), retrieved.ConsumedAtMs)
}

func TestRecalibrationEventStore_MarkConsumedNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecalibrationEventStore(pool)
	err := store.MarkConsumed(context.Background(), "missing", 1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecalibrationEventStore_GetPendingExcludesConsumed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRecalibrationEventStore(pool)

	require.NoError(t, store.Insert(ctx, createTestEvent("evt-b", 2000)))
	require.NoError(t, store.Insert(ctx, createTestEvent("evt-a", 1000)))
	require.NoError(t, store.Insert(ctx, createTestEvent("evt-c", 3000)))
	require.NoError(t, store.MarkConsumed(ctx, "evt-b", 4000))

	pending, err := store.GetPending(ctx, "SOL", "raydium")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "evt-a", pending[0].EventID)
	assert.Equal(t, "evt-c", pending[1].EventID)
}
