package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func createTestChampion(championID, asset, venue string, activatedAtMs int64) *domain.Champion {
	params := domain.NewStrategyParams()
	params.Numeric["momentum.window"] = 14
	params.Version = params.Fingerprint()

	return &domain.Champion{
		ChampionID:    championID,
		Asset:         asset,
		Venue:         venue,
		Params:        params,
		ParamsVersion: params.Version,
		ResultID:      "res-" + championID,
		TrainedOn: domain.RegimeSnapshot{
			TimestampMs: activatedAtMs,
			Calm:        0.5,
			Balanced:    0.4,
			Stress:      0.1,
		},
		Significance: domain.SignificanceResult{
			PValue:        0.02,
			Alpha:         0.05,
			IsSignificant: true,
		},
		Baseline: domain.MetricsSnapshot{
			TimestampMs:   activatedAtMs,
			Sharpe:        1.9,
			VolatilityPct: 35,
			WindowDays:    30,
			TradeCount:    52,
		},
		Active:        true,
		ActivatedAtMs: activatedAtMs,
	}
}

func TestChampionStore_SwapAndGetActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChampionStore(pool)

	champ := createTestChampion("champ-1", "SOL", "raydium", 1000)
	require.NoError(t, store.Swap(ctx, champ))

	active, err := store.GetActive(ctx, "SOL", "raydium")
	require.NoError(t, err)

	assert.Equal(t, "champ-1", active.ChampionID)
	assert.True(t, active.Active)
	assert.Equal(t, int64(0), active.SupersededAtMs)
	assert.Equal(t, champ.ParamsVersion, active.ParamsVersion)
	assert.Equal(t, 14.0, active.Params.Num("momentum.window", 0))
	assert.InDelta(t, champ.TrainedOn.Calm, active.TrainedOn.Calm, 1e-9)
	assert.InDelta(t, champ.Baseline.Sharpe, active.Baseline.Sharpe, 1e-9)
	assert.True(t, active.Significance.IsSignificant)
}

func TestChampionStore_SwapSupersedesIncumbent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChampionStore(pool)

	require.NoError(t, store.Swap(ctx, createTestChampion("champ-old", "SOL", "raydium", 1000)))
	require.NoError(t, store.Swap(ctx, createTestChampion("champ-new", "SOL", "raydium", 2000)))

	active, err := store.GetActive(ctx, "SOL", "raydium")
	require.NoError(t, err)
	assert.Equal(t, "champ-new", active.ChampionID)

	history, err := store.History(ctx, "SOL", "raydium")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "champ-old", history[0].ChampionID)
	assert.False(t, history[0].Active)
	assert.Equal(t, int64(2000), history[0].SupersededAtMs)

	assert.Equal(t, "champ-new", history[1].ChampionID)
	assert.True(t, history[1].Active)
	assert.Equal(t, int64(0), history[1].SupersededAtMs)
}

func TestChampionStore_GetActiveNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewChampionStore(pool)
	_, err := store.GetActive(context.Background(), "SOL", "raydium")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChampionStore_SwapDuplicateID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChampionStore(pool)

	champ := createTestChampion("champ-dup", "SOL", "raydium", 1000)
	require.NoError(t, store.Swap(ctx, champ))

	err := store.Swap(ctx, champ)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Failed swap must not have deactivated the incumbent.
	active, err := store.GetActive(ctx, "SOL", "raydium")
	require.NoError(t, err)
	assert.Equal(t, "champ-dup", active.ChampionID)
	assert.Equal(t, int64(0), active.SupersededAtMs)
}

func TestChampionStore_PairsAreIndependent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewChampionStore(pool)

	require.NoError(t, store.Swap(ctx, createTestChampion("champ-sol", "SOL", "raydium", 1000)))
	require.NoError(t, store.Swap(ctx, createTestChampion("champ-btc", "BTC", "raydium", 1000)))
	require.NoError(t, store.Swap(ctx, createTestChampion("champ-sol-2", "SOL", "raydium", 2000)))

	active, err := store.GetActive(ctx, "BTC", "raydium")
	require.NoError(t, err)
	assert.Equal(t, "champ-btc", active.ChampionID)
	assert.True(t, active.Active)
}
