package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func testEquityPoints(n int) []domain.EquityPoint {
	points := make([]domain.EquityPoint, n)
	for i := range points {
		theo := 10_000.0 * (1 + 0.001*float64(i))
		real := theo * 0.999
		points[i] = domain.EquityPoint{
			TimestampMs:   int64(i+1) * 60_000,
			Theoretical:   theo,
			Realistic:     real,
			DivergencePct: domain.Divergence(theo, real),
		}
	}
	return points
}

func TestEquityCurveStore_InsertBulkAndGetByRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEquityCurveStore(conn)

	points := testEquityPoints(8)
	require.NoError(t, store.InsertBulk(ctx, "run-eq-1", points))

	got, err := store.GetByRunID(ctx, "run-eq-1")
	require.NoError(t, err)
	require.Len(t, got, 8)

	for i, p := range got {
		assert.Equal(t, points[i].TimestampMs, p.TimestampMs)
		assert.InDelta(t, points[i].Theoretical, p.Theoretical, 1e-9)
		assert.InDelta(t, points[i].Realistic, p.Realistic, 1e-9)
	}
}

func TestEquityCurveStore_SecondWriteForRunRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEquityCurveStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-eq-dup", testEquityPoints(3)))

	err := store.InsertBulk(ctx, "run-eq-dup", testEquityPoints(3))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEquityCurveStore_RunsAreIndependent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEquityCurveStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "run-a", testEquityPoints(3)))
	require.NoError(t, store.InsertBulk(ctx, "run-b", testEquityPoints(5)))

	got, err := store.GetByRunID(ctx, "run-a")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
