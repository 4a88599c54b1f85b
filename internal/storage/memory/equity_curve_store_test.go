package memory

import (
	"context"
	"errors"
	"testing"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func TestEquityCurveStore_InsertAndGet(t *testing.T) {
	store := NewEquityCurveStore()
	ctx := context.Background()

	points := []domain.EquityPoint{
		{TimestampMs: 2000, Theoretical: 102, Realistic: 101},
		{TimestampMs: 1000, Theoretical: 100, Realistic: 100},
	}
	if err := store.InsertBulk(ctx, "run1", points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 || got[0].TimestampMs != 1000 {
		t.Errorf("Points not ordered by timestamp: %+v", got)
	}
}

func TestEquityCurveStore_DuplicateTimestamp(t *testing.T) {
	store := NewEquityCurveStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "run1", []domain.EquityPoint{{TimestampMs: 1000}}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.InsertBulk(ctx, "run1", []domain.EquityPoint{{TimestampMs: 1000}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEquityCurveStore_EmptyRun(t *testing.T) {
	store := NewEquityCurveStore()

	got, err := store.GetByRunID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty curve, got %d points", len(got))
	}
}
