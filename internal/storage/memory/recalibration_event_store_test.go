package memory

import (
	"context"
	"errors"
	"testing"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func event(id string, triggeredAtMs int64) *domain.RecalibrationEvent {
	return &domain.RecalibrationEvent{
		EventID:       id,
		Asset:         "BTC-USD",
		Venue:         "binance",
		Reason:        domain.TriggerSharpeDrift,
		TriggeredAtMs: triggeredAtMs,
	}
}

func TestRecalibrationEventStore_PendingOrdered(t *testing.T) {
	store := NewRecalibrationEventStore()
	ctx := context.Background()

	for _, e := range []*domain.RecalibrationEvent{
		event("e2", 2000),
		event("e1", 1000),
		event("e3", 3000),
	} {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s failed: %v", e.EventID, err)
		}
	}

	pending, err := store.GetPending(ctx, "BTC-USD", "binance")
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending, got %d", len(pending))
	}
	if pending[0].EventID != "e1" || pending[2].EventID != "e3" {
		t.Errorf("Pending events not ordered by trigger time")
	}
}

func TestRecalibrationEventStore_ConsumeExactlyOnce(t *testing.T) {
	store := NewRecalibrationEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, event("e1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.MarkConsumed(ctx, "e1", 5000); err != nil {
		t.Fatalf("First MarkConsumed failed: %v", err)
	}
	if err := store.MarkConsumed(ctx, "e1", 6000); !errors.Is(err, storage.ErrAlreadyConsumed) {
		t.Errorf("Expected ErrAlreadyConsumed, got %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Consumed || got.ConsumedAtMs != 5000 {
		t.Errorf("Consumption not recorded: %+v", got)
	}

	pending, _ := store.GetPending(ctx, "BTC-USD", "binance")
	if len(pending) != 0 {
		t.Errorf("Consumed event still pending")
	}
}

func TestRecalibrationEventStore_MarkConsumedNotFound(t *testing.T) {
	store := NewRecalibrationEventStore()

	err := store.MarkConsumed(context.Background(), "missing", 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
