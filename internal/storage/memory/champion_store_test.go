package memory

import (
	"context"
	"errors"
	"testing"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func champ(id string, activatedAtMs int64) *domain.Champion {
	return &domain.Champion{
		ChampionID:    id,
		Asset:         "BTC-USD",
		Venue:         "binance",
		ParamsVersion: "v-" + id,
		ActivatedAtMs: activatedAtMs,
	}
}

func TestChampionStore_SwapActivates(t *testing.T) {
	store := NewChampionStore()
	ctx := context.Background()

	if err := store.Swap(ctx, champ("c1", 1000)); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	got, err := store.GetActive(ctx, "BTC-USD", "binance")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if got.ChampionID != "c1" || !got.Active {
		t.Errorf("Expected active c1, got %+v", got)
	}
}

func TestChampionStore_SwapSupersedes(t *testing.T) {
	store := NewChampionStore()
	ctx := context.Background()

	if err := store.Swap(ctx, champ("c1", 1000)); err != nil {
		t.Fatalf("Swap c1 failed: %v", err)
	}
	if err := store.Swap(ctx, champ("c2", 2000)); err != nil {
		t.Fatalf("Swap c2 failed: %v", err)
	}

	got, err := store.GetActive(ctx, "BTC-USD", "binance")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if got.ChampionID != "c2" {
		t.Errorf("Expected active c2, got %s", got.ChampionID)
	}

	history, err := store.History(ctx, "BTC-USD", "binance")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected history of 2, got %d", len(history))
	}

	// Exactly one active; the incumbent records its supersession time.
	activeCount := 0
	for _, c := range history {
		if c.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("Expected exactly one active champion, got %d", activeCount)
	}
	if history[0].ChampionID != "c1" || history[0].SupersededAtMs != 2000 {
		t.Errorf("Superseded champion not recorded: %+v", history[0])
	}
}

func TestChampionStore_GetActiveNotFound(t *testing.T) {
	store := NewChampionStore()

	_, err := store.GetActive(context.Background(), "ETH-USD", "binance")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestChampionStore_SwapDuplicateID(t *testing.T) {
	store := NewChampionStore()
	ctx := context.Background()

	if err := store.Swap(ctx, champ("c1", 1000)); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if err := store.Swap(ctx, champ("c1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestChampionStore_PairsAreIndependent(t *testing.T) {
	store := NewChampionStore()
	ctx := context.Background()

	a := champ("c1", 1000)
	b := champ("c2", 1000)
	b.Asset = "ETH-USD"

	if err := store.Swap(ctx, a); err != nil {
		t.Fatalf("Swap a failed: %v", err)
	}
	if err := store.Swap(ctx, b); err != nil {
		t.Fatalf("Swap b failed: %v", err)
	}

	got, err := store.GetActive(ctx, "BTC-USD", "binance")
	if err != nil || got.ChampionID != "c1" {
		t.Errorf("BTC champion disturbed by ETH swap: %v %v", got, err)
	}
}
