package memory

import (
	"context"
	"errors"
	"testing"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

func bar(ts int64, close float64) domain.PriceBar {
	return domain.PriceBar{TimestampMs: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestPriceBarStore_InsertAndGetSeries(t *testing.T) {
	store := NewPriceBarStore()
	ctx := context.Background()

	bars := []domain.PriceBar{bar(3000, 103), bar(1000, 101), bar(2000, 102)}
	if err := store.InsertBulk(ctx, "BTC-USD", "binance", "1d", bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetSeries(ctx, "BTC-USD", "binance", "1d", 1000, 2000)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bars in range, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 || got[1].TimestampMs != 2000 {
		t.Errorf("Bars not ordered by timestamp: %+v", got)
	}
}

func TestPriceBarStore_DuplicateTimestamp(t *testing.T) {
	store := NewPriceBarStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "BTC-USD", "binance", "1d", []domain.PriceBar{bar(1000, 100)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.InsertBulk(ctx, "BTC-USD", "binance", "1d", []domain.PriceBar{bar(1000, 200)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPriceBarStore_SeriesAreIndependent(t *testing.T) {
	store := NewPriceBarStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "BTC-USD", "binance", "1d", []domain.PriceBar{bar(1000, 100)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "BTC-USD", "binance", "1h", []domain.PriceBar{bar(1000, 100)}); err != nil {
		t.Errorf("Same timestamp on another interval must not collide: %v", err)
	}
}

func TestPriceBarStore_InvalidInput(t *testing.T) {
	store := NewPriceBarStore()

	err := store.InsertBulk(context.Background(), "", "binance", "1d", []domain.PriceBar{bar(1, 1)})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
