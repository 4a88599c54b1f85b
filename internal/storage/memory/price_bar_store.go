// Package memory provides in-memory store implementations used by unit
// tests and single-process runs. All stores are safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[string][]domain.PriceBar // keyed by series key, sorted by timestamp
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[string][]domain.PriceBar),
	}
}

func seriesKey(asset, venue, interval string) string {
	return fmt.Sprintf("%s|%s|%s", asset, venue, interval)
}

// InsertBulk adds multiple bars atomically. Fails entire batch on
// duplicate (asset, venue, interval, timestamp_ms).
func (s *PriceBarStore) InsertBulk(_ context.Context, asset, venue, interval string, bars []domain.PriceBar) error {
	if asset == "" || venue == "" || interval == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(asset, venue, interval)
	existing := make(map[int64]struct{}, len(s.data[key]))
	for _, b := range s.data[key] {
		existing[b.TimestampMs] = struct{}{}
	}

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if _, exists := existing[b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.TimestampMs] = struct{}{}
	}

	series := append(s.data[key], bars...)
	sort.Slice(series, func(i, j int) bool {
		return series[i].TimestampMs < series[j].TimestampMs
	})
	s.data[key] = series
	return nil
}

// GetSeries retrieves bars within [startMs, endMs] (inclusive), ordered
// by timestamp ASC.
func (s *PriceBarStore) GetSeries(_ context.Context, asset, venue, interval string, startMs, endMs int64) ([]domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PriceBar
	for _, b := range s.data[seriesKey(asset, venue, interval)] {
		if b.TimestampMs >= startMs && b.TimestampMs <= endMs {
			result = append(result, b)
		}
	}
	return result, nil
}

var _ storage.PriceBarStore = (*PriceBarStore)(nil)
