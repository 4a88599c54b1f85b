package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[string][]domain.EquityPoint // keyed by run_id, sorted by timestamp
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[string][]domain.EquityPoint),
	}
}

// InsertBulk adds the run's points atomically. Fails entire batch on
// duplicate (run_id, timestamp_ms).
func (s *EquityCurveStore) InsertBulk(_ context.Context, runID string, points []domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[int64]struct{}, len(s.data[runID]))
	for _, p := range s.data[runID] {
		existing[p.TimestampMs] = struct{}{}
	}

	batchKeys := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, exists := existing[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.TimestampMs] = struct{}{}
	}

	curve := append(s.data[runID], points...)
	sort.Slice(curve, func(i, j int) bool {
		return curve[i].TimestampMs < curve[j].TimestampMs
	})
	s.data[runID] = curve
	return nil
}

// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(_ context.Context, runID string) ([]domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	curve := s.data[runID]
	result := make([]domain.EquityPoint, len(curve))
	copy(result, curve)
	return result, nil
}

var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)
