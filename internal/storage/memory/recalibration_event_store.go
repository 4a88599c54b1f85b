package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// RecalibrationEventStore is an in-memory implementation of
// storage.RecalibrationEventStore.
type RecalibrationEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RecalibrationEvent // keyed by event_id
}

// NewRecalibrationEventStore creates a new in-memory recalibration event store.
func NewRecalibrationEventStore() *RecalibrationEventStore {
	return &RecalibrationEventStore{
		data: make(map[string]*domain.RecalibrationEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *RecalibrationEventStore) Insert(_ context.Context, e *domain.RecalibrationEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.EventID] = &copy
	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *RecalibrationEventStore) GetByID(_ context.Context, eventID string) (*domain.RecalibrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[eventID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *e
	return &copy, nil
}

// GetPending retrieves unconsumed events for the pair, ordered by
// triggered_at ASC.
func (s *RecalibrationEventStore) GetPending(_ context.Context, asset, venue string) ([]*domain.RecalibrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RecalibrationEvent
	for _, e := range s.data {
		if e.Asset == asset && e.Venue == venue && !e.Consumed {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TriggeredAtMs < result[j].TriggeredAtMs
	})
	return result, nil
}

// MarkConsumed flips the consumed flag exactly once.
func (s *RecalibrationEventStore) MarkConsumed(_ context.Context, eventID string, consumedAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[eventID]
	if !exists {
		return storage.ErrNotFound
	}
	if e.Consumed {
		return storage.ErrAlreadyConsumed
	}

	e.Consumed = true
	e.ConsumedAtMs = consumedAtMs
	return nil
}

var _ storage.RecalibrationEventStore = (*RecalibrationEventStore)(nil)
