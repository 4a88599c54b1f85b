package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// ChampionStore is an in-memory implementation of storage.ChampionStore.
type ChampionStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Champion // keyed by asset|venue, insertion order
}

// NewChampionStore creates a new in-memory champion store.
func NewChampionStore() *ChampionStore {
	return &ChampionStore{
		data: make(map[string][]*domain.Champion),
	}
}

func pairKey(asset, venue string) string {
	return asset + "|" + venue
}

// Swap atomically deactivates the current active champion and inserts
// the new one as active. The single mutex makes the two writes
// indivisible; readers never observe zero or two active champions.
func (s *ChampionStore) Swap(_ context.Context, c *domain.Champion) error {
	if c == nil || c.ChampionID == "" || c.Asset == "" || c.Venue == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(c.Asset, c.Venue)
	for _, existing := range s.data[key] {
		if existing.ChampionID == c.ChampionID {
			return storage.ErrDuplicateKey
		}
	}

	for _, existing := range s.data[key] {
		if existing.Active {
			existing.Active = false
			existing.SupersededAtMs = c.ActivatedAtMs
		}
	}

	copy := *c
	copy.Active = true
	copy.SupersededAtMs = 0
	s.data[key] = append(s.data[key], &copy)
	return nil
}

// GetActive retrieves the active champion. Returns ErrNotFound when no
// champion has ever been promoted for the pair.
func (s *ChampionStore) GetActive(_ context.Context, asset, venue string) (*domain.Champion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data[pairKey(asset, venue)] {
		if c.Active {
			copy := *c
			return &copy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// History retrieves all champions for the pair, ordered by activated_at ASC.
func (s *ChampionStore) History(_ context.Context, asset, venue string) ([]*domain.Champion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Champion
	for _, c := range s.data[pairKey(asset, venue)] {
		copy := *c
		result = append(result, &copy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ActivatedAtMs < result[j].ActivatedAtMs
	})
	return result, nil
}

var _ storage.ChampionStore = (*ChampionStore)(nil)
