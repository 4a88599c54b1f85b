package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// CampaignResultStore is an in-memory implementation of storage.CampaignResultStore.
type CampaignResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CampaignResult // keyed by result_id
}

// NewCampaignResultStore creates a new in-memory campaign result store.
func NewCampaignResultStore() *CampaignResultStore {
	return &CampaignResultStore{
		data: make(map[string]*domain.CampaignResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *CampaignResultStore) Insert(_ context.Context, r *domain.CampaignResult) error {
	if r == nil || r.ResultID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ResultID] = &copy
	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *CampaignResultStore) GetByID(_ context.Context, resultID string) (*domain.CampaignResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[resultID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByCampaignID retrieves all results for a campaign, ordered by created_at ASC.
func (s *CampaignResultStore) GetByCampaignID(_ context.Context, campaignID string) ([]*domain.CampaignResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CampaignResult
	for _, r := range s.data {
		if r.CampaignID == campaignID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAtMs == result[j].CreatedAtMs {
			return result[i].ResultID < result[j].ResultID
		}
		return result[i].CreatedAtMs < result[j].CreatedAtMs
	})
	return result, nil
}

var _ storage.CampaignResultStore = (*CampaignResultStore)(nil)
