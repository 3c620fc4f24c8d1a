package store

import (
	"context"
	"fmt"
	"sync"

	"kycgate/internal/credential/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore keeps credential records in a map keyed by holder.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.Identity]models.Record
}

// NewInMemory constructs an empty in-memory credential store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.Identity]models.Record)}
}

func (s *InMemoryStore) FindByHolder(_ context.Context, holder domain.Identity) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[holder]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Put(_ context.Context, record *models.Record) error {
	if record == nil || record.Holder.IsNil() {
		return fmt.Errorf("put credential: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Holder] = *record
	return nil
}
