package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kycgate/internal/consent/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore stores consent records in memory, one map per holder.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[domain.Identity]map[domain.Identity]models.Record
}

// NewInMemory constructs an empty in-memory consent store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{consents: make(map[domain.Identity]map[domain.Identity]models.Record)}
}

func (s *InMemoryStore) Find(_ context.Context, scope models.Scope) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.consents[scope.Holder][scope.Verifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) Put(_ context.Context, record *models.Record) error {
	if record == nil || record.Holder.IsNil() || record.Verifier.IsNil() {
		return fmt.Errorf("put consent: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byVerifier, ok := s.consents[record.Holder]
	if !ok {
		byVerifier = make(map[domain.Identity]models.Record)
		s.consents[record.Holder] = byVerifier
	}
	byVerifier[record.Verifier] = *record
	return nil
}

func (s *InMemoryStore) ListByHolder(_ context.Context, holder domain.Identity) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVerifier := s.consents[holder]
	records := make([]*models.Record, 0, len(byVerifier))
	for _, r := range byVerifier {
		record := r
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Verifier < records[j].Verifier
	})
	return records, nil
}
