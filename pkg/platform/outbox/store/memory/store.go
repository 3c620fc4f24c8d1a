// Package memory provides an in-process outbox used by the in-memory ledger and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kycgate/pkg/platform/outbox"
	"kycgate/pkg/platform/sentinel"
)

// Store implements outbox.Store in memory.
type Store struct {
	mu      sync.Mutex
	seq     int64
	entries map[uuid.UUID]*outbox.Entry
}

// New creates an empty in-memory outbox.
func New() *Store {
	return &Store{entries: make(map[uuid.UUID]*outbox.Entry)}
}

func (s *Store) Append(_ context.Context, entry *outbox.Entry) error {
	if entry == nil {
		return fmt.Errorf("append outbox entry: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Seq = s.seq
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*outbox.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.IsPending() {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.IsPending() {
		return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
	}
	at := processedAt
	e.ProcessedAt = &at
	return nil
}

func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// All returns a snapshot of every entry in append order. Test helper.
func (s *Store) All() []*outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*outbox.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
