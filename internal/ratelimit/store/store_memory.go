package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/requestcontext"
)

// InMemoryStore keeps one sliding window per key in process memory.
// For more than one replica use RedisStore.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) tryConsume(cost, limit int, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	sw.cleanupExpired(now)

	if len(sw.timestamps)+cost > limit {
		resetAt = now.Add(sw.window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(sw.window)
		}
		return false, 0, resetAt
	}
	for range cost {
		sw.timestamps = append(sw.timestamps, now)
	}
	return true, limit - len(sw.timestamps), sw.timestamps[0].Add(sw.window)
}

func (sw *slidingWindow) cleanupExpired(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string]*slidingWindow)}
}

func (s *InMemoryStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error) {
	if err := validateArgs(key, cost, limit, window); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	sw, ok := s.windows[key]
	if !ok {
		sw = &slidingWindow{window: window}
		s.windows[key] = sw
	}
	sw.window = window
	allowed, remaining, resetAt := sw.tryConsume(cost, limit, now)
	if len(sw.timestamps) == 0 {
		delete(s.windows, key)
	}

	return &models.Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: models.RetryAfterSeconds(allowed, resetAt, now),
	}, nil
}

func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func validateArgs(key string, cost, limit int, window time.Duration) error {
	if key == "" {
		return fmt.Errorf("rate limit key is required")
	}
	if limit <= 0 || cost <= 0 {
		return fmt.Errorf("rate limit cost and limit must be positive")
	}
	if window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	return nil
}
