package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/platform/circuit"
)

const defaultProbeInterval = 5 * time.Second

// ResilientStore prefers a shared primary store and switches to a local
// fallback while the primary keeps failing. While open, the primary is
// probed at most once per probe interval.
type ResilientStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger

	probeInterval time.Duration
	mu            sync.Mutex
	lastProbe     time.Time
}

type ResilientOption func(*ResilientStore)

func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(s *ResilientStore) {
		if b != nil {
			s.breaker = b
		}
	}
}

func WithProbeInterval(d time.Duration) ResilientOption {
	return func(s *ResilientStore) {
		s.probeInterval = d
	}
}

func NewResilient(primary, fallback Store, logger *slog.Logger, opts ...ResilientOption) *ResilientStore {
	s := &ResilientStore{
		primary:       primary,
		fallback:      fallback,
		breaker:       circuit.New("ratelimit_store"),
		logger:        logger,
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResilientStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error) {
	if s.breaker.IsOpen() && !s.probeDue() {
		return s.fallback.AllowN(ctx, key, cost, limit, window)
	}

	result, err := s.primary.AllowN(ctx, key, cost, limit, window)
	if err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened && s.logger != nil {
			s.logger.ErrorContext(ctx, "circuit breaker opened",
				"circuit", s.breaker.Name(),
				"error", err,
			)
		}
		if useFallback {
			return s.fallback.AllowN(ctx, key, cost, limit, window)
		}
		return nil, err
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
		s.logger.InfoContext(ctx, "circuit breaker closed", "circuit", s.breaker.Name())
	}
	return result, nil
}

func (s *ResilientStore) Reset(ctx context.Context, key string) error {
	if err := s.fallback.Reset(ctx, key); err != nil {
		return err
	}
	return s.primary.Reset(ctx, key)
}

func (s *ResilientStore) probeDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastProbe) < s.probeInterval {
		return false
	}
	s.lastProbe = now
	return true
}
