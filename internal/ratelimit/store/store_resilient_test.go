package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/platform/circuit"
)

type flakyStore struct {
	fail  bool
	calls int
}

func (f *flakyStore) AllowN(_ context.Context, _ string, _, limit int, _ time.Duration) (*models.Result, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return &models.Result{Allowed: true, Limit: limit, Remaining: limit - 1}, nil
}

func (f *flakyStore) Reset(context.Context, string) error { return nil }

func TestResilientStore(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the primary while healthy", func(t *testing.T) {
		primary := &flakyStore{}
		s := NewResilient(primary, NewInMemory(), nil)

		res, err := s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Remaining)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("surfaces errors until the breaker opens", func(t *testing.T) {
		primary := &flakyStore{fail: true}
		s := NewResilient(primary, NewInMemory(), nil,
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		)

		_, err := s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.Error(t, err)

		res, err := s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("skips the primary between probes while open", func(t *testing.T) {
		primary := &flakyStore{fail: true}
		s := NewResilient(primary, NewInMemory(), nil,
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))),
			WithProbeInterval(time.Hour),
		)

		_, err := s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.NoError(t, err)
		calls := primary.calls

		// The first call after opening consumes the probe; later ones stay local.
		for range 3 {
			_, err = s.AllowN(ctx, "k", 1, 5, time.Minute)
			require.NoError(t, err)
		}
		assert.LessOrEqual(t, primary.calls, calls+1)
	})

	t.Run("recovers once probes succeed", func(t *testing.T) {
		primary := &flakyStore{fail: true}
		s := NewResilient(primary, NewInMemory(), nil,
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1))),
			WithProbeInterval(0),
		)

		_, err := s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.NoError(t, err)

		primary.fail = false
		_, err = s.AllowN(ctx, "k", 1, 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, s.breaker.IsOpen())
	})
}
