package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/requestcontext"
)

func TestInMemoryStore_AllowN(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), base.Add(offset))
	}

	t.Run("allows up to the limit then denies", func(t *testing.T) {
		s := NewInMemory()
		for i := range 3 {
			res, err := s.AllowN(at(0), "verify:v1", 1, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2-i, res.Remaining)
		}

		res, err := s.AllowN(at(10*time.Second), "verify:v1", 1, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.Equal(t, base.Add(time.Minute), res.ResetAt)
		assert.Equal(t, 50, res.RetryAfter)
	})

	t.Run("window slides", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.AllowN(at(0), "k", 1, 1, time.Minute)
		require.NoError(t, err)

		res, err := s.AllowN(at(30*time.Second), "k", 1, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = s.AllowN(at(time.Minute+time.Millisecond), "k", 1, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("denied calls consume nothing", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.AllowN(at(0), "k", 1, 2, time.Minute)
		require.NoError(t, err)

		res, err := s.AllowN(at(0), "k", 2, 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = s.AllowN(at(0), "k", 1, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.AllowN(at(0), "a", 1, 1, time.Minute)
		require.NoError(t, err)

		res, err := s.AllowN(at(0), "b", 1, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.AllowN(at(0), "k", 1, 1, time.Minute)
		require.NoError(t, err)
		require.NoError(t, s.Reset(context.Background(), "k"))

		res, err := s.AllowN(at(0), "k", 1, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.AllowN(at(0), "", 1, 1, time.Minute)
		assert.Error(t, err)
		_, err = s.AllowN(at(0), "k", 1, 0, time.Minute)
		assert.Error(t, err)
		_, err = s.AllowN(at(0), "k", 1, 1, 0)
		assert.Error(t, err)
	})
}

func TestInMemoryStore_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	const limit = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.AllowN(ctx, "verify:v1", 1, limit, time.Hour)
			if err != nil || !res.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}
