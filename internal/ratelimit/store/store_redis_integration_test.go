//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/ratelimit/store"
	"kycgate/pkg/requestcontext"
	"kycgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func (s *RedisStoreSuite) TestAllowsUpToLimit() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.store.AllowN(ctx, "verify:v1", 1, 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.AllowN(ctx, "verify:v1", 1, 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)
	s.LessOrEqual(res.RetryAfter, 60)
}

func (s *RedisStoreSuite) TestWindowSlides() {
	base := time.Now()
	at := func(offset time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), base.Add(offset))
	}

	_, err := s.store.AllowN(at(0), "k", 1, 1, 2*time.Second)
	s.Require().NoError(err)

	res, err := s.store.AllowN(at(time.Second), "k", 1, 1, 2*time.Second)
	s.Require().NoError(err)
	s.False(res.Allowed)

	res, err = s.store.AllowN(at(2*time.Second+time.Millisecond), "k", 1, 1, 2*time.Second)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.AllowN(ctx, "k", 1, 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "k"))

	res, err := s.store.AllowN(ctx, "k", 1, 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestConcurrentCallersNeverExceedLimit() {
	ctx := context.Background()
	const limit = 10

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.AllowN(ctx, "verify:burst", 1, limit, time.Hour)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(limit), allowed.Load())
}
