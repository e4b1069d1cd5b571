//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/throttle/store"
	"gatekeeper/pkg/testutil/containers"
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
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIncrementCounts() {
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		count, err := s.store.Increment(ctx, "gate-a-1", time.Minute)
		s.Require().NoError(err)
		s.Equal(want, count)
	}
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	_, err := s.store.Increment(ctx, "gate-a-1", time.Minute)
	s.Require().NoError(err)

	count, err := s.store.Increment(ctx, "gate-b-1", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()

	_, err := s.store.Increment(ctx, "gate-a-1", 500*time.Millisecond)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, "gate-a-1", 500*time.Millisecond)
	s.Require().NoError(err)

	time.Sleep(700 * time.Millisecond)

	count, err := s.store.Increment(ctx, "gate-a-1", 500*time.Millisecond)
	s.Require().NoError(err)
	s.Equal(int64(1), count, "the key must expire with its window")
}

func (s *RedisStoreSuite) TestConcurrentIncrementsNeverLoseCounts() {
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Increment(ctx, "gate-a-1", time.Minute)
			s.NoError(err)
		}()
	}
	wg.Wait()

	count, err := s.store.Increment(ctx, "gate-a-1", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(workers+1), count)
}
