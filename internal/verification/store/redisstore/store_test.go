package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisAttemptStoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
}

func TestRedisAttemptStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisAttemptStoreSuite))
}

func (s *RedisAttemptStoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.store = New(client)
}

func (s *RedisAttemptStoreSuite) TestGetMissingReturnsNil() {
	rec, err := s.store.Get(context.Background(), "user@inpe.br")
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *RedisAttemptStoreSuite) TestIncrementSetsTTLOnFirstOnly() {
	ctx := context.Background()

	attempts, err := s.store.Increment(ctx, "user@inpe.br", 10*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, attempts)
	s.Equal(10*time.Minute, s.mini.TTL(attemptKey("user@inpe.br")))

	// A later increment must not extend the cycle.
	s.mini.FastForward(4 * time.Minute)
	attempts, err = s.store.Increment(ctx, "user@inpe.br", 10*time.Minute)
	s.Require().NoError(err)
	s.Equal(2, attempts)
	s.Equal(6*time.Minute, s.mini.TTL(attemptKey("user@inpe.br")))
}

func (s *RedisAttemptStoreSuite) TestIncrementRestartsAfterExpiry() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, "user@inpe.br", time.Minute)
	s.Require().NoError(err)

	s.mini.FastForward(2 * time.Minute)

	attempts, err := s.store.Increment(ctx, "user@inpe.br", time.Minute)
	s.Require().NoError(err)
	s.Equal(1, attempts, "expired cycle restarts at one")
	s.Equal(time.Minute, s.mini.TTL(attemptKey("user@inpe.br")))
}

func (s *RedisAttemptStoreSuite) TestGetReportsLiveRecord() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, "user@inpe.br", 10*time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, "user@inpe.br", 10*time.Minute)
	s.Require().NoError(err)

	rec, err := s.store.Get(ctx, "user@inpe.br")
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Equal(2, rec.Attempts)
}

func (s *RedisAttemptStoreSuite) TestExpiredRecordIsAbsent() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, "user@inpe.br", time.Minute)
	s.Require().NoError(err)

	s.mini.FastForward(time.Minute)

	rec, err := s.store.Get(ctx, "user@inpe.br")
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *RedisAttemptStoreSuite) TestResetRemovesKey() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, "user@inpe.br", time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(ctx, "user@inpe.br"))

	rec, err := s.store.Get(ctx, "user@inpe.br")
	s.Require().NoError(err)
	s.Nil(rec)
}
