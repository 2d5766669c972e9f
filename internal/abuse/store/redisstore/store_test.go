package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"otpgate/internal/abuse/models"
)

type RedisStoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupTest() {
	mini, err := miniredis.Run()
	s.Require().NoError(err)
	s.mini = mini
	s.store = New(redis.NewClient(&redis.Options{Addr: mini.Addr()}))
}

func (s *RedisStoreSuite) TearDownTest() {
	s.mini.Close()
}

func (s *RedisStoreSuite) key(route, identity, ip string) models.Key {
	return models.Key{Route: route, Identity: identity, ClientIP: ip}
}

func (s *RedisStoreSuite) TestIncrementArmsExpiryOnce() {
	ctx := context.Background()
	key := s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9")

	count, err := s.store.Increment(ctx, key, 90*time.Second)
	s.Require().NoError(err)
	s.Equal(1, count)

	// Second hit must not extend the window.
	s.mini.FastForward(30 * time.Second)
	count, err = s.store.Increment(ctx, key, 90*time.Second)
	s.Require().NoError(err)
	s.Equal(2, count)

	got, remaining, err := s.store.Peek(ctx, key)
	s.Require().NoError(err)
	s.Equal(2, got)
	s.LessOrEqual(remaining, 60*time.Second)
	s.Positive(remaining)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	key := s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9")

	_, err := s.store.Increment(ctx, key, time.Minute)
	s.Require().NoError(err)

	s.mini.FastForward(61 * time.Second)

	count, remaining, err := s.store.Peek(ctx, key)
	s.Require().NoError(err)
	s.Zero(count)
	s.Zero(remaining)

	count, err = s.store.Increment(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count, "expired key restarts at 1")
}

func (s *RedisStoreSuite) TestClearIdentity() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, s.key("sign-in-verify-otp-lockout", "user@inpe.br", "198.51.100.1"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, s.key("sign-in-send-otp", "other@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.ClearIdentity(ctx, "user@inpe.br"))

	count, _, err := s.store.Peek(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"))
	s.Require().NoError(err)
	s.Zero(count)

	count, _, err = s.store.Peek(ctx, s.key("sign-in-send-otp", "other@inpe.br", "203.0.113.9"))
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RedisStoreSuite) TestClearIdentityTreatsGlobCharactersLiterally() {
	ctx := context.Background()

	// '*' is a legal email local part and must not act as a wildcard.
	_, err := s.store.Increment(ctx, s.key("sign-in-send-otp", "*@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.ClearIdentity(ctx, "*@inpe.br"))

	count, _, err := s.store.Peek(ctx, s.key("sign-in-send-otp", "*@inpe.br", "203.0.113.9"))
	s.Require().NoError(err)
	s.Zero(count)

	count, _, err = s.store.Peek(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"))
	s.Require().NoError(err)
	s.Equal(1, count, "only the literal identity is cleared")

	windows, err := s.store.ListIdentity(ctx, "?ser@inpe.br")
	s.Require().NoError(err)
	s.Empty(windows, "'?' must not match a single character")
}

func (s *RedisStoreSuite) TestListIdentity() {
	ctx := context.Background()
	_, err := s.store.Increment(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(ctx, s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9"), time.Minute)
	s.Require().NoError(err)

	windows, err := s.store.ListIdentity(ctx, "user@inpe.br")
	s.Require().NoError(err)
	s.Require().Len(windows, 1)
	s.Equal("sign-in-send-otp", windows[0].Route)
	s.Equal("203.0.113.9", windows[0].ClientIP)
	s.Equal(2, windows[0].Count)
	s.Positive(windows[0].RetryAfterSeconds)
}
