package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"otpgate/internal/abuse/models"
	"otpgate/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) ctx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func (s *MemoryStoreSuite) key(route, identity, ip string) models.Key {
	return models.Key{Route: route, Identity: identity, ClientIP: ip}
}

func (s *MemoryStoreSuite) TestIncrementCountsWithinWindow() {
	key := s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9")

	for i := 1; i <= 3; i++ {
		count, err := s.store.Increment(s.ctx(s.now), key, time.Minute)
		s.Require().NoError(err)
		s.Equal(i, count)
	}

	count, remaining, err := s.store.Peek(s.ctx(s.now.Add(30*time.Second)), key)
	s.Require().NoError(err)
	s.Equal(3, count)
	s.Equal(30*time.Second, remaining)
}

func (s *MemoryStoreSuite) TestWindowResetsAfterExpiry() {
	key := s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9")

	_, err := s.store.Increment(s.ctx(s.now), key, time.Minute)
	s.Require().NoError(err)

	// A guess after the window elapsed starts a fresh window at 1.
	count, err := s.store.Increment(s.ctx(s.now.Add(61*time.Second)), key, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *MemoryStoreSuite) TestPeekReadsExpiredAsAbsent() {
	key := s.key("sign-up-verify-otp-lockout", "user@inpe.br", "203.0.113.9")

	_, err := s.store.Increment(s.ctx(s.now), key, time.Minute)
	s.Require().NoError(err)

	count, remaining, err := s.store.Peek(s.ctx(s.now.Add(2*time.Minute)), key)
	s.Require().NoError(err)
	s.Zero(count)
	s.Zero(remaining)
}

func (s *MemoryStoreSuite) TestPeekIsIdempotent() {
	key := s.key("sign-in-send-otp", "user@inpe.br", "203.0.113.9")
	_, err := s.store.Increment(s.ctx(s.now), key, time.Minute)
	s.Require().NoError(err)

	for range 5 {
		count, _, err := s.store.Peek(s.ctx(s.now), key)
		s.Require().NoError(err)
		s.Equal(1, count)
	}
}

func (s *MemoryStoreSuite) TestClearIdentityRemovesAllRoutes() {
	ctx := s.ctx(s.now)
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

	count, _, err = s.store.Peek(ctx, s.key("sign-in-verify-otp-lockout", "user@inpe.br", "198.51.100.1"))
	s.Require().NoError(err)
	s.Zero(count)

	// Other identities are untouched.
	count, _, err = s.store.Peek(ctx, s.key("sign-in-send-otp", "other@inpe.br", "203.0.113.9"))
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *MemoryStoreSuite) TestListIdentitySkipsExpired() {
	_, err := s.store.Increment(s.ctx(s.now), s.key("a", "user@inpe.br", "ip"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(s.ctx(s.now), s.key("b", "user@inpe.br", "ip"), time.Hour)
	s.Require().NoError(err)

	windows, err := s.store.ListIdentity(s.ctx(s.now.Add(2*time.Minute)), "user@inpe.br")
	s.Require().NoError(err)
	s.Require().Len(windows, 1)
	s.Equal("b", windows[0].Route)
	s.Equal(58*60, windows[0].RetryAfterSeconds)
}

func (s *MemoryStoreSuite) TestPurgeExpired() {
	_, err := s.store.Increment(s.ctx(s.now), s.key("a", "x", "ip"), time.Minute)
	s.Require().NoError(err)
	_, err = s.store.Increment(s.ctx(s.now), s.key("b", "y", "ip"), time.Hour)
	s.Require().NoError(err)

	purged, err := s.store.PurgeExpired(s.ctx(s.now.Add(30 * time.Minute)))
	s.Require().NoError(err)
	s.Equal(1, purged)
}

// Two concurrent requests must not both observe a pre-increment count;
// the counter must equal the exact number of increments issued.
func (s *MemoryStoreSuite) TestConcurrentIncrementsLoseNothing() {
	key := s.key("sign-in-verify-otp", "user@inpe.br", "203.0.113.9")
	ctx := s.ctx(s.now)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := s.store.Increment(ctx, key, time.Minute)
			s.NoError(err)
		}()
	}
	wg.Wait()

	count, _, err := s.store.Peek(ctx, key)
	s.Require().NoError(err)
	s.Equal(workers, count)
}
