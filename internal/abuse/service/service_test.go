package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"otpgate/internal/abuse/store/memory"
	"otpgate/pkg/requestcontext"
)

type RateLimitServiceSuite struct {
	suite.Suite
	service *Service
	now     time.Time
}

func TestRateLimitServiceSuite(t *testing.T) {
	suite.Run(t, new(RateLimitServiceSuite))
}

func (s *RateLimitServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(memory.New(), WithLogger(logger))
	s.Require().NoError(err)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RateLimitServiceSuite) ctx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func (s *RateLimitServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
	s.Contains(err.Error(), "rate limit store is required")
}

func (s *RateLimitServiceSuite) TestLimitedOnlyAtLimitWithinWindow() {
	ctx := s.ctx(s.now)
	const route = "sign-in-send-otp"

	limited, err := s.service.IsLimited(ctx, route, "user@inpe.br", "203.0.113.9", 2, time.Minute)
	s.Require().NoError(err)
	s.False(limited, "fresh key is not limited")

	s.Require().NoError(s.service.Record(ctx, route, "user@inpe.br", "203.0.113.9", time.Minute))
	limited, err = s.service.IsLimited(ctx, route, "user@inpe.br", "203.0.113.9", 2, time.Minute)
	s.Require().NoError(err)
	s.False(limited, "count below limit")

	s.Require().NoError(s.service.Record(ctx, route, "user@inpe.br", "203.0.113.9", time.Minute))
	limited, err = s.service.IsLimited(ctx, route, "user@inpe.br", "203.0.113.9", 2, time.Minute)
	s.Require().NoError(err)
	s.True(limited, "count at limit within window")

	// Once the window elapses the record is logically absent.
	limited, err = s.service.IsLimited(s.ctx(s.now.Add(2*time.Minute)), route, "user@inpe.br", "203.0.113.9", 2, time.Minute)
	s.Require().NoError(err)
	s.False(limited)
}

func (s *RateLimitServiceSuite) TestStatusRetryAfterRoundsUp() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.service.Record(ctx, "sign-in-send-otp", "user@inpe.br", "ip", 90*time.Second))

	status, err := s.service.Status(s.ctx(s.now.Add(500*time.Millisecond)), "sign-in-send-otp", "user@inpe.br", "ip", 1, 90*time.Second)
	s.Require().NoError(err)
	s.True(status.Limited)
	s.Equal(90, status.RetryAfterSeconds, "partial seconds round up so the wait is never understated")
}

func (s *RateLimitServiceSuite) TestStatusIsReadOnly() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.service.Record(ctx, "route", "user@inpe.br", "ip", time.Minute))

	for range 10 {
		_, err := s.service.Status(ctx, "route", "user@inpe.br", "ip", 5, time.Minute)
		s.Require().NoError(err)
	}

	status, err := s.service.Status(ctx, "route", "user@inpe.br", "ip", 5, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, status.Count)
}

func (s *RateLimitServiceSuite) TestClearForIdentityForgivesAllRoutes() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.service.Record(ctx, "sign-in-send-otp", "user@inpe.br", "ip", time.Minute))
	s.Require().NoError(s.service.Record(ctx, "sign-in-send-otp-cooldown", "user@inpe.br", "ip", 90*time.Second))

	s.Require().NoError(s.service.ClearForIdentity(ctx, "user@inpe.br"))

	for _, route := range []string{"sign-in-send-otp", "sign-in-send-otp-cooldown"} {
		status, err := s.service.Status(ctx, route, "user@inpe.br", "ip", 1, time.Minute)
		s.Require().NoError(err)
		s.False(status.Limited)
		s.Zero(status.Count)
	}
}
