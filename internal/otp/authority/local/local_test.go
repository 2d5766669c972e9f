package local_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"otpgate/internal/otp/authority"
	"otpgate/internal/otp/authority/local"
	"otpgate/internal/otp/authority/local/store/memory"
	"otpgate/pkg/requestcontext"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	codes []string
	err   error
}

func (r *recordingSender) SendCode(_ context.Context, email, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, email)
	r.codes = append(r.codes, code)
	return nil
}

func (r *recordingSender) lastCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return ""
	}
	return r.codes[len(r.codes)-1]
}

type LocalAuthoritySuite struct {
	suite.Suite
	authority *local.Authority
	sender    *recordingSender
	now       time.Time
}

func TestLocalAuthoritySuite(t *testing.T) {
	suite.Run(t, new(LocalAuthoritySuite))
}

func (s *LocalAuthoritySuite) SetupTest() {
	s.sender = &recordingSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.authority, err = local.New(memory.New(), s.sender,
		local.WithLogger(logger),
		local.WithCodeTTL(10*time.Minute),
		local.WithMaxChecks(3),
	)
	s.Require().NoError(err)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *LocalAuthoritySuite) ctx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func (s *LocalAuthoritySuite) kindOf(err error) authority.Kind {
	s.T().Helper()
	s.Require().Error(err)
	var perr *authority.ProviderError
	s.Require().True(errors.As(err, &perr))
	return perr.Kind
}

func (s *LocalAuthoritySuite) TestNewValidatesArguments() {
	_, err := local.New(nil, s.sender)
	s.Error(err)

	_, err = local.New(memory.New(), nil)
	s.Error(err)
}

func (s *LocalAuthoritySuite) TestIssueDeliversAndCheckConsumes() {
	ctx := s.ctx(s.now)

	s.Require().NoError(s.authority.Issue(ctx, "sign-in", "user@inpe.br"))
	s.Equal([]string{"user@inpe.br"}, s.sender.sent)

	s.Require().NoError(s.authority.Check(ctx, "sign-in", "user@inpe.br", s.sender.lastCode()))

	// Codes are single use.
	err := s.authority.Check(ctx, "sign-in", "user@inpe.br", s.sender.lastCode())
	s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
}

func (s *LocalAuthoritySuite) TestCheckUnknownPairIsInvalid() {
	err := s.authority.Check(s.ctx(s.now), "sign-in", "nobody@inpe.br", "000000")
	s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
}

func (s *LocalAuthoritySuite) TestCheckExpiredCodeIsInvalid() {
	s.Require().NoError(s.authority.Issue(s.ctx(s.now), "sign-in", "user@inpe.br"))

	err := s.authority.Check(s.ctx(s.now.Add(10*time.Minute)), "sign-in", "user@inpe.br", s.sender.lastCode())
	s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
}

func (s *LocalAuthoritySuite) TestWrongCodesBurnChecksThenCap() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.authority.Issue(ctx, "sign-in", "user@inpe.br"))

	wrong := "000000"
	if s.sender.lastCode() == wrong {
		wrong = "000001"
	}

	for range 3 {
		err := s.authority.Check(ctx, "sign-in", "user@inpe.br", wrong)
		s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
	}

	// Cap reached: even the right code is refused now.
	err := s.authority.Check(ctx, "sign-in", "user@inpe.br", s.sender.lastCode())
	s.Equal(authority.KindTooManyAttempts, s.kindOf(err))
}

func (s *LocalAuthoritySuite) TestReissueResetsChecksAndReplacesCode() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.authority.Issue(ctx, "sign-in", "user@inpe.br"))
	first := s.sender.lastCode()

	wrong := "000000"
	if first == wrong {
		wrong = "000001"
	}
	for range 3 {
		_ = s.authority.Check(ctx, "sign-in", "user@inpe.br", wrong)
	}

	s.Require().NoError(s.authority.Issue(ctx, "sign-in", "user@inpe.br"))

	// The old code no longer works, the new one does.
	if first != s.sender.lastCode() {
		err := s.authority.Check(ctx, "sign-in", "user@inpe.br", first)
		s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
	}
	s.NoError(s.authority.Check(ctx, "sign-in", "user@inpe.br", s.sender.lastCode()))
}

func (s *LocalAuthoritySuite) TestFlowsAreIsolated() {
	ctx := s.ctx(s.now)
	s.Require().NoError(s.authority.Issue(ctx, "sign-in", "user@inpe.br"))

	err := s.authority.Check(ctx, "sign-up", "user@inpe.br", s.sender.lastCode())
	s.Equal(authority.KindInvalidOrExpired, s.kindOf(err))
}

func (s *LocalAuthoritySuite) TestIssueSurfacesSenderFailure() {
	s.sender.err = errors.New("smtp unavailable")

	err := s.authority.Issue(s.ctx(s.now), "sign-in", "user@inpe.br")
	s.Equal(authority.KindOther, s.kindOf(err))
}
