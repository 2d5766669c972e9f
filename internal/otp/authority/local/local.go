// Package local is a self-hosted code authority for deployments that
// do not delegate to an external identity provider. Codes are single
// use, bcrypt-hashed at rest, and carry their own check cap on top of
// whatever the gateway's ledger enforces.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"otpgate/internal/otp/authority"
	"otpgate/pkg/otpcode"
	"otpgate/pkg/requestcontext"
)

// CodeRecord is one outstanding code for a (flow, email) pair. Issuing
// again replaces the record and resets Checks.
type CodeRecord struct {
	Flow      string
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Checks    int
}

// Expired reports whether the code is past its validity as of now.
func (r CodeRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// CodeStore persists outstanding codes; absence is a nil record, not
// an error.
type CodeStore interface {
	Put(ctx context.Context, rec CodeRecord) error
	Get(ctx context.Context, flow, email string) (*CodeRecord, error)
	IncrementChecks(ctx context.Context, flow, email string) (int, error)
	Delete(ctx context.Context, flow, email string) error
	PurgeExpired(ctx context.Context) (int, error)
}

// Sender delivers the plaintext code to the recipient.
type Sender interface {
	SendCode(ctx context.Context, email, code string) error
}

type Option func(*Authority)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(a *Authority) {
		if ttl > 0 {
			a.codeTTL = ttl
		}
	}
}

func WithMaxChecks(max int) Option {
	return func(a *Authority) {
		if max > 0 {
			a.maxChecks = max
		}
	}
}

type Authority struct {
	store     CodeStore
	sender    Sender
	logger    *slog.Logger
	codeTTL   time.Duration
	maxChecks int
}

func New(store CodeStore, sender Sender, opts ...Option) (*Authority, error) {
	if store == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("code sender is required")
	}

	auth := &Authority{
		store:     store,
		sender:    sender,
		logger:    slog.Default(),
		codeTTL:   10 * time.Minute,
		maxChecks: 5,
	}
	for _, opt := range opts {
		opt(auth)
	}
	return auth, nil
}

// Issue generates a fresh code, replaces any outstanding one for the
// pair, and delivers it. Replacing resets the record's check count.
func (a *Authority) Issue(ctx context.Context, flow, email string) error {
	code, err := otpcode.Generate()
	if err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}
	hash, err := otpcode.Hash(code)
	if err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}

	rec := CodeRecord{
		Flow:      flow,
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: requestcontext.Now(ctx).Add(a.codeTTL),
	}
	if err := a.store.Put(ctx, rec); err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}

	if err := a.sender.SendCode(ctx, email, code); err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}
	return nil
}

// Check verifies a submission against the outstanding code. A correct
// code consumes the record; a wrong one burns a check. Absent, expired
// and wrong codes are indistinguishable to the caller.
func (a *Authority) Check(ctx context.Context, flow, email, code string) error {
	rec, err := a.store.Get(ctx, flow, email)
	if err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}
	if rec == nil || rec.Expired(requestcontext.Now(ctx)) {
		return &authority.ProviderError{Kind: authority.KindInvalidOrExpired}
	}
	if rec.Checks >= a.maxChecks {
		return &authority.ProviderError{Kind: authority.KindTooManyAttempts}
	}

	ok, err := otpcode.Verify(code, rec.CodeHash)
	if err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}
	if !ok {
		if _, err := a.store.IncrementChecks(ctx, flow, email); err != nil {
			a.logger.Error("failed to record burned check", "error", err)
		}
		return &authority.ProviderError{Kind: authority.KindInvalidOrExpired}
	}

	if err := a.store.Delete(ctx, flow, email); err != nil {
		return &authority.ProviderError{Kind: authority.KindOther, Err: err}
	}
	return nil
}
