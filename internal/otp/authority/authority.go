// Package authority defines the contract with the system that actually
// issues and checks one-time codes. The guards treat it as a black box:
// they never see the code's value, expiry, or internal counters, only
// the classified outcome of a check.
package authority

//go:generate mockgen -source=authority.go -destination=mocks/mocks.go -package=mocks Authority

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed check. The guards key their throttling
// decisions off these three buckets and nothing else.
type Kind string

const (
	// KindInvalidOrExpired covers wrong codes and codes past their
	// validity, indistinguishably.
	KindInvalidOrExpired Kind = "invalid_or_expired"
	// KindTooManyAttempts is the authority's own attempt cap, separate
	// from the gateway's ledger.
	KindTooManyAttempts Kind = "too_many_attempts"
	// KindOther is any other failure (transport, internal).
	KindOther Kind = "other"
)

// ProviderError is a classified check failure.
type ProviderError struct {
	Kind Kind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("otp authority: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("otp authority: %s", e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify extracts the provider error kind, defaulting to KindOther
// for unclassified failures.
func Classify(err error) Kind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindOther
}

// Authority issues codes and checks submissions. Check returns nil on
// a correct code and a *ProviderError otherwise.
type Authority interface {
	Issue(ctx context.Context, flow, email string) error
	Check(ctx context.Context, flow, email, code string) error
}
