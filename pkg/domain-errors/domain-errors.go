// Package domainerrors defines transport-agnostic error codes for the
// OTP guard domain. Services return these; the HTTP layer translates
// them into status codes and the shared response envelope.
package domainerrors

import "errors"

// Code represents a domain error category independent of transport.
type Code string

const (
	// CodeNotFound: the claimed email has no matching account.
	CodeNotFound Code = "not_found"
	// CodeInvalidCode: the submitted OTP was wrong or expired; the
	// caller may retry until the attempt ceiling.
	CodeInvalidCode Code = "invalid_code"
	// CodeRateLimited: a send/probe budget is exhausted.
	CodeRateLimited Code = "rate_limited"
	// CodeLockedOut: verification is blocked until a timer elapses or,
	// for reset-flow policies, until the client restarts from send-otp.
	CodeLockedOut Code = "locked_out"
	// CodeProviderFailure: the external OTP authority failed outside
	// its expected outcomes. Fatal, never retried locally.
	CodeProviderFailure Code = "provider_failure"
	CodeInvalidInput    Code = "invalid_input"
	CodeUnauthorized    Code = "unauthorized"
	CodeInternal        Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// Field names the offending request field, RetryAfter carries the
// number of seconds a limited caller must wait, and ResetFlow marks
// the sign-in variant that forces the client back to send-otp.
type Error struct {
	Code       Code
	Message    string
	Field      string
	RetryAfter int
	ResetFlow  bool
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// WithField annotates the error with the request field it refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithRetryAfter annotates the error with a retry hint in seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	if seconds < 0 {
		seconds = 0
	}
	e.RetryAfter = seconds
	return e
}

// WithResetFlow marks the error as requiring a full flow restart.
func (e *Error) WithResetFlow() *Error {
	e.ResetFlow = true
	return e
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, its code, field and
// retry metadata are preserved.
func Wrap(err error, code Code, msg string) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Code:       existing.Code,
			Message:    msg,
			Field:      existing.Field,
			RetryAfter: existing.RetryAfter,
			ResetFlow:  existing.ResetFlow,
			Err:        err,
		}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As extracts the domain error from an error chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
