// Package tracer provides a lightweight tracing abstraction for the
// OTP guard engine.
//
// The interface keeps the guard decoupled from OpenTelemetry APIs:
// NoopTracer for tests, OTelTracer for production.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent
// use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashEmail returns a short SHA-256 hash of the email for safe trace
// correlation without exposing the address itself.
func HashEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the guard engine.
const (
	SpanSendCode   = "otp.send"
	SpanVerifyCode = "otp.verify"
)

// Attribute keys used by the guard engine.
const (
	AttrFlow       = "otp.flow"
	AttrEmailHash  = "otp.email_hash"
	AttrOutcome    = "otp.outcome"
	AttrRetryAfter = "otp.retry_after_s"
)

// Event names used by the guard engine.
const (
	EventLockoutArmed  = "lockout.armed"
	EventFlowReset     = "flow.reset"
	EventLimitsCleared = "ratelimits.cleared"
)
