// Package requestcontext carries request-scoped values (time, client
// metadata) through context so services and stores stay free of HTTP
// concerns. All operations within a single request observe the same
// "now" timestamp, which keeps window arithmetic and audit timestamps
// consistent.
package requestcontext

import (
	"context"
	"time"
)

type contextKeyTime struct{}

type contextKeyClientMetadata struct{}

type contextKeyRequestID struct{}

// ClientMetadata describes the best-effort client identity attached to
// a request by the metadata middleware.
type ClientMetadata struct {
	IP        string
	UserAgent string
	Browser   string
	OS        string
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request
// middleware and by tests that need deterministic window arithmetic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyTime{}, t)
}

// WithClientMetadata attaches client metadata to the context.
func WithClientMetadata(ctx context.Context, meta ClientMetadata) context.Context {
	return context.WithValue(ctx, contextKeyClientMetadata{}, meta)
}

// Metadata retrieves the client metadata from context. The zero value
// with IP "unknown" is returned when the middleware did not run.
func Metadata(ctx context.Context) ClientMetadata {
	if m, ok := ctx.Value(contextKeyClientMetadata{}).(ClientMetadata); ok {
		return m
	}
	return ClientMetadata{IP: "unknown"}
}

// ClientIP is a convenience accessor for the extracted client IP.
func ClientIP(ctx context.Context) string {
	return Metadata(ctx).IP
}

// WithRequestID attaches the request correlation ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, id)
}

// RequestID retrieves the request correlation ID, or "" when the
// middleware did not run.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return id
	}
	return ""
}
