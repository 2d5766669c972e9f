// Package service implements the keyed fixed-window rate limiter used
// by the OTP guards. A window is limited only while its count has
// reached the caller's limit and its window has not elapsed; expired
// windows are logically absent.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"otpgate/internal/abuse/metrics"
	"otpgate/internal/abuse/models"
	dErrors "otpgate/pkg/domain-errors"
)

// Store is the persistence contract. Increment must be a single atomic
// upsert-increment so concurrent requests for the same key cannot both
// observe a stale count.
type Store interface {
	Increment(ctx context.Context, key models.Key, window time.Duration) (int, error)
	Peek(ctx context.Context, key models.Key) (count int, remaining time.Duration, err error)
	ClearIdentity(ctx context.Context, identity string) error
	ListIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error)
	PurgeExpired(ctx context.Context) (int, error)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}

	svc := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsLimited reports whether the current window's count has reached the
// limit. Reads never mutate state.
func (s *Service) IsLimited(ctx context.Context, route, identity, ip string, limit int, window time.Duration) (bool, error) {
	status, err := s.Status(ctx, route, identity, ip, limit, window)
	if err != nil {
		return false, err
	}
	return status.Limited, nil
}

// Status returns the read-only window state. RetryAfterSeconds never
// understates the remaining wait: partial seconds round up.
func (s *Service) Status(ctx context.Context, route, identity, ip string, limit int, window time.Duration) (models.Status, error) {
	key := models.Key{Route: route, Identity: identity, ClientIP: ip}
	count, remaining, err := s.store.Peek(ctx, key)
	if err != nil {
		s.countStoreFailure("peek")
		return models.Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read rate limit window")
	}

	status := models.Status{
		Count:             count,
		Limited:           limit > 0 && count >= limit && remaining > 0,
		RetryAfterSeconds: ceilSeconds(remaining),
	}
	if status.Limited && s.metrics != nil {
		s.metrics.LimitedTotal.WithLabelValues(route).Inc()
	}
	return status, nil
}

// Record increments the window counter, creating it if absent or
// expired. Windows for a given route must always be recorded with a
// consistent duration.
func (s *Service) Record(ctx context.Context, route, identity, ip string, window time.Duration) error {
	key := models.Key{Route: route, Identity: identity, ClientIP: ip}
	if _, err := s.store.Increment(ctx, key, window); err != nil {
		s.countStoreFailure("increment")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rate limit")
	}
	if s.metrics != nil {
		s.metrics.WindowsRecordedTotal.WithLabelValues(route).Inc()
	}
	return nil
}

// ClearForIdentity deletes all rate-limit windows for the identity
// across every route, forgiving prior throttling after a successful
// authentication.
func (s *Service) ClearForIdentity(ctx context.Context, identity string) error {
	if err := s.store.ClearIdentity(ctx, identity); err != nil {
		s.countStoreFailure("clear")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear rate limits")
	}
	if s.metrics != nil {
		s.metrics.IdentitiesClearedTotal.Inc()
	}
	return nil
}

// ListForIdentity returns the live windows for an identity (operator
// inspection).
func (s *Service) ListForIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error) {
	windows, err := s.store.ListIdentity(ctx, identity)
	if err != nil {
		s.countStoreFailure("list")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rate limits")
	}
	return windows, nil
}

func (s *Service) countStoreFailure(operation string) {
	if s.metrics != nil {
		s.metrics.StoreFailuresTotal.WithLabelValues(operation).Inc()
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
