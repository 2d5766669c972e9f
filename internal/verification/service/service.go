// Package service implements the per-cycle invalid attempt ledger. A
// cycle starts on the first invalid attempt after issuance (or after
// the previous cycle ended) and keeps its expiry however many invalid
// attempts follow, so wrong guesses cannot extend their own window.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"otpgate/internal/verification/metrics"
	"otpgate/internal/verification/models"
	dErrors "otpgate/pkg/domain-errors"
)

// Store is the persistence contract. Increment must be a single atomic
// operation that starts a fresh cycle when no live record exists and
// otherwise preserves the existing expiry.
type Store interface {
	Get(ctx context.Context, identifier string) (*models.AttemptRecord, error)
	Increment(ctx context.Context, identifier string, ttl time.Duration) (int, error)
	Reset(ctx context.Context, identifier string) error
	PurgeExpired(ctx context.Context) (int, error)
}

type Ledger struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func New(store Store, ttl time.Duration, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("attempt store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("attempt cycle ttl must be positive")
	}

	ledger := &Ledger{
		store:  store,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger, nil
}

// Attempts returns the identifier's live invalid-attempt count. An
// absent or expired record reads as zero.
func (l *Ledger) Attempts(ctx context.Context, identifier string) (int, error) {
	rec, err := l.store.Get(ctx, identifier)
	if err != nil {
		l.countStoreFailure("get")
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attempt ledger")
	}
	if rec == nil {
		return 0, nil
	}
	return rec.Attempts, nil
}

// RecordInvalid adds one invalid attempt to the current cycle and
// returns the new count. The cycle's expiry is never extended.
func (l *Ledger) RecordInvalid(ctx context.Context, identifier string) (int, error) {
	attempts, err := l.store.Increment(ctx, identifier, l.ttl)
	if err != nil {
		l.countStoreFailure("increment")
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record invalid attempt")
	}
	if l.metrics != nil {
		l.metrics.InvalidAttemptsTotal.Inc()
	}
	return attempts, nil
}

// Reset ends the identifier's cycle. Issuing a new code and a
// successful verification both reset the ledger.
func (l *Ledger) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Reset(ctx, identifier); err != nil {
		l.countStoreFailure("reset")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset attempt ledger")
	}
	if l.metrics != nil {
		l.metrics.CyclesResetTotal.Inc()
	}
	return nil
}

func (l *Ledger) countStoreFailure(operation string) {
	if l.metrics != nil {
		l.metrics.StoreFailuresTotal.WithLabelValues(operation).Inc()
	}
}
