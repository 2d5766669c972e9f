// Package cleanup periodically removes expired rate limit windows and
// attempt counters so persistent stores do not accumulate dead rows.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"otpgate/internal/abuse/metrics"
)

// Result contains the outcome of a single cleanup run.
type Result struct {
	WindowsPurged  int
	AttemptsPurged int
	CodesPurged    int
	Duration       time.Duration
}

// WindowStore removes rate limit windows whose window has fully elapsed.
type WindowStore interface {
	PurgeExpired(ctx context.Context) (purged int, err error)
}

// AttemptStore removes attempt counters past their expiry. Optional;
// memory-backed deployments expire in place and register nothing here.
type AttemptStore interface {
	PurgeExpired(ctx context.Context) (purged int, err error)
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithAttemptStore(store AttemptStore) Option {
	return func(w *Worker) {
		w.attempts = store
	}
}

// WithCodeStore adds the local authority's outstanding-code table to
// the sweep. Optional for the same reason as WithAttemptStore.
func WithCodeStore(store AttemptStore) Option {
	return func(w *Worker) {
		w.codes = store
	}
}

type Worker struct {
	windows  WindowStore
	attempts AttemptStore
	codes    AttemptStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(windows WindowStore, opts ...Option) *Worker {
	worker := &Worker{
		windows:  windows,
		logger:   slog.Default(),
		interval: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

// Start runs cleanup on a fixed interval until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := w.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Error("abuse_guard_cleanup_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if w.metrics != nil {
					w.metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
					w.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration
			w.logger.Info("abuse_guard_cleanup_completed",
				"windows_purged", res.WindowsPurged,
				"attempts_purged", res.AttemptsPurged,
				"codes_purged", res.CodesPurged,
				"duration_ms", duration.Milliseconds(),
			)

			if w.metrics != nil {
				w.metrics.CleanupPurgedTotal.Add(float64(res.WindowsPurged + res.AttemptsPurged + res.CodesPurged))
				w.metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
				w.metrics.CleanupDurationSeconds.Observe(duration.Seconds())
			}

		case <-ctx.Done():
			w.logger.Info("abuse guard cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single cleanup run. Logging is handled by the caller (Start).
func (w *Worker) RunOnce(ctx context.Context) (res *Result, err error) {
	windowsPurged, err := w.windows.PurgeExpired(ctx)
	if err != nil {
		return nil, err
	}

	attemptsPurged := 0
	if w.attempts != nil {
		attemptsPurged, err = w.attempts.PurgeExpired(ctx)
		if err != nil {
			return nil, err
		}
	}

	codesPurged := 0
	if w.codes != nil {
		codesPurged, err = w.codes.PurgeExpired(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &Result{WindowsPurged: windowsPurged, AttemptsPurged: attemptsPurged, CodesPurged: codesPurged}, nil
}
