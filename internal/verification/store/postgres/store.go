// Package postgres persists verification attempt cycles in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"otpgate/internal/verification/models"
	"otpgate/pkg/requestcontext"
)

// Store is pure I/O over the verification_attempts table; thresholds
// and cycle policy belong to the ledger service.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed attempt store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the identifier's attempt record, or nil when no live
// record exists. Expired rows are reported as absent.
func (s *Store) Get(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	now := requestcontext.Now(ctx)
	query := `
		SELECT identifier, attempts, expires_at
		FROM verification_attempts
		WHERE identifier = $1 AND expires_at > $2
	`
	var rec models.AttemptRecord
	err := s.db.QueryRowContext(ctx, query, identifier, now).Scan(
		&rec.Identifier, &rec.Attempts, &rec.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification attempts: %w", err)
	}
	return &rec, nil
}

// Increment adds one invalid attempt in a single upsert so two
// concurrent requests cannot both observe a stale count. A fresh cycle
// (no row, or an expired one) starts at 1 with the given TTL; a live
// cycle keeps its original expiry.
func (s *Store) Increment(ctx context.Context, identifier string, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("attempt cycle ttl must be positive")
	}

	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO verification_attempts (identifier, attempts, expires_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (identifier) DO UPDATE SET
			attempts = CASE
				WHEN verification_attempts.expires_at <= $3
				THEN 1
				ELSE verification_attempts.attempts + 1
			END,
			expires_at = CASE
				WHEN verification_attempts.expires_at <= $3
				THEN EXCLUDED.expires_at
				ELSE verification_attempts.expires_at
			END
		RETURNING attempts
	`
	var attempts int
	err := s.db.QueryRowContext(ctx, query, identifier, now.Add(ttl), now).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment verification attempts: %w", err)
	}
	return attempts, nil
}

// Reset removes the identifier's attempt row, ending its cycle.
func (s *Store) Reset(ctx context.Context, identifier string) error {
	query := `DELETE FROM verification_attempts WHERE identifier = $1`
	if _, err := s.db.ExecContext(ctx, query, identifier); err != nil {
		return fmt.Errorf("reset verification attempts: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose cycles have ended. Reads already
// treat them as absent, so this only reclaims storage.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	query := `DELETE FROM verification_attempts WHERE expires_at <= $1`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge verification attempts: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge verification attempts: %w", err)
	}
	return int(purged), nil
}
