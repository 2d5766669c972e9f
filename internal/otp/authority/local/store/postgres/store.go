// Package postgres persists outstanding verification codes in
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"otpgate/internal/otp/authority/local"
	"otpgate/pkg/requestcontext"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put replaces any outstanding code for the pair and resets its check
// count.
func (s *Store) Put(ctx context.Context, rec local.CodeRecord) error {
	query := `
		INSERT INTO verification_codes (flow, email, code_hash, expires_at, checks)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (flow, email) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			checks = 0
	`
	if _, err := s.db.ExecContext(ctx, query, rec.Flow, rec.Email, rec.CodeHash, rec.ExpiresAt); err != nil {
		return fmt.Errorf("put verification code: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, flow, email string) (*local.CodeRecord, error) {
	query := `
		SELECT flow, email, code_hash, expires_at, checks
		FROM verification_codes
		WHERE flow = $1 AND email = $2
	`
	var rec local.CodeRecord
	err := s.db.QueryRowContext(ctx, query, flow, email).Scan(
		&rec.Flow, &rec.Email, &rec.CodeHash, &rec.ExpiresAt, &rec.Checks,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification code: %w", err)
	}
	return &rec, nil
}

func (s *Store) IncrementChecks(ctx context.Context, flow, email string) (int, error) {
	query := `
		UPDATE verification_codes
		SET checks = checks + 1
		WHERE flow = $1 AND email = $2
		RETURNING checks
	`
	var checks int
	err := s.db.QueryRowContext(ctx, query, flow, email).Scan(&checks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("increment verification code checks: %w", err)
	}
	return checks, nil
}

func (s *Store) Delete(ctx context.Context, flow, email string) error {
	query := `DELETE FROM verification_codes WHERE flow = $1 AND email = $2`
	if _, err := s.db.ExecContext(ctx, query, flow, email); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	query := `DELETE FROM verification_codes WHERE expires_at <= $1`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge verification codes: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge verification codes: %w", err)
	}
	return int(purged), nil
}
