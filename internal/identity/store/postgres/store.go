// Package postgres looks accounts up in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"otpgate/internal/identity/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByEmail returns the account registered under the email, or nil
// when none exists. Lookup is case-insensitive.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, created_at
		FROM accounts
		WHERE email = lower($1)
	`
	var account models.Account
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&account.ID, &account.Email, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}
