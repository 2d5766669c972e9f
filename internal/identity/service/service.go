// Package service answers the one identity question the OTP guards
// ask: is this email a registered account.
package service

import (
	"context"
	"fmt"

	"otpgate/internal/identity/models"
	dErrors "otpgate/pkg/domain-errors"
)

// Store is the persistence contract; absence is a nil account, not an
// error.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type Service struct {
	store Store
}

func New(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("account store is required")
	}
	return &Service{store: store}, nil
}

// Exists reports whether the email belongs to a registered account.
func (s *Service) Exists(ctx context.Context, email string) (bool, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	return account != nil, nil
}

// FindByEmail returns the account for the email or a not-found domain
// error.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	if account == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	return account, nil
}
