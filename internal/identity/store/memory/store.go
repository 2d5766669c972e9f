// Package memory provides an in-process account store for tests and
// single-instance deployments.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"otpgate/internal/identity/models"
	"otpgate/pkg/requestcontext"
)

type Store struct {
	mu      sync.RWMutex
	byEmail map[string]models.Account
}

func New() *Store {
	return &Store{byEmail: make(map[string]models.Account)}
}

// FindByEmail returns the account registered under the email, or nil
// when none exists. Lookup is case-insensitive.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	out := account
	return &out, nil
}

// Create registers an account, generating its ID. Used by tests and
// seed tooling.
func (s *Store) Create(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := models.Account{
		ID:        uuid.New(),
		Email:     strings.ToLower(email),
		CreatedAt: requestcontext.Now(ctx),
	}
	s.byEmail[account.Email] = account
	return &account, nil
}
