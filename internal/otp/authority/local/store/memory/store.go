// Package memory provides an in-process code store for tests and
// single-instance deployments.
package memory

import (
	"context"
	"sync"

	"otpgate/internal/otp/authority/local"
	"otpgate/pkg/requestcontext"
)

type Store struct {
	mu    sync.Mutex
	codes map[codeKey]local.CodeRecord
}

type codeKey struct {
	flow  string
	email string
}

func New() *Store {
	return &Store{codes: make(map[codeKey]local.CodeRecord)}
}

func (s *Store) Put(ctx context.Context, rec local.CodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Checks = 0
	s.codes[codeKey{flow: rec.Flow, email: rec.Email}] = rec
	return nil
}

func (s *Store) Get(ctx context.Context, flow, email string) (*local.CodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[codeKey{flow: flow, email: email}]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *Store) IncrementChecks(ctx context.Context, flow, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := codeKey{flow: flow, email: email}
	rec, ok := s.codes[key]
	if !ok {
		return 0, nil
	}
	rec.Checks++
	s.codes[key] = rec
	return rec.Checks, nil
}

func (s *Store) Delete(ctx context.Context, flow, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, codeKey{flow: flow, email: email})
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, rec := range s.codes {
		if rec.Expired(now) {
			delete(s.codes, key)
			purged++
		}
	}
	return purged, nil
}
