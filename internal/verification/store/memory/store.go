// Package memory provides an in-process attempt ledger store for tests
// and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"otpgate/internal/verification/models"
	"otpgate/pkg/requestcontext"
)

type Store struct {
	mu      sync.Mutex
	records map[string]models.AttemptRecord
}

func New() *Store {
	return &Store{records: make(map[string]models.AttemptRecord)}
}

// Get returns the identifier's attempt record, or nil when no record
// exists. Expired records are reported as absent.
func (s *Store) Get(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok || rec.Expired(now) {
		return nil, nil
	}
	out := rec
	return &out, nil
}

// Increment adds one invalid attempt to the identifier's current cycle.
// A fresh cycle (no record, or an expired one) starts at 1 with the
// given TTL; a live cycle keeps its original expiry.
func (s *Store) Increment(ctx context.Context, identifier string, ttl time.Duration) (int, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identifier]
	if !ok || rec.Expired(now) {
		rec = models.AttemptRecord{
			Identifier: identifier,
			Attempts:   1,
			ExpiresAt:  now.Add(ttl),
		}
	} else {
		rec.Attempts++
	}
	s.records[identifier] = rec
	return rec.Attempts, nil
}

// Reset removes the identifier's attempt record, ending its cycle.
func (s *Store) Reset(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, identifier)
	return nil
}

// PurgeExpired drops ended cycles. Reads already treat them as absent,
// so this only reclaims memory.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			purged++
		}
	}
	return purged, nil
}
