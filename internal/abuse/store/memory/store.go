// Package memory implements the rate-limit window store with in-process
// fixed-window counters. Used in development and tests; production
// deployments use the postgres or redis store.
package memory

import (
	"context"
	"sync"
	"time"

	"otpgate/internal/abuse/models"
	"otpgate/pkg/requestcontext"
)

type record struct {
	key         models.Key
	count       int
	windowStart time.Time
	window      time.Duration
}

func (r *record) expiresAt() time.Time {
	return r.windowStart.Add(r.window)
}

// Store keeps fixed-window counters in a mutex-guarded map. Increment
// is atomic under the lock, matching the single upsert-increment
// guarantee of the persistent stores.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

func New() *Store {
	return &Store{
		records: make(map[string]*record),
	}
}

// Increment bumps the window counter, starting a fresh window when the
// key is absent or its window has elapsed. Returns the new count.
func (s *Store) Increment(ctx context.Context, key models.Key, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	k := key.String()
	if existing, ok := s.records[k]; ok && now.Before(existing.expiresAt()) {
		existing.count++
		return existing.count, nil
	}

	s.records[k] = &record{
		key:         key,
		count:       1,
		windowStart: now,
		window:      window,
	}
	return 1, nil
}

// Peek returns the current count and the time until the window expires.
// Absent or expired windows read as zero.
func (s *Store) Peek(ctx context.Context, key models.Key) (int, time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.records[key.String()]
	if !ok {
		return 0, 0, nil
	}

	now := requestcontext.Now(ctx)
	remaining := existing.expiresAt().Sub(now)
	if remaining <= 0 {
		return 0, 0, nil
	}
	return existing.count, remaining, nil
}

// ClearIdentity deletes every window for the identity, across all
// routes and client IPs.
func (s *Store) ClearIdentity(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.records {
		if rec.key.Identity == identity {
			delete(s.records, k)
		}
	}
	return nil
}

// ListIdentity returns the live windows for an identity.
func (s *Store) ListIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := requestcontext.Now(ctx)
	var out []models.WindowStatus
	for _, rec := range s.records {
		if rec.key.Identity != identity {
			continue
		}
		remaining := rec.expiresAt().Sub(now)
		if remaining <= 0 {
			continue
		}
		out = append(out, models.WindowStatus{
			Route:             rec.key.Route,
			Identity:          rec.key.Identity,
			ClientIP:          rec.key.ClientIP,
			Count:             rec.count,
			RetryAfterSeconds: ceilSeconds(remaining),
			WindowStart:       rec.windowStart,
		})
	}
	return out, nil
}

// PurgeExpired removes windows whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	purged := 0
	for k, rec := range s.records {
		if !now.Before(rec.expiresAt()) {
			delete(s.records, k)
			purged++
		}
	}
	return purged, nil
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
