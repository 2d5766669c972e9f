// Package redisstore persists verification attempt cycles in Redis so
// multiple gateway instances share one ledger.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"otpgate/internal/verification/models"
	"otpgate/pkg/requestcontext"
)

const keyPrefix = "va:"

type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func attemptKey(identifier string) string {
	return keyPrefix + identifier
}

// Get returns the identifier's attempt record, or nil when no live
// record exists. Redis expiry makes ended cycles absent on its own.
func (s *Store) Get(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	key := attemptKey(identifier)

	attempts, err := s.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification attempts: %w", err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get verification attempts ttl: %w", err)
	}
	if ttl <= 0 {
		// Key expired between the two reads.
		return nil, nil
	}

	return &models.AttemptRecord{
		Identifier: identifier,
		Attempts:   attempts,
		ExpiresAt:  requestcontext.Now(ctx).Add(ttl),
	}, nil
}

// Increment adds one invalid attempt. The TTL is set only when the
// increment creates the key, so a live cycle keeps its original expiry.
func (s *Store) Increment(ctx context.Context, identifier string, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("attempt cycle ttl must be positive")
	}

	key := attemptKey(identifier)
	attempts, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment verification attempts: %w", err)
	}
	if attempts == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("set verification attempts ttl: %w", err)
		}
	}
	return int(attempts), nil
}

// Reset removes the identifier's attempt key, ending its cycle.
func (s *Store) Reset(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, attemptKey(identifier)).Err(); err != nil {
		return fmt.Errorf("reset verification attempts: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op; Redis evicts expired keys itself.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}
