// Package redisstore implements the rate-limit window store on Redis
// fixed-window counters: INCR plus an expiry set on the first hit in
// the window, so the increment stays a single atomic server-side
// operation.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"otpgate/internal/abuse/models"
)

const keyPrefix = "rl:"

// Store keeps window counters in Redis. Expiry is handled by Redis
// itself, so PurgeExpired is a no-op.
type Store struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func storageKey(key models.Key) string {
	return keyPrefix + key.String()
}

// identityPattern builds the SCAN pattern matching every window for one
// identity. Glob metacharacters are backslash-escaped: '*' and '?' are
// legal in email local parts and must never act as wildcards.
func identityPattern(identity string) string {
	var b strings.Builder
	for _, r := range models.SanitizeKeySegment(identity) {
		switch r {
		case '*', '?', '[', ']', '^', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return keyPrefix + "*:" + b.String() + ":*"
}

// Increment bumps the window counter, arming the expiry on the first
// hit in the window.
func (s *Store) Increment(ctx context.Context, key models.Key, window time.Duration) (int, error) {
	count, err := s.client.Incr(ctx, storageKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment rate limit window: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, storageKey(key), window).Err(); err != nil {
			return 0, fmt.Errorf("arm rate limit window expiry: %w", err)
		}
	}

	return int(count), nil
}

// Peek returns the current count and remaining window time without
// mutating state.
func (s *Store) Peek(ctx context.Context, key models.Key) (int, time.Duration, error) {
	val, err := s.client.Get(ctx, storageKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("peek rate limit window: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, 0, fmt.Errorf("decode rate limit counter: %w", err)
	}

	remaining, err := s.client.PTTL(ctx, storageKey(key)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("peek rate limit window ttl: %w", err)
	}
	if remaining <= 0 {
		return 0, 0, nil
	}
	return count, remaining, nil
}

// ClearIdentity deletes every window for the identity across all routes
// and client IPs.
func (s *Store) ClearIdentity(ctx context.Context, identity string) error {
	pattern := identityPattern(identity)

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan rate limit windows: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear rate limit windows: %w", err)
	}
	return nil
}

// ListIdentity returns the live windows for an identity. Window start
// times are not recoverable from Redis; only counts and expiry remain.
func (s *Store) ListIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error) {
	pattern := identityPattern(identity)

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var out []models.WindowStatus
	for iter.Next(ctx) {
		k := iter.Val()

		val, err := s.client.Get(ctx, k).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("read rate limit window: %w", err)
		}
		count, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("decode rate limit counter: %w", err)
		}
		remaining, err := s.client.PTTL(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("read rate limit window ttl: %w", err)
		}
		if remaining <= 0 {
			continue
		}

		ws := models.WindowStatus{
			Identity:          identity,
			Count:             count,
			RetryAfterSeconds: ceilSeconds(remaining),
		}
		ws.Route, ws.ClientIP = splitKey(k)
		out = append(out, ws)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rate limit windows: %w", err)
	}
	return out, nil
}

// PurgeExpired is a no-op; Redis expires keys itself.
func (s *Store) PurgeExpired(_ context.Context) (int, error) {
	return 0, nil
}

// splitKey recovers route and client IP from a storage key of the form
// "rl:<route>:<identity>:<ip>". Segments are sanitized, so the first
// and last colon-separated parts are unambiguous.
func splitKey(k string) (route, ip string) {
	trimmed := k[len(keyPrefix):]
	first := -1
	last := -1
	for i, c := range trimmed {
		if c == ':' {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 || first == last {
		return trimmed, ""
	}
	return trimmed[:first], trimmed[last+1:]
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
