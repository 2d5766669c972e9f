// Package postgres persists rate-limit windows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"otpgate/internal/abuse/models"
	"otpgate/pkg/requestcontext"
)

// Store is pure I/O over the rate_limit_windows table; window policy
// (limits, which routes exist) belongs to the service.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed window store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Increment bumps the window counter in a single upsert so two
// concurrent requests cannot both observe a stale count. An expired
// window is restarted in the same statement.
func (s *Store) Increment(ctx context.Context, key models.Key, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("rate limit window must be positive")
	}

	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO rate_limit_windows (route, identity, client_ip, window_start, count, window_seconds)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (route, identity, client_ip) DO UPDATE SET
			count = CASE
				WHEN rate_limit_windows.window_start + rate_limit_windows.window_seconds * interval '1 second' <= EXCLUDED.window_start
				THEN 1
				ELSE rate_limit_windows.count + 1
			END,
			window_start = CASE
				WHEN rate_limit_windows.window_start + rate_limit_windows.window_seconds * interval '1 second' <= EXCLUDED.window_start
				THEN EXCLUDED.window_start
				ELSE rate_limit_windows.window_start
			END,
			window_seconds = EXCLUDED.window_seconds
		RETURNING count
	`
	var count int
	err := s.db.QueryRowContext(ctx, query,
		key.Route, key.Identity, key.ClientIP, now, int(window.Seconds()),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment rate limit window: %w", err)
	}
	return count, nil
}

// Peek returns the current count and remaining window time.
// Absent or expired windows read as zero; reads never mutate state.
func (s *Store) Peek(ctx context.Context, key models.Key) (int, time.Duration, error) {
	query := `
		SELECT count, window_start, window_seconds
		FROM rate_limit_windows
		WHERE route = $1 AND identity = $2 AND client_ip = $3
	`
	var (
		count         int
		windowStart   time.Time
		windowSeconds int
	)
	err := s.db.QueryRowContext(ctx, query, key.Route, key.Identity, key.ClientIP).
		Scan(&count, &windowStart, &windowSeconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("peek rate limit window: %w", err)
	}

	now := requestcontext.Now(ctx)
	remaining := windowStart.Add(time.Duration(windowSeconds) * time.Second).Sub(now)
	if remaining <= 0 {
		return 0, 0, nil
	}
	return count, remaining, nil
}

// ClearIdentity deletes every window for the identity across all routes
// and client IPs. Called on successful authentication to forgive prior
// throttling.
func (s *Store) ClearIdentity(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE identity = $1`, identity)
	if err != nil {
		return fmt.Errorf("clear rate limit windows: %w", err)
	}
	return nil
}

// ListIdentity returns the live windows for an identity.
func (s *Store) ListIdentity(ctx context.Context, identity string) ([]models.WindowStatus, error) {
	now := requestcontext.Now(ctx)
	query := `
		SELECT route, identity, client_ip, count, window_start, window_seconds
		FROM rate_limit_windows
		WHERE identity = $1
		  AND window_start + window_seconds * interval '1 second' > $2
		ORDER BY route, client_ip
	`
	rows, err := s.db.QueryContext(ctx, query, identity, now)
	if err != nil {
		return nil, fmt.Errorf("list rate limit windows: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.WindowStatus
	for rows.Next() {
		var (
			ws            models.WindowStatus
			windowSeconds int
		)
		if err := rows.Scan(&ws.Route, &ws.Identity, &ws.ClientIP, &ws.Count, &ws.WindowStart, &windowSeconds); err != nil {
			return nil, fmt.Errorf("scan rate limit window: %w", err)
		}
		remaining := ws.WindowStart.Add(time.Duration(windowSeconds) * time.Second).Sub(now)
		ws.RetryAfterSeconds = ceilSeconds(remaining)
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate limit windows: %w", err)
	}
	return out, nil
}

// PurgeExpired removes windows whose expiry has passed. The cutoff is
// the caller's now so workers and tests control the clock.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_limit_windows
		WHERE window_start + window_seconds * interval '1 second' <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("purge rate limit windows: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rate limit windows: %w", err)
	}
	return int(affected), nil
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
