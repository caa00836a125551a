// Package ratelimit throttles credential attempts using sliding windows
// counted in PostgreSQL, so every API replica sees the same counts.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Window represents the time window for rate limiting
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// Limits bounds attempts per scope. Zero disables a window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// Enabled reports whether any window is limited
func (l Limits) Enabled() bool {
	return l.PerMinute > 0 || l.PerHour > 0
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed         bool
	Remaining       int
	ResetAt         time.Time
	ViolatedWindow  Window
	ViolationReason string
}

// Service handles rate limiting using PostgreSQL
type Service struct {
	db     *sql.DB
	limits Limits
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new Service instance
func NewService(db *sql.DB, limits Limits, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

// ScopeKey builds the key attempts are counted under
func ScopeKey(action, clientIP string) string {
	return fmt.Sprintf("%s:ip:%s", action, clientIP)
}

// Check reports whether another attempt under scopeKey is allowed
func (s *Service) Check(ctx context.Context, scopeKey string) (*Result, error) {
	if !s.limits.Enabled() {
		return &Result{Allowed: true}, nil
	}

	now := s.now()
	remaining := -1

	for _, w := range []struct {
		window Window
		limit  int
	}{
		{WindowMinute, s.limits.PerMinute},
		{WindowHour, s.limits.PerHour},
	} {
		if w.limit <= 0 {
			continue
		}

		allowed, left, resetAt, err := s.checkWindow(ctx, scopeKey, w.window, now, w.limit)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s window: %w", w.window, err)
		}
		if !allowed {
			return &Result{
				Allowed:         false,
				ResetAt:         resetAt,
				ViolatedWindow:  w.window,
				ViolationReason: fmt.Sprintf("exceeded %d attempts per %s", w.limit, w.window),
			}, nil
		}
		if remaining < 0 || left < remaining {
			remaining = left
		}
	}

	return &Result{Allowed: true, Remaining: remaining}, nil
}

// Record counts one attempt under scopeKey
func (s *Service) Record(ctx context.Context, scopeKey string) error {
	if !s.limits.Enabled() {
		return nil
	}

	query := `
		INSERT INTO rate_limit_events (scope_key, occurred_at)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, scopeKey, s.now()); err != nil {
		return fmt.Errorf("failed to insert rate limit event: %w", err)
	}
	return nil
}

// checkWindow checks if the limit is exceeded for a specific time window
func (s *Service) checkWindow(ctx context.Context, scopeKey string, window Window, now time.Time, limit int) (allowed bool, remaining int, resetAt time.Time, err error) {
	windowStart, resetAt := windowBounds(now, window)

	query := `
		SELECT COUNT(*)
		FROM rate_limit_events
		WHERE scope_key = $1
		  AND occurred_at >= $2
		  AND occurred_at <= $3
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, scopeKey, windowStart, now).Scan(&count); err != nil {
		return false, 0, resetAt, fmt.Errorf("failed to query rate limit: %w", err)
	}

	if count >= limit {
		return false, 0, resetAt, nil
	}
	return true, limit - count, resetAt, nil
}

// windowBounds returns the sliding window start and the time the oldest
// counted attempt leaves it
func windowBounds(now time.Time, window Window) (start time.Time, reset time.Time) {
	switch window {
	case WindowHour:
		start = now.Add(-time.Hour)
		reset = now.Truncate(time.Hour).Add(time.Hour)
	default:
		start = now.Add(-time.Minute)
		reset = now.Truncate(time.Minute).Add(time.Minute)
	}
	return start, reset
}

// CleanupOldEvents removes events older than olderThan
func (s *Service) CleanupOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limit events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Debug("cleaned up rate limit events",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoff))

	return rowsAffected, nil
}

// StartCleanupWorker periodically deletes expired events until ctx is done
func (s *Service) StartCleanupWorker(ctx context.Context, interval, retention time.Duration) {
	if !s.limits.Enabled() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldEvents(ctx, retention); err != nil {
				s.logger.Error("failed to cleanup rate limit events", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
