// Package ratelimit enforces a per-user sliding-window request quota backed
// by the store.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/store"
)

// Default quota: 20 requests per 24 hours.
const (
	DefaultRequestsPerWindow = 20
	DefaultWindowHours       = 24
)

// Limiter tracks per-user request counts in a rolling window. Store failures
// fail open: a broken database must not lock users out.
type Limiter struct {
	store    store.Store
	requests int
	window   time.Duration
}

// New creates a Limiter. Non-positive arguments fall back to the defaults.
func New(s store.Store, requestsPerWindow, windowHours int) *Limiter {
	if requestsPerWindow <= 0 {
		requestsPerWindow = DefaultRequestsPerWindow
	}
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	zap.L().Info("ratelimit: initialized",
		zap.Int("requests_per_window", requestsPerWindow),
		zap.Int("window_hours", windowHours),
	)
	return &Limiter{
		store:    s,
		requests: requestsPerWindow,
		window:   time.Duration(windowHours) * time.Hour,
	}
}

// Check records one request for the user and reports whether it is allowed,
// along with the remaining quota.
func (l *Limiter) Check(ctx context.Context, userEmail string) (bool, int) {
	if l.store == nil {
		return true, l.requests - 1
	}

	now := time.Now().UTC()
	limit, err := l.store.GetUserLimit(ctx, userEmail)
	if err != nil {
		zap.L().Error("ratelimit: lookup failed, allowing request",
			zap.String("user", userEmail), zap.Error(err))
		return true, l.requests - 1
	}

	if limit == nil || now.After(limit.ResetTime) || now.Equal(limit.ResetTime) {
		// First request, or the previous window has elapsed.
		fresh := &store.UserLimit{
			UserEmail:    userEmail,
			RequestCount: 1,
			ResetTime:    now.Add(l.window),
		}
		if err := l.store.UpsertUserLimit(ctx, fresh); err != nil {
			zap.L().Error("ratelimit: upsert failed, allowing request",
				zap.String("user", userEmail), zap.Error(err))
		}
		return true, l.requests - 1
	}

	if limit.RequestCount >= l.requests {
		zap.L().Warn("ratelimit: quota exceeded",
			zap.String("user", userEmail),
			zap.Int("count", limit.RequestCount),
		)
		return false, 0
	}

	limit.RequestCount++
	if err := l.store.UpsertUserLimit(ctx, limit); err != nil {
		zap.L().Error("ratelimit: upsert failed, allowing request",
			zap.String("user", userEmail), zap.Error(err))
	}
	return true, l.requests - limit.RequestCount
}

// Remaining reports the user's remaining quota without consuming any of it.
func (l *Limiter) Remaining(ctx context.Context, userEmail string) int {
	if l.store == nil {
		return l.requests
	}
	limit, err := l.store.GetUserLimit(ctx, userEmail)
	if err != nil {
		zap.L().Error("ratelimit: lookup failed", zap.String("user", userEmail), zap.Error(err))
		return l.requests
	}
	if limit == nil || !time.Now().UTC().Before(limit.ResetTime) {
		return l.requests
	}
	remaining := l.requests - limit.RequestCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// LogQuery records an API interaction for analytics. Failures are logged
// and swallowed so bookkeeping never breaks the request path.
func (l *Limiter) LogQuery(ctx context.Context, entry *store.QueryLog) {
	if l.store == nil {
		return
	}
	if err := l.store.LogQuery(ctx, entry); err != nil {
		zap.L().Error("ratelimit: failed to log query",
			zap.String("user", entry.UserEmail),
			zap.String("endpoint", entry.Endpoint),
			zap.Error(err),
		)
	}
}
