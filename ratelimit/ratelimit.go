// Package ratelimit implements a fixed-window request counter over the
// shared key-value store.
//
// The first increment inside a window sets the key's expiry; the counter
// disappears when the store expires it, which resets the window. On store
// failure the limiter fails open: availability is prioritised over strict
// enforcement.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/cvdesk/taskq/kv"
)

// keyPrefix namespaces rate-limit counters in the shared store.
const keyPrefix = "rate_limit:"

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(lim *Limiter) { lim.logger = l }
}

// Limiter counts requests per caller identifier in fixed windows.
type Limiter struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates a Limiter on the given store.
func New(store kv.Store, opts ...Option) *Limiter {
	lim := &Limiter{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(lim)
	}
	return lim
}

// Allow atomically increments the counter for identifier and reports
// whether the request is within maxRequests for the current window.
// The window starts at the first increment and lasts for window.
func (l *Limiter) Allow(ctx context.Context, identifier string, maxRequests int, window time.Duration) bool {
	key := keyPrefix + identifier

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request",
			slog.String("identifier", identifier),
			slog.String("error", err.Error()),
		)
		return true
	}

	if count == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			l.logger.Warn("rate limit window expiry failed",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
		}
	}

	return count <= int64(maxRequests)
}

// Remaining returns how many requests identifier has left in the current
// window. A missing counter counts as zero used.
func (l *Limiter) Remaining(ctx context.Context, identifier string, maxRequests int) int {
	val, err := l.store.Get(ctx, keyPrefix+identifier)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			l.logger.Warn("rate limit read failed",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
		}
		return maxRequests
	}

	current, _ := strconv.Atoi(val) //nolint:errcheck // non-numeric counts as zero
	if remaining := maxRequests - current; remaining > 0 {
		return remaining
	}
	return 0
}
