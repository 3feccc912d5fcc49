// Package cache provides a read-through cache with TTL and pattern-based
// invalidation over the shared key-value store.
//
// The cache is best-effort, never a hard dependency: when the store is
// unreachable, reads fall back to computing the value directly and writes
// are logged and dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cvdesk/taskq/kv"
)

// keyPrefix namespaces all cache entries in the shared store.
const keyPrefix = "cache:"

// Producer computes a value when the cache cannot serve it.
type Producer func(ctx context.Context) (any, error)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager is a read-through cache over a kv.Store.
type Manager struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates a cache Manager on the given store.
func New(store kv.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get returns the cached value at key. On a miss with a producer, the
// producer's result is stored with ttl and returned. On a miss without a
// producer, Get returns (nil, nil).
//
// A store failure degrades to invoking the producer directly; the result
// is returned uncached.
func (m *Manager) Get(ctx context.Context, key string, ttl time.Duration, producer Producer) ([]byte, error) {
	val, err := m.store.Get(ctx, keyPrefix+key)
	if err == nil {
		return []byte(val), nil
	}

	if !errors.Is(err, kv.ErrNotFound) {
		if producer == nil {
			return nil, fmt.Errorf("cache: get %s: %w", key, err)
		}
		m.logger.Warn("cache read failed, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return m.produce(ctx, key, producer)
	}

	if producer == nil {
		return nil, nil
	}

	data, err := m.produce(ctx, key, producer)
	if err != nil {
		return nil, err
	}

	// Cache writes are not safety-critical.
	if setErr := m.store.Set(ctx, keyPrefix+key, string(data), ttl); setErr != nil {
		m.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", setErr.Error()),
		)
	}
	return data, nil
}

// Set serializes value and stores it at key with the given ttl.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := m.store.Set(ctx, keyPrefix+key, string(data), ttl); err != nil {
		m.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Delete removes explicit keys. Store failures are logged and swallowed.
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = keyPrefix + key
	}
	if err := m.store.Delete(ctx, prefixed...); err != nil {
		m.logger.Warn("cache delete failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ClearPattern enumerates keys matching a glob pattern (relative to the
// cache namespace, e.g. "image:*") and bulk-deletes them. Returns the
// number of entries removed.
func (m *Manager) ClearPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := m.store.Keys(ctx, keyPrefix+pattern)
	if err != nil {
		return 0, fmt.Errorf("cache: clear pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := m.store.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("cache: clear pattern %s: %w", pattern, err)
	}
	return len(keys), nil
}

func (m *Manager) produce(ctx context.Context, key string, producer Producer) ([]byte, error) {
	value, err := producer(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: produce %s: %w", key, err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return data, nil
}

// Fetch is a typed read-through helper. It decodes the cached (or freshly
// produced) JSON into T.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Fetch[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, err := m.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		return zero, err
	}
	if data == nil {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return out, nil
}
