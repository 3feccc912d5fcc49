// Package redis implements kv.Store over a Redis connection using
// go-redis. One client is constructed at process startup and shared by
// every component; the caller owns the client lifecycle.
//
// Usage:
//
//	client := redis.NewClient(kv.DefaultConfig())
//	store := redis.New(client)
//	if err := store.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cvdesk/taskq/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// NewClient builds a go-redis client from the environment-provided
// connection parameters. The parameters are passed through unchanged.
func NewClient(cfg kv.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	})
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements kv.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the client lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Get returns the value at key, or kv.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", kv.ErrNotFound
		}
		return "", fmt.Errorf("kv/redis: get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value at key with an optional expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv/redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kv/redis: delete: %w", err)
	}
	return nil
}

// Increment atomically increments the counter at key.
func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("kv/redis: incr %s: %w", key, err)
	}
	return n, nil
}

// Expire sets the ttl on an existing key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("kv/redis: expire %s: %w", key, err)
	}
	return nil
}

// Keys returns all keys matching a glob pattern.
//
// KEYS is O(n) over the keyspace; it is used only for pattern-based cache
// invalidation, which is an administrative operation, not a hot path.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("kv/redis: keys %s: %w", pattern, err)
	}
	return keys, nil
}

// ListPush appends value to the tail of the list at key.
func (s *Store) ListPush(ctx context.Context, key, value string) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("kv/redis: rpush %s: %w", key, err)
	}
	return nil
}

// ListPop removes and returns the head of the list at key.
func (s *Store) ListPop(ctx context.Context, key string) (string, error) {
	val, err := s.client.LPop(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", kv.ErrNotFound
		}
		return "", fmt.Errorf("kv/redis: lpop %s: %w", key, err)
	}
	return val, nil
}

// ListLength returns the length of the list at key.
func (s *Store) ListLength(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("kv/redis: llen %s: %w", key, err)
	}
	return n, nil
}

// SetAdd adds member to the set at key.
func (s *Store) SetAdd(ctx context.Context, key, member string) error {
	if err := s.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("kv/redis: sadd %s: %w", key, err)
	}
	return nil
}

// SetRemove removes member from the set at key.
func (s *Store) SetRemove(ctx context.Context, key, member string) error {
	if err := s.client.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("kv/redis: srem %s: %w", key, err)
	}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv/redis: smembers %s: %w", key, err)
	}
	return members, nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op — the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
