// Package kv defines the key-value store contract shared by every taskq
// component. The store is treated as a flat namespace of independent keys,
// lists, and sets — no cross-key transactions are assumed.
//
// Backends: Redis (kv/redis) and an in-memory implementation for tests and
// development (kv/memory).
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist (or a list is empty).
var ErrNotFound = errors.New("kv: key not found")

// Store is the operation contract the shared key-value service must support.
// All calls are network I/O and take a context. Values are strings; callers
// serialize structured data (JSON by convention).
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A ttl of zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Increment atomically increments the integer counter at key,
	// creating it at 1 if absent, and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets or refreshes the ttl on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Keys returns all keys matching a Redis-style glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// ListPush appends value to the tail of the list at key.
	ListPush(ctx context.Context, key, value string) error

	// ListPop removes and returns the head of the list at key,
	// or ErrNotFound if the list is empty or missing.
	ListPop(ctx context.Context, key string) (string, error)

	// ListLength returns the length of the list at key (0 if missing).
	ListLength(ctx context.Context, key string) (int64, error)

	// SetAdd adds member to the set at key.
	SetAdd(ctx context.Context, key, member string) error

	// SetRemove removes member from the set at key.
	SetRemove(ctx context.Context, key, member string) error

	// SetMembers returns all members of the set at key (nil if missing).
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store client.
	Close() error
}
