// Package memory is a fully in-memory implementation of kv.Store.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cvdesk/taskq/kv"
)

// Compile-time interface check.
var _ kv.Store = (*Store)(nil)

// Store holds values, lists, and sets in process memory with lazy TTL
// expiry: expired keys are purged when next touched or enumerated.
type Store struct {
	mu sync.Mutex

	values map[string]string
	lists  map[string][]string
	sets   map[string]map[string]struct{}

	// expiries applies across all three namespaces.
	expiries map[string]time.Time
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		values:   make(map[string]string),
		lists:    make(map[string][]string),
		sets:     make(map[string]map[string]struct{}),
		expiries: make(map[string]time.Time),
	}
}

// purgeLocked removes key from every namespace if its ttl has lapsed.
// Callers must hold mu.
func (s *Store) purgeLocked(key string) {
	exp, ok := s.expiries[key]
	if !ok || time.Now().Before(exp) {
		return
	}
	delete(s.values, key)
	delete(s.lists, key)
	delete(s.sets, key)
	delete(s.expiries, key)
}

// Get returns the value at key, or kv.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	val, ok := s.values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return val, nil
}

// Set stores value at key with an optional expiry.
func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	if ttl > 0 {
		s.expiries[key] = time.Now().Add(ttl)
	} else {
		delete(s.expiries, key)
	}
	return nil
}

// Delete removes the given keys from every namespace.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
		delete(s.lists, key)
		delete(s.sets, key)
		delete(s.expiries, key)
	}
	return nil
}

// Increment atomically increments the counter at key, creating it at 1.
func (s *Store) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	n, _ := strconv.ParseInt(s.values[key], 10, 64) //nolint:errcheck // absent or non-numeric counts as zero
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// Expire sets the ttl on an existing key.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	if _, ok := s.values[key]; !ok {
		if _, ok = s.lists[key]; !ok {
			if _, ok = s.sets[key]; !ok {
				return nil
			}
		}
	}
	s.expiries[key] = time.Now().Add(ttl)
	return nil
}

// Keys returns all live keys matching a glob pattern, sorted for
// deterministic iteration.
func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	collect := func(key string) {
		s.purgeLocked(key)
		if matched, _ := path.Match(pattern, key); matched { //nolint:errcheck // pattern validated by caller
			keys = append(keys, key)
		}
	}
	for key := range s.values {
		collect(key)
	}
	for key := range s.lists {
		collect(key)
	}
	for key := range s.sets {
		collect(key)
	}

	// A key purged inside collect no longer exists; filter survivors.
	live := keys[:0]
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			live = append(live, key)
			continue
		}
		if _, ok := s.lists[key]; ok {
			live = append(live, key)
			continue
		}
		if _, ok := s.sets[key]; ok {
			live = append(live, key)
		}
	}
	sort.Strings(live)
	return live, nil
}

// ListPush appends value to the tail of the list at key.
func (s *Store) ListPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	s.lists[key] = append(s.lists[key], value)
	return nil
}

// ListPop removes and returns the head of the list at key.
func (s *Store) ListPop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	list := s.lists[key]
	if len(list) == 0 {
		return "", kv.ErrNotFound
	}
	head := list[0]
	if len(list) == 1 {
		delete(s.lists, key)
	} else {
		s.lists[key] = list[1:]
	}
	return head, nil
}

// ListLength returns the length of the list at key.
func (s *Store) ListLength(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	return int64(len(s.lists[key])), nil
}

// SetAdd adds member to the set at key.
func (s *Store) SetAdd(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

// SetRemove removes member from the set at key.
func (s *Store) SetRemove(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	return nil
}

// SetMembers returns all members of the set at key, sorted for
// deterministic iteration.
func (s *Store) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }
