package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc is a type-erased processor that accepts the raw JSON payload
// and returns the result to record on the job. The typed Definition[T] is
// converted to a HandlerFunc at registration time by closing over JSON
// unmarshal + the typed handler.
type HandlerFunc func(ctx context.Context, payload []byte) (any, error)

// Registry maps job types one-to-one to processors. It is an explicit
// object passed to the dispatcher at construction, so independently
// configured dispatchers can coexist. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Type]HandlerFunc
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Type]HandlerFunc),
	}
}

// Register stores the processor for a job type, replacing any previous one.
func (r *Registry) Register(t Type, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// RegisterDefinition registers a typed processor definition. The generic
// handler is wrapped in a closure that JSON-unmarshals the payload into T
// before calling the typed handler.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, payload []byte) (any, error) {
		var t T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &t); err != nil {
				return nil, fmt.Errorf("unmarshal payload for job %q: %w", def.Type, err)
			}
		}
		return def.Handler(ctx, t)
	}

	r.Register(def.Type, handler)
}

// Get returns the processor for the given job type.
// Returns false if none is registered.
func (r *Registry) Get(t Type) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns all registered job types, sorted for stable output.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, k int) bool { return types[i] < types[k] })
	return types
}
