// Package queue is a thin FIFO wrapper over the key-value store's list
// operations. Each named queue is one list; push appends to the tail, pop
// takes the head. No priority logic lives here — priority is expressed
// entirely by which queue name the dispatcher chooses.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cvdesk/taskq/job"
	"github.com/cvdesk/taskq/kv"
)

// envelope is the wire form of a queued job: the job record plus the
// enqueue timestamp stamped at push time.
type envelope struct {
	Job        *job.Job  `json:"job"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager provides FIFO push/pop/length per named queue.
type Manager struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates a queue Manager on the given store.
func New(store kv.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Push serializes the job, stamps it with an enqueue timestamp, and
// appends it to the tail of the named queue.
func (m *Manager) Push(ctx context.Context, name string, j *job.Job) error {
	data, err := json.Marshal(envelope{Job: j, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", j.ID, err)
	}
	if err := m.store.ListPush(ctx, name, string(data)); err != nil {
		return fmt.Errorf("queue: push to %s: %w", name, err)
	}
	return nil
}

// Pop removes and returns the oldest job in the named queue, or (nil, nil)
// if the queue is empty.
func (m *Manager) Pop(ctx context.Context, name string) (*job.Job, error) {
	data, err := m.store.ListPop(ctx, name)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: pop from %s: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("queue: decode entry from %s: %w", name, err)
	}
	return env.Job, nil
}

// Length returns the number of jobs waiting in the named queue.
func (m *Manager) Length(ctx context.Context, name string) (int64, error) {
	n, err := m.store.ListLength(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("queue: length of %s: %w", name, err)
	}
	return n, nil
}
