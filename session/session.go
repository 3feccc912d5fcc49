// Package session manages authentication session records and a per-user
// index of active tokens over the shared key-value store.
//
// The index set and the session records can drift: a record may expire via
// TTL while its token lingers in the index until the index's own TTL runs
// out. Consumers must treat index membership as a hint and always re-fetch
// the record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cvdesk/taskq/id"
	"github.com/cvdesk/taskq/kv"
)

// DefaultTTL bounds the lifetime of a session record and its index set.
const DefaultTTL = 24 * time.Hour

// Session is an authentication session record.
type Session struct {
	Token     string         `json:"token"`
	UserID    int64          `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func sessionKey(token string) string { return "session:" + token }

func userSessionsKey(userID int64) string {
	return "user_sessions:" + strconv.FormatInt(userID, 10)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// Manager provides session CRUD plus the per-user token index.
type Manager struct {
	store  kv.Store
	logger *slog.Logger
	ttl    time.Duration
}

// New creates a session Manager on the given store.
func New(store kv.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: slog.Default(), ttl: DefaultTTL}
	for _, o := range opts {
		o(m)
	}
	return m
}

// NewToken generates a fresh session token.
func NewToken() string {
	return id.NewSessionID().String()
}

// Create writes a session record keyed by token and adds the token to the
// user's index set, refreshing the set's TTL.
func (m *Manager) Create(ctx context.Context, userID int64, token string, data map[string]any) (*Session, error) {
	s := &Session{
		Token:     token,
		UserID:    userID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	record, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: marshal %s: %w", token, err)
	}
	if err := m.store.Set(ctx, sessionKey(token), string(record), m.ttl); err != nil {
		return nil, fmt.Errorf("session: create %s: %w", token, err)
	}

	indexKey := userSessionsKey(userID)
	if err := m.store.SetAdd(ctx, indexKey, token); err != nil {
		return nil, fmt.Errorf("session: index %s: %w", token, err)
	}
	if err := m.store.Expire(ctx, indexKey, m.ttl); err != nil {
		m.logger.Warn("session index ttl refresh failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return s, nil
}

// Get returns the session record for token, or nil if it does not exist
// (including records dropped by TTL expiry).
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	record, err := m.store.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: get %s: %w", token, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", token, err)
	}
	return &s, nil
}

// Delete removes the session record and drops the token from its owning
// user's index set. Deleting an unknown token is a no-op.
func (m *Manager) Delete(ctx context.Context, token string) error {
	s, err := m.Get(ctx, token)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	if err := m.store.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("session: delete %s: %w", token, err)
	}
	if err := m.store.SetRemove(ctx, userSessionsKey(s.UserID), token); err != nil {
		return fmt.Errorf("session: unindex %s: %w", token, err)
	}
	return nil
}

// UserSessions returns all tokens in the user's index set. Membership is a
// hint only; individual records may already have expired.
func (m *Manager) UserSessions(ctx context.Context, userID int64) ([]string, error) {
	tokens, err := m.store.SetMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("session: list user %d: %w", userID, err)
	}
	return tokens, nil
}
