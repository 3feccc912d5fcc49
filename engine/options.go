package engine

import (
	"log/slog"

	"github.com/cvdesk/taskq"
	"github.com/cvdesk/taskq/backoff"
	"github.com/cvdesk/taskq/ext"
	mw "github.com/cvdesk/taskq/middleware"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Subsystems created by the engine
// (queue manager, extension registry, default middleware) inherit it.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig replaces the default engine configuration.
func WithConfig(cfg taskq.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithBackoff sets the retry backoff strategy.
// If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithExtension registers a lifecycle extension with the engine.
func WithExtension(x ext.Extension) Option {
	return func(e *Engine) { e.pendingExts = append(e.pendingExts, x) }
}

// WithMiddleware appends middleware to the execution chain. User
// middleware runs inside the default stack, closest to the processor.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.userMws = append(e.userMws, m) }
}
