package job

import "time"

// Options configures per-job behavior at enqueue time.
type Options struct {
	// Priority selects the physical queue the job occupies.
	Priority Priority

	// MaxAttempts is the execution ceiling before the job fails terminally.
	MaxAttempts int

	// Delay requests deferred execution. The current dispatcher records it
	// on the job (NextRetryAt) but does not defer the push; see the
	// engine package documentation.
	Delay time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Priority:    PriorityNormal,
		MaxAttempts: 3,
	}
}

// Option is a functional option for configuring a job at enqueue time.
type Option func(*Options)

// WithPriority selects the job's priority queue.
func WithPriority(p Priority) Option {
	return func(o *Options) { o.Priority = p }
}

// WithMaxAttempts sets the execution ceiling.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithDelay requests deferred execution (advisory; see Options.Delay).
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}
