package taskq

import "time"

// Config holds configuration for the dispatch engine.
type Config struct {
	// PollInterval is how often the dispatcher runs a pass over the
	// priority queues.
	PollInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// UrgentBatchSize is how many jobs a single pass may pop from the
	// urgent queue. The larger share keeps urgent work flowing without
	// letting one saturated queue monopolise a pass.
	UrgentBatchSize int

	// BatchSize is how many jobs a single pass may pop from each of the
	// high, normal, and low queues.
	BatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    1 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		UrgentBatchSize: 5,
		BatchSize:       3,
	}
}
