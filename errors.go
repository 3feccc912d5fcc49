package taskq

import "errors"

var (
	// Dispatch errors.
	ErrNoProcessor    = errors.New("taskq: no processor available")
	ErrUnknownJobType = errors.New("taskq: unknown job type")

	// Lifecycle errors.
	ErrAlreadyRunning = errors.New("taskq: dispatcher already running")
	ErrNotRunning     = errors.New("taskq: dispatcher not running")
)
