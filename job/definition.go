package job

import "context"

// Definition is a typed processor definition for one job type.
// T is the payload shape for that type (must be JSON-serializable), which
// gives the registry compile-time safety instead of runtime shape
// assumptions.
type Definition[T any] struct {
	// Type is the job type this processor handles.
	Type Type

	// Handler processes the decoded payload and returns a result value
	// that is serialized onto the job record.
	Handler func(ctx context.Context, payload T) (any, error)

	// Opts are the default enqueue options for this job type.
	Opts Options
}

// NewDefinition creates a typed processor definition.
func NewDefinition[T any](t Type, handler func(ctx context.Context, payload T) (any, error), opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Type:    t,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}
