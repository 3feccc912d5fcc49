package audit

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts (or widens) the recorded actions. Without this
// option DefaultActions() are recorded. Unknown actions are silently
// ignored.
//
// Example:
//
//	audit.New(recorder,
//	    audit.WithActions(audit.AllActions()...),
//	)
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
