package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/cvdesk/taskq/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace, so a
// panicking processor is treated like any other failed attempt.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job processor panicked",
					slog.String("job_type", string(j.Type)),
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in job %s: %v", j.Type, r)
			}
		}()
		return next(ctx)
	}
}
