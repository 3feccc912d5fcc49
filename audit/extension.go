// Package audit bridges job lifecycle events to the platform's activity
// log. Every terminal transition (completed, failed) and every retry
// decision is appended as an activity record carrying the full job
// snapshot, which is the only durable trace of job history.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cvdesk/taskq/ext"
	"github.com/cvdesk/taskq/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobEnqueued  = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobRetrying  = (*Extension)(nil)
)

// Event is one activity-log record. The backing log store is external;
// callers inject a Recorder that bridges to it at wiring time.
type Event struct {
	Actor       string         `json:"actor"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TargetType  string         `json:"target_type"`
	TargetID    string         `json:"target_id"`
}

// Recorder is the interface activity-log backends must implement.
type Recorder interface {
	// Record persists a fully-formed activity event.
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Extension bridges dispatcher lifecycle events to the activity log.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool
	logger   *slog.Logger
}

// New creates an Extension that records activity through the provided
// Recorder. By default only terminal and retry actions are recorded.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.enabled == nil {
		e.enabled = make(map[string]bool, len(DefaultActions()))
		for _, a := range DefaultActions() {
			e.enabled[a] = true
		}
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "activity-log" }

// OnJobEnqueued implements ext.JobEnqueued.
func (e *Extension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobEnqueued, j,
		fmt.Sprintf("job %s (%s) enqueued to %s", j.ID, j.Type, j.Priority.QueueName()))
}

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobStarted, j,
		fmt.Sprintf("job %s (%s) started, attempt %d/%d", j.ID, j.Type, j.Attempts, j.MaxAttempts))
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCompleted, j,
		fmt.Sprintf("job %s (%s) completed in %s", j.ID, j.Type, elapsed.Round(time.Millisecond)))
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return e.record(ctx, ActionJobFailed, j,
		fmt.Sprintf("job %s (%s) failed after %d attempts: %s", j.ID, j.Type, j.Attempts, jobErr))
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRetryAt time.Time) error {
	return e.record(ctx, ActionJobRetrying, j,
		fmt.Sprintf("job %s (%s) retry %d/%d scheduled for %s",
			j.ID, j.Type, attempt, j.MaxAttempts, nextRetryAt.Format(time.RFC3339)))
}

// record builds and sends an activity event if the action is enabled.
// Recorder failures are logged and never propagate to the dispatch loop.
func (e *Extension) record(ctx context.Context, action string, j *job.Job, description string) error {
	if !e.enabled[action] {
		return nil
	}

	evt := &Event{
		Actor:       ActorSystem,
		Action:      action,
		Description: description,
		Metadata:    jobSnapshot(j),
		TargetType:  TargetTypeJob,
		TargetID:    j.ID.String(),
	}

	if err := e.recorder.Record(ctx, evt); err != nil {
		e.logger.Warn("activity log record failed",
			slog.String("action", action),
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// jobSnapshot captures the full job record as event metadata.
func jobSnapshot(j *job.Job) map[string]any {
	data, err := json.Marshal(j)
	if err != nil {
		return map[string]any{"id": j.ID.String(), "type": string(j.Type)}
	}
	var snapshot map[string]any
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return map[string]any{"id": j.ID.String(), "type": string(j.Type)}
	}
	return snapshot
}
