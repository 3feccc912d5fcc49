package job

import (
	"encoding/json"
	"fmt"
	"time"

	taskq "github.com/cvdesk/taskq"
	"github.com/cvdesk/taskq/id"
)

// Type tags a job with the processor that handles it. The enumeration is
// closed: enqueueing an unknown type is rejected up front.
type Type string

// All job types the platform dispatches.
const (
	TypeImageResize      Type = "image-resize"
	TypeImageOptimize    Type = "image-optimize"
	TypeExportCV         Type = "export-cv"
	TypeExportBulk       Type = "export-bulk"
	TypeImportFile       Type = "import-file"
	TypeSendEmail        Type = "send-email"
	TypeSendBulkEmail    Type = "send-bulk-email"
	TypeSyncData         Type = "sync-data"
	TypeGenerateReport   Type = "generate-report"
	TypeCleanup          Type = "cleanup"
	TypeBackup           Type = "backup"
	TypeUpdateStatistics Type = "update-statistics"
)

// Types returns the closed enumeration of job types.
func Types() []Type {
	return []Type{
		TypeImageResize,
		TypeImageOptimize,
		TypeExportCV,
		TypeExportBulk,
		TypeImportFile,
		TypeSendEmail,
		TypeSendBulkEmail,
		TypeSyncData,
		TypeGenerateReport,
		TypeCleanup,
		TypeBackup,
		TypeUpdateStatistics,
	}
}

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Priority determines which physical queue a job occupies. It is not a
// heap ordering; each level is a separate FIFO list.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// QueueName returns the physical queue for this priority level.
func (p Priority) QueueName() string {
	switch p {
	case PriorityUrgent:
		return "jobs:urgent"
	case PriorityHigh:
		return "jobs:high"
	case PriorityNormal:
		return "jobs:normal"
	default:
		return "jobs:low"
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// ParsePriority converts a priority name ("low", "normal", "high",
// "urgent") to its Priority value.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityNormal, fmt.Errorf("job: unknown priority %q", s)
}

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is sitting in a queue waiting for a
	// dispatch pass. A job re-enqueued after a retry decision is
	// behaviorally identical to pending.
	StatePending State = "pending"
	// StateProcessing means the dispatcher is currently executing the job.
	StateProcessing State = "processing"
	// StateCompleted means the job finished successfully. Terminal.
	StateCompleted State = "completed"
	// StateFailed means the job exhausted its attempts (or had no
	// processor) and will not run again. Terminal.
	StateFailed State = "failed"
	// StateRetrying means the job failed and has been re-enqueued.
	StateRetrying State = "retrying"
)

// Job is a unit of deferred work.
//
// A job is owned exclusively by whichever queue currently holds it. Once
// popped for processing it has no owner record until it is finalized to the
// activity log or re-pushed for retry, which is what makes delivery
// at-least-once rather than exactly-once.
type Job struct {
	taskq.Entity

	ID          id.ID           `json:"id"`
	Type        Type            `json:"type"`
	Priority    Priority        `json:"priority"`
	State       State           `json:"state"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	// NextRetryAt is only meaningful while State is StateRetrying. It is
	// advisory metadata: retries are re-enqueued immediately and become
	// visible on the next dispatch pass regardless of this timestamp.
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// New constructs a pending Job of the given type with a fresh ID and the
// payload serialized as JSON.
func New(t Type, payload any, opts ...Option) (*Job, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("job: marshal payload for %s: %w", t, err)
		}
		raw = data
	}

	now := time.Now().UTC()
	j := &Job{
		Entity:      taskq.Entity{CreatedAt: now, UpdatedAt: now},
		ID:          id.NewJobID(),
		Type:        t,
		Priority:    o.Priority,
		State:       StatePending,
		Payload:     raw,
		MaxAttempts: o.MaxAttempts,
	}

	if o.Delay > 0 {
		at := now.Add(o.Delay)
		j.NextRetryAt = &at
	}

	return j, nil
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}
