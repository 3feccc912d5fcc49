package audit

// Actions recorded to the activity log. Terminal states and retry
// decisions are recorded by default; enqueue/start are opt-in.
const (
	ActionJobEnqueued  = "JOB_ENQUEUED"
	ActionJobStarted   = "JOB_STARTED"
	ActionJobCompleted = "JOB_COMPLETED"
	ActionJobFailed    = "JOB_FAILED"
	ActionJobRetrying  = "JOB_RETRYING"
)

// ActorSystem is the actor recorded for dispatcher-originated events.
const ActorSystem = "system"

// TargetTypeJob is the target type recorded for job events.
const TargetTypeJob = "JOB"

// DefaultActions returns the actions recorded when no WithActions option
// is given: every terminal state plus every retry decision. This is the
// durable job history contract; the queue itself holds no history once a
// job is popped.
func DefaultActions() []string {
	return []string{
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobRetrying,
	}
}

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobEnqueued,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobRetrying,
	}
}
