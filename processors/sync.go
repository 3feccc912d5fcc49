package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/cvdesk/taskq/job"
)

// Syncer pulls records from an external system (job boards, partner
// agencies) into the platform.
type Syncer interface {
	// Sync pulls records from the named source changed since the given
	// time (nil means a full sync) and returns how many were applied.
	Sync(ctx context.Context, source string, since *time.Time) (int, error)
}

// SyncPayload names the external source and the incremental cutoff.
type SyncPayload struct {
	Source string     `json:"source"`
	Since  *time.Time `json:"since,omitempty"`
}

// SyncData returns the processor for external data synchronization.
func SyncData(s Syncer) *job.Definition[SyncPayload] {
	return job.NewDefinition(job.TypeSyncData,
		func(ctx context.Context, p SyncPayload) (any, error) {
			if p.Source == "" {
				return nil, fmt.Errorf("processors: sync: source is required")
			}
			applied, err := s.Sync(ctx, p.Source, p.Since)
			if err != nil {
				return nil, fmt.Errorf("processors: sync %s: %w", p.Source, err)
			}
			return map[string]any{"source": p.Source, "applied": applied}, nil
		},
		job.WithPriority(job.PriorityNormal),
	)
}
