package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/cvdesk/taskq/cache"
	"github.com/cvdesk/taskq/job"
)

// CleanupPayload names the cache key patterns to clear. An empty list
// clears everything.
type CleanupPayload struct {
	Patterns []string `json:"patterns,omitempty"`
}

// Cleanup returns the processor that evicts stale cache entries. With
// no patterns it clears the whole cache namespace.
func Cleanup(c *cache.Manager) *job.Definition[CleanupPayload] {
	return job.NewDefinition(job.TypeCleanup,
		func(ctx context.Context, p CleanupPayload) (any, error) {
			patterns := p.Patterns
			if len(patterns) == 0 {
				patterns = []string{"*"}
			}

			total := 0
			for _, pattern := range patterns {
				n, err := c.ClearPattern(ctx, pattern)
				if err != nil {
					return nil, fmt.Errorf("processors: cleanup pattern %q: %w", pattern, err)
				}
				total += n
			}
			return map[string]any{"removed": total}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}

// Archiver produces a backup archive and returns its location.
type Archiver interface {
	Backup(ctx context.Context, target string) (string, error)
}

// BackupPayload names what to back up. Empty means the primary database.
type BackupPayload struct {
	Target string `json:"target,omitempty"`
}

// Backup returns the processor for scheduled backups.
func Backup(a Archiver) *job.Definition[BackupPayload] {
	return job.NewDefinition(job.TypeBackup,
		func(ctx context.Context, p BackupPayload) (any, error) {
			target := p.Target
			if target == "" {
				target = "database"
			}
			loc, err := a.Backup(ctx, target)
			if err != nil {
				return nil, fmt.Errorf("processors: backup %s: %w", target, err)
			}
			return map[string]any{"target": target, "path": loc}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}

// StatsComputer recomputes the dashboard statistics.
type StatsComputer interface {
	Compute(ctx context.Context) (map[string]any, error)
}

// statsCacheKey is where the dashboard reads its precomputed figures.
const statsCacheKey = "stats:dashboard"

// UpdateStatisticsPayload optionally overrides the cache TTL in seconds.
type UpdateStatisticsPayload struct {
	TTLSeconds int `json:"ttlSeconds,omitempty"`
}

// UpdateStatistics returns the processor that recomputes dashboard
// statistics and primes the cache with them so the next dashboard load
// is a cache hit.
func UpdateStatistics(s StatsComputer, c *cache.Manager) *job.Definition[UpdateStatisticsPayload] {
	return job.NewDefinition(job.TypeUpdateStatistics,
		func(ctx context.Context, p UpdateStatisticsPayload) (any, error) {
			stats, err := s.Compute(ctx)
			if err != nil {
				return nil, fmt.Errorf("processors: compute statistics: %w", err)
			}

			ttl := time.Hour
			if p.TTLSeconds > 0 {
				ttl = time.Duration(p.TTLSeconds) * time.Second
			}

			// Priming is best-effort: the cache manager swallows store
			// failures, so only an unserializable result errors here.
			if err := c.Set(ctx, statsCacheKey, stats, ttl); err != nil {
				return nil, fmt.Errorf("processors: cache statistics: %w", err)
			}
			return map[string]any{"computed": len(stats)}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}
