package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cvdesk/taskq"
	"github.com/cvdesk/taskq/backoff"
	"github.com/cvdesk/taskq/ext"
	"github.com/cvdesk/taskq/id"
	"github.com/cvdesk/taskq/job"
	"github.com/cvdesk/taskq/kv"
	mw "github.com/cvdesk/taskq/middleware"
	"github.com/cvdesk/taskq/queue"
)

// passOrder is the strict priority order of a dispatch pass. Urgent is
// always drained first; low only sees service after the others.
var passOrder = [...]job.Priority{
	job.PriorityUrgent,
	job.PriorityHigh,
	job.PriorityNormal,
	job.PriorityLow,
}

// Engine is the priority dispatcher. It polls the four priority queues
// in strict order, executes jobs through the middleware chain, and
// applies the retry policy on failure.
type Engine struct {
	store      kv.Store
	queues     *queue.Manager
	registry   *job.Registry
	extensions *ext.Registry
	bo         backoff.Strategy
	chain      mw.Middleware
	logger     *slog.Logger
	cfg        taskq.Config

	// inFlight guards against overlapping passes: if a pass outlives the
	// poll interval, the next tick is skipped rather than stacked.
	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Deferred until New finishes so options can run in any order.
	pendingExts []ext.Extension
	userMws     []mw.Middleware
}

// New creates an Engine on the given key-value store.
func New(store kv.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: job.NewRegistry(),
		logger:   slog.Default(),
		cfg:      taskq.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.bo == nil {
		e.bo = backoff.DefaultStrategy()
	}

	e.queues = queue.New(store, queue.WithLogger(e.logger))

	e.extensions = ext.NewRegistry(e.logger)
	for _, x := range e.pendingExts {
		e.extensions.Register(x)
	}
	e.pendingExts = nil

	// Default middleware stack, outermost first. User middleware runs
	// innermost, closest to the processor.
	mws := []mw.Middleware{
		mw.Recover(e.logger),
		mw.Tracing(),
		mw.Metrics(),
		mw.Logging(e.logger),
	}
	mws = append(mws, e.userMws...)
	e.chain = mw.Chain(mws...)
	e.userMws = nil

	return e
}

// RegisterDefinition registers a typed processor definition with the
// engine. This is a package-level generic function because Go does not
// allow generic methods.
func RegisterDefinition[T any](e *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(e.registry, def)
}

// Registry returns the processor registry.
func (e *Engine) Registry() *job.Registry { return e.registry }

// Extensions returns the extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Queues returns the queue manager.
func (e *Engine) Queues() *queue.Manager { return e.queues }

// Enqueue validates the job type, creates the job record, and pushes it
// to the queue matching its priority. It returns the new job's ID.
//
// A delay option only stamps NextRetryAt on the record; the job still
// joins the queue immediately and is dispatched in FIFO order.
func (e *Engine) Enqueue(ctx context.Context, t job.Type, payload any, opts ...job.Option) (id.ID, error) {
	if !t.Valid() {
		return id.ID{}, fmt.Errorf("%w: %q", taskq.ErrUnknownJobType, t)
	}

	j, err := job.New(t, payload, opts...)
	if err != nil {
		return id.ID{}, err
	}

	if err := e.queues.Push(ctx, j.Priority.QueueName(), j); err != nil {
		return id.ID{}, err
	}

	e.extensions.EmitJobEnqueued(ctx, j)
	e.logger.Info("job enqueued",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", string(j.Type)),
		slog.String("queue", j.Priority.QueueName()),
	)
	return j.ID, nil
}

// ProcessPass runs one dispatch pass: each priority queue is visited in
// strict order and drained up to its batch cap. If a previous pass is
// still in flight the call is a no-op, so a slow pass delays rather than
// overlaps the next one.
func (e *Engine) ProcessPass(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)

	for _, p := range passOrder {
		limit := e.cfg.BatchSize
		if p == job.PriorityUrgent {
			limit = e.cfg.UrgentBatchSize
		}
		name := p.QueueName()

		length, err := e.queues.Length(ctx, name)
		if err != nil {
			e.logger.Warn("queue length check failed",
				slog.String("queue", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if length == 0 {
			continue
		}

		take := limit
		if length < int64(limit) {
			take = int(length)
		}

		for range take {
			j, err := e.queues.Pop(ctx, name)
			if err != nil {
				e.logger.Error("queue pop failed",
					slog.String("queue", name),
					slog.String("error", err.Error()),
				)
				break
			}
			if j == nil {
				break
			}
			e.executeJob(ctx, j)
		}
	}
}

// executeJob runs one attempt of a job through the middleware chain and
// applies the outcome: completed, retrying, or terminally failed.
func (e *Engine) executeJob(ctx context.Context, j *job.Job) {
	now := time.Now().UTC()
	j.State = job.StateProcessing
	j.StartedAt = &now
	j.Attempts++
	j.Touch()
	e.extensions.EmitJobStarted(ctx, j)

	// The attempt is already counted, so an unregistered type burns a
	// real attempt and fails terminally with Attempts recorded.
	handler, ok := e.registry.Get(j.Type)
	if !ok {
		e.failTerminal(ctx, j, fmt.Errorf("%w for job type %q", taskq.ErrNoProcessor, j.Type))
		return
	}

	var result any
	terminal := func(ctx context.Context) error {
		res, err := handler(ctx, j.Payload)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	start := time.Now()
	err := e.chain(ctx, j, terminal)
	elapsed := time.Since(start)

	if err == nil {
		done := time.Now().UTC()
		j.State = job.StateCompleted
		j.CompletedAt = &done
		j.NextRetryAt = nil
		if result != nil {
			data, mErr := json.Marshal(result)
			if mErr != nil {
				e.logger.Warn("job result not serializable",
					slog.String("job_id", j.ID.String()),
					slog.String("error", mErr.Error()),
				)
			} else {
				j.Result = data
			}
		}
		j.Touch()
		e.extensions.EmitJobCompleted(ctx, j, elapsed)
		return
	}

	j.LastError = err.Error()

	if j.Attempts < j.MaxAttempts {
		delay := e.bo.Delay(j.Attempts)
		next := time.Now().UTC().Add(delay)
		j.State = job.StateRetrying
		j.NextRetryAt = &next
		j.Touch()

		// Re-enqueue immediately; NextRetryAt is advisory. A push
		// failure here would lose the job, so it fails terminally.
		if pushErr := e.queues.Push(ctx, j.Priority.QueueName(), j); pushErr != nil {
			e.failTerminal(ctx, j, fmt.Errorf("requeue for retry: %w", pushErr))
			return
		}

		e.extensions.EmitJobRetrying(ctx, j, j.Attempts, next)
		e.logger.Warn("job retrying",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", string(j.Type)),
			slog.Int("attempt", j.Attempts),
			slog.Int("max_attempts", j.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		return
	}

	e.failTerminal(ctx, j, err)
}

// failTerminal moves a job to the failed state with no further retries.
func (e *Engine) failTerminal(ctx context.Context, j *job.Job, err error) {
	done := time.Now().UTC()
	j.State = job.StateFailed
	j.LastError = err.Error()
	j.CompletedAt = &done
	j.NextRetryAt = nil
	j.Touch()
	e.extensions.EmitJobFailed(ctx, j, err)
	e.logger.Error("job failed",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", string(j.Type)),
		slog.Int("attempts", j.Attempts),
		slog.String("error", err.Error()),
	)
}

// Start launches the polling loop. It runs one pass immediately, then
// one per poll interval until Stop is called or the context is done.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return taskq.ErrAlreadyRunning
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()

	e.logger.Info("dispatcher started",
		slog.Duration("poll_interval", e.cfg.PollInterval),
		slog.Int("registered_types", len(e.registry.Types())),
	)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()

		e.ProcessPass(ctx)
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.ProcessPass(ctx)
			}
		}
	}()

	return nil
}

// Stop shuts the polling loop down, waiting up to ShutdownTimeout for an
// in-flight pass to finish, then notifies extensions.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return taskq.ErrNotRunning
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(e.cfg.ShutdownTimeout):
		err = fmt.Errorf("taskq: shutdown timed out after %s", e.cfg.ShutdownTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.extensions.EmitShutdown(context.WithoutCancel(ctx))
	e.logger.Info("dispatcher stopped")
	return err
}

// Stats reports queue depths, registered types, and whether a pass is
// currently executing.
type Stats struct {
	Queues     map[string]int64 `json:"queues"`
	Processing bool             `json:"processing"`
	Types      []job.Type       `json:"types"`
}

// Stats returns a point-in-time snapshot of the dispatcher.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		Queues:     make(map[string]int64, len(passOrder)),
		Processing: e.inFlight.Load(),
		Types:      e.registry.Types(),
	}
	for _, p := range passOrder {
		name := p.QueueName()
		n, err := e.queues.Length(ctx, name)
		if err != nil {
			return nil, err
		}
		s.Queues[name] = n
	}
	return s, nil
}
