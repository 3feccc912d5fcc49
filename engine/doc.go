// Package engine wires the dispatcher subsystems together. It owns the
// processor registry, the extension registry, the middleware chain, and
// the polling loop that drains the priority queues.
//
// The engine package sits above all subsystem packages and below the
// application layer, which keeps the root taskq package (Entity, Config,
// sentinel errors) importable by every subsystem without cycles.
//
// # Building an Engine
//
//	store := kvredis.New(kvredis.NewClient(kv.DefaultConfig()))
//
//	eng := engine.New(store,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(audit.New(recorder)),
//	    engine.WithMiddleware(myMiddleware),
//	)
//
// # Registering Processors
//
//	engine.RegisterDefinition(eng, processors.ExportCV(renderer))
//
// # Enqueuing and Running
//
//	jobID, err := eng.Enqueue(ctx, job.TypeExportCV, payload,
//	    job.WithPriority(job.PriorityHigh),
//	)
//
//	eng.Start(ctx)
//	defer eng.Stop(ctx)
//
// # Delivery model
//
// The engine is a single-dispatcher, at-least-once system. One polling
// loop drains the queues; a re-entrancy guard skips a pass while the
// previous one is still running. A job popped from a queue exists only
// in the dispatcher's memory until it reaches a terminal state, so a
// crash mid-execution loses the in-flight job. There is no visibility
// timeout and no cross-process locking.
package engine
