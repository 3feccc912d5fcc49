// Package taskq is the background-processing core of the cvdesk platform.
// It provides priority-ordered job dispatch with retry and exponential
// backoff, plus the cache, rate-limit, and session primitives built on the
// same shared key-value store.
//
// taskq is designed as a library, not a service. Construct a kv.Store once
// at process startup and inject it into the components that need it:
//
//	client := kvredis.NewClient(kv.DefaultConfig())
//	store := kvredis.New(client)
//
//	eng := engine.New(store,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(audit.New(recorder)),
//	)
//	engine.RegisterDefinition(eng, processors.Cleanup(cache.New(store)))
//	eng.Start(ctx)
//
// # Delivery model
//
// One polling dispatcher drains four physical queues (urgent, high, normal,
// low) in strict priority order each pass. Jobs are delivered at least once
// under a single active dispatcher; there is no visibility timeout, so a
// crash between pop and finalize can drop a job, and running two dispatchers
// against the same store can execute a job twice. See the engine package
// documentation for details.
//
// All entity IDs are TypeIDs: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package taskq
