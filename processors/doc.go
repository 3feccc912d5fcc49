// Package processors provides the processor definitions for every job
// type the platform dispatches. Each constructor takes the collaborators
// it needs (renderers, mailers, stores) as interfaces and returns a typed
// definition ready for engine.RegisterDefinition.
//
//	engine.RegisterDefinition(eng, processors.ExportCV(renderer, sink))
//	engine.RegisterDefinition(eng, processors.SendBulkEmail(mailer,
//	    rate.NewLimiter(rate.Every(time.Second), 5)))
//
// Processors return a result value that the engine serializes onto the
// job record; returning an error triggers the retry policy.
package processors
