// Package job defines the Job model (type, priority, lifecycle state,
// payload) and the processor registry that maps each job type to its
// handler.
//
// # Lifecycle
//
//	pending → processing → completed
//	                     → retrying → (re-enqueued, behaves as pending)
//	                     → failed
//
// completed and failed are the only terminal states. A retrying job is
// immediately pushed back onto its original priority queue; its
// NextRetryAt timestamp is advisory metadata, not an enforced delay.
//
// # Typed processors
//
// Register processors with a typed Definition so payload shapes are
// checked at compile time:
//
//	def := job.NewDefinition(job.TypeSendEmail,
//	    func(ctx context.Context, p EmailPayload) (any, error) {
//	        return mailer.Send(ctx, p)
//	    },
//	)
//	job.RegisterDefinition(registry, def)
package job
