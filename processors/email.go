package processors

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/cvdesk/taskq/job"
)

// Mailer delivers email. Implementations wrap the deployment's SMTP
// relay or delivery API.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// EmailPayload is a single outbound message.
type EmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// SendEmail returns the processor for single transactional emails
// (interview invitations, status updates). These run urgent so a
// backlog of batch work does not delay them.
func SendEmail(m Mailer) *job.Definition[EmailPayload] {
	return job.NewDefinition(job.TypeSendEmail,
		func(ctx context.Context, p EmailPayload) (any, error) {
			if len(p.To) == 0 {
				return nil, fmt.Errorf("processors: send email: no recipients")
			}
			if err := m.Send(ctx, p.To, p.Subject, p.Body); err != nil {
				return nil, fmt.Errorf("processors: send email: %w", err)
			}
			return map[string]any{"recipients": len(p.To)}, nil
		},
		job.WithPriority(job.PriorityUrgent),
	)
}

// BulkEmailPayload is a campaign-style send: the same message to many
// recipients, delivered one at a time.
type BulkEmailPayload struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// SendBulkEmail returns the processor for bulk sends. The limiter paces
// deliveries so a campaign cannot trip the relay's sending quota.
// Individual failures are counted, not fatal; the processor errors only
// when every delivery failed.
func SendBulkEmail(m Mailer, limiter *rate.Limiter) *job.Definition[BulkEmailPayload] {
	return job.NewDefinition(job.TypeSendBulkEmail,
		func(ctx context.Context, p BulkEmailPayload) (any, error) {
			if len(p.Recipients) == 0 {
				return nil, fmt.Errorf("processors: bulk email: no recipients")
			}

			var sent, failed int
			for _, rcpt := range p.Recipients {
				if err := limiter.Wait(ctx); err != nil {
					return nil, fmt.Errorf("processors: bulk email pacing: %w", err)
				}
				if err := m.Send(ctx, []string{rcpt}, p.Subject, p.Body); err != nil {
					failed++
					continue
				}
				sent++
			}

			if sent == 0 {
				return nil, fmt.Errorf("processors: bulk email: all %d deliveries failed", failed)
			}
			return map[string]any{"sent": sent, "failed": failed}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}
