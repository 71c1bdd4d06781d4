package ports

import (
	"context"

	"github.com/seido-app/courier/internal/domain"
)

// ChannelAdapter wraps one delivery mechanism. Send never returns a Go
// error: every internal failure is converted to a Failed outcome so the
// dispatcher aggregates partial failures structurally.
type ChannelAdapter interface {
	Kind() domain.ChannelKind
	Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome
}

// EmailSender is the outbound provider behind the email channel adapter.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type PushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushSender is the vendor push API behind the push channel adapter.
type PushSender interface {
	Send(ctx context.Context, endpoint string, payload PushPayload) error
}

// RecipientResolver is supplied by the application directory layer; the
// dispatcher never queries the directory itself.
type RecipientResolver interface {
	Resolve(ctx context.Context, event domain.Event) ([]domain.Recipient, error)
}
