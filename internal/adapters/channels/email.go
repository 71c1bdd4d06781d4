package channels

import (
	"context"
	"fmt"
	"html"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// EmailAdapter sends through the outbound provider. A nil sender means the
// provider is unconfigured, reported as Skipped rather than attempted.
type EmailAdapter struct {
	sender ports.EmailSender
}

func NewEmailAdapter(sender ports.EmailSender) *EmailAdapter {
	return &EmailAdapter{sender: sender}
}

func (a *EmailAdapter) Kind() domain.ChannelKind { return domain.ChannelEmail }

func (a *EmailAdapter) Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome {
	if a.sender == nil {
		return domain.SkippedOutcome(domain.ChannelEmail, recipient.ID, domain.SkipReasonNotConfigured)
	}
	if recipient.Email == "" {
		return domain.SkippedOutcome(domain.ChannelEmail, recipient.ID, domain.SkipReasonNoDestination)
	}
	subject := event.Title
	if subject == "" {
		subject = event.EventType
	}
	if err := a.sender.Send(ctx, recipient.Email, subject, renderBody(event)); err != nil {
		return domain.FailedOutcome(domain.ChannelEmail, recipient.ID, err.Error())
	}
	return domain.SucceededOutcome(domain.ChannelEmail, recipient.ID)
}

func renderBody(event domain.Event) string {
	body := event.Body
	if body == "" {
		body = event.Title
	}
	return fmt.Sprintf("<html><body><p>%s</p></body></html>", html.EscapeString(body))
}
