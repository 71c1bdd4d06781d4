package channels

import (
	"context"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// PushAdapter posts to the vendor push API. Unconfigured vendor or a
// recipient without a subscription endpoint is a skip, not a failure.
type PushAdapter struct {
	sender ports.PushSender
}

func NewPushAdapter(sender ports.PushSender) *PushAdapter {
	return &PushAdapter{sender: sender}
}

func (a *PushAdapter) Kind() domain.ChannelKind { return domain.ChannelPush }

func (a *PushAdapter) Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome {
	if a.sender == nil {
		return domain.SkippedOutcome(domain.ChannelPush, recipient.ID, domain.SkipReasonNotConfigured)
	}
	if recipient.PushEndpoint == "" {
		return domain.SkippedOutcome(domain.ChannelPush, recipient.ID, domain.SkipReasonNoDestination)
	}
	payload := ports.PushPayload{
		Title: event.Title,
		Body:  event.Body,
		Data:  event.Metadata,
	}
	if err := a.sender.Send(ctx, recipient.PushEndpoint, payload); err != nil {
		return domain.FailedOutcome(domain.ChannelPush, recipient.ID, err.Error())
	}
	return domain.SucceededOutcome(domain.ChannelPush, recipient.ID)
}
