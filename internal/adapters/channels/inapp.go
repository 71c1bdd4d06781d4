package channels

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// InAppAdapter persists one notification row per send. The row is what the
// HTTP feed serves back to the user.
type InAppAdapter struct {
	notifications ports.NotificationRepository
	nowFn         func() time.Time
}

func NewInAppAdapter(notifications ports.NotificationRepository) *InAppAdapter {
	return &InAppAdapter{
		notifications: notifications,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

func (a *InAppAdapter) Kind() domain.ChannelKind { return domain.ChannelInApp }

func (a *InAppAdapter) Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome {
	if a.notifications == nil {
		return domain.SkippedOutcome(domain.ChannelInApp, recipient.ID, domain.SkipReasonNotConfigured)
	}
	row := domain.Notification{
		NotificationID:  "notif-" + uuid.NewString(),
		UserID:          recipient.ID,
		TeamID:          event.TeamID,
		Type:            event.EventType,
		Title:           event.Title,
		Body:            event.Body,
		Metadata:        event.Metadata,
		SourceEventID:   event.EventID,
		SourceEventType: event.EventType,
		CreatedAt:       a.nowFn(),
	}
	if err := a.notifications.Create(ctx, row); err != nil {
		return domain.FailedOutcome(domain.ChannelInApp, recipient.ID, err.Error())
	}
	return domain.SucceededOutcome(domain.ChannelInApp, recipient.ID)
}
