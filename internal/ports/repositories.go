package ports

import (
	"context"
	"time"

	"github.com/seido-app/courier/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, row domain.Notification) error
	GetByID(ctx context.Context, notificationID string) (domain.Notification, error)
	Update(ctx context.Context, row domain.Notification) error
	ListByUserID(ctx context.Context, userID string, filter domain.NotificationFilter) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ConnectionRegistry owns mailbox connection rows. Cursor mutations are
// scoped to one connection row; syncs of different connections never contend.
type ConnectionRegistry interface {
	ListActive(ctx context.Context, teamID string) ([]domain.MailConnection, error)
	GetByID(ctx context.Context, connectionID string) (domain.MailConnection, error)
	// AdvanceCursor moves last_uid to the batch high-water mark, refreshes
	// last_sync_at and clears last_error. Rewinds return ErrCursorRewind.
	AdvanceCursor(ctx context.Context, connectionID string, newUID uint32, at time.Time) error
	// TouchSyncedAt refreshes last_sync_at without moving the cursor
	// (the no-new-messages path).
	TouchSyncedAt(ctx context.Context, connectionID string, at time.Time) error
	RecordError(ctx context.Context, connectionID, message string, at time.Time) error
	// ResetCursor rewinds last_uid for an explicit full resync.
	ResetCursor(ctx context.Context, connectionID string, uid uint32, at time.Time) error
	Deactivate(ctx context.Context, connectionID string, at time.Time) error
}

type InboundEmailRepository interface {
	// CreateMessage persists one message row. A duplicate message_id for the
	// same connection returns domain.ErrConflict so re-fetched messages are
	// safely re-skippable.
	CreateMessage(ctx context.Context, row domain.InboundMessage) error
	CreateAttachment(ctx context.Context, row domain.Attachment) error
	GetMessage(ctx context.Context, emailID string) (domain.InboundMessage, error)
	ListByConnection(ctx context.Context, connectionID string, limit int) ([]domain.InboundMessage, error)
	ListAttachments(ctx context.Context, emailID string) ([]domain.Attachment, error)
}

type BlacklistRepository interface {
	// Add is append-only; inserting an address already present for the team
	// returns domain.ErrConflict.
	Add(ctx context.Context, entry domain.BlacklistEntry) error
	Exists(ctx context.Context, teamID, normalizedAddress string) (bool, error)
	ListByTeam(ctx context.Context, teamID string) ([]domain.BlacklistEntry, error)
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

// DispatchLogRepository records aggregate dispatch results for the operator
// surface; per-outcome details live in the result JSON.
type DispatchLogRepository interface {
	Create(ctx context.Context, result domain.DispatchResult) error
	ListRecent(ctx context.Context, limit int) ([]domain.DispatchResult, error)
}
