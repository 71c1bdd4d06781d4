package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// SyncEngine ingests one mailbox connection at a time: fetch past the
// cursor, filter blacklisted senders, persist message then attachments, and
// advance the cursor once per batch. Per-message and per-attachment failures
// are contained; only setup failures abort the sync.
type SyncEngine struct {
	logger   *slog.Logger
	registry ports.ConnectionRegistry
	emails   ports.InboundEmailRepository
	guard    *BlacklistGuard
	dialer   ports.MailboxDialer
	storage  ports.ObjectStorage
	cipher   ports.CredentialCipher
	nowFn    func() time.Time
}

func NewSyncEngine(
	logger *slog.Logger,
	registry ports.ConnectionRegistry,
	emails ports.InboundEmailRepository,
	guard *BlacklistGuard,
	dialer ports.MailboxDialer,
	storage ports.ObjectStorage,
	cipher ports.CredentialCipher,
) *SyncEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEngine{
		logger:   logger,
		registry: registry,
		emails:   emails,
		guard:    guard,
		dialer:   dialer,
		storage:  storage,
		cipher:   cipher,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// SyncConnection never lets a mailbox-protocol failure escape to the
// orchestration loop; every abort path is recorded on the connection row and
// returned as an Error outcome.
func (e *SyncEngine) SyncConnection(ctx context.Context, conn domain.MailConnection) (outcome domain.SyncOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			reason := fmt.Sprintf("panic: %v", rec)
			_ = e.registry.RecordError(ctx, conn.ConnectionID, reason, e.nowFn())
			outcome = domain.SyncErrorOutcome(conn.ConnectionID, reason, e.nowFn())
		}
	}()

	creds, err := e.openCredentials(conn)
	if err != nil {
		// Connection left untouched apart from the error note, so the next
		// cycle retries from the same cursor.
		return e.abort(ctx, conn, "decryption_failed")
	}

	session, err := e.dialer.Dial(ctx, conn, creds)
	if err != nil {
		return e.abort(ctx, conn, "connect_failed: "+err.Error())
	}
	defer session.Close()

	messages, err := session.FetchSince(ctx, conn.LastUID, conn.SyncFromDate)
	if err != nil {
		return e.abort(ctx, conn, "fetch_failed: "+err.Error())
	}

	if len(messages) == 0 {
		_ = e.registry.TouchSyncedAt(ctx, conn.ConnectionID, e.nowFn())
		return domain.SyncOutcome{
			ConnectionID: conn.ConnectionID,
			Status:       domain.SyncNoNewMessages,
			CompletedAt:  e.nowFn(),
		}
	}

	persisted, skipped, failed := 0, 0, 0
	highestUID := conn.LastUID
	for _, msg := range messages {
		if msg.UID > highestUID {
			highestUID = msg.UID
		}
		switch e.ingestMessage(ctx, conn, msg) {
		case ingestPersisted:
			persisted++
		case ingestSkipped:
			skipped++
		case ingestFailed:
			failed++
		}
	}

	// Cursor moves once, after the whole batch. A crash before this point
	// re-fetches the batch; duplicate message ids are skipped on replay.
	if err := e.registry.AdvanceCursor(ctx, conn.ConnectionID, highestUID, e.nowFn()); err != nil {
		return e.abort(ctx, conn, "cursor_advance_failed: "+err.Error())
	}

	e.logger.InfoContext(ctx, "mailbox sync completed",
		"module", "sync_engine",
		"layer", "application",
		"operation", "sync_connection",
		"outcome", "success",
		"connection_id", conn.ConnectionID,
		"team_id", conn.TeamID,
		"persisted", persisted,
		"skipped", skipped,
		"failed", failed,
		"last_uid", highestUID,
	)
	return domain.SyncOutcome{
		ConnectionID: conn.ConnectionID,
		Status:       domain.SyncSuccess,
		Persisted:    persisted,
		Skipped:      skipped,
		Failed:       failed,
		CompletedAt:  e.nowFn(),
	}
}

type ingestResult int

const (
	ingestPersisted ingestResult = iota
	ingestSkipped
	ingestFailed
)

// ingestMessage handles one fetched message in isolation. A blacklisted
// sender skips the whole message before any row is written; a persistence
// failure is logged and confined to this message.
func (e *SyncEngine) ingestMessage(ctx context.Context, conn domain.MailConnection, msg ports.FetchedMessage) ingestResult {
	sender := domain.NormalizeAddress(msg.FromAddress)

	blocked, err := e.guard.IsBlacklisted(ctx, conn.TeamID, sender)
	if err != nil {
		// Fail open: an unavailable blacklist must not drop legitimate mail.
		e.logger.WarnContext(ctx, "blacklist lookup failed, treating sender as allowed",
			"module", "sync_engine",
			"layer", "application",
			"operation", "blacklist_check",
			"outcome", "failure",
			"connection_id", conn.ConnectionID,
			"sender", sender,
			"error", err,
		)
	}
	if blocked {
		e.logger.InfoContext(ctx, "message skipped, sender blacklisted",
			"module", "sync_engine",
			"layer", "application",
			"operation", "ingest_message",
			"outcome", "skipped",
			"connection_id", conn.ConnectionID,
			"sender", sender,
			"message_id", msg.MessageID,
		)
		return ingestSkipped
	}

	row := domain.InboundMessage{
		EmailID:      newEmailID(),
		ConnectionID: conn.ConnectionID,
		TeamID:       conn.TeamID,
		MessageID:    msg.MessageID,
		UID:          msg.UID,
		FromAddress:  sender,
		ToAddresses:  msg.ToAddresses,
		Subject:      msg.Subject,
		BodyText:     msg.BodyText,
		BodyHTML:     msg.BodyHTML,
		ReceivedAt:   msg.ReceivedAt.UTC(),
		CreatedAt:    e.nowFn(),
	}
	if err := e.emails.CreateMessage(ctx, row); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Already ingested on a previous run; replay is safe by design.
			return ingestSkipped
		}
		e.logger.ErrorContext(ctx, "message persist failed",
			"module", "sync_engine",
			"layer", "application",
			"operation", "persist_message",
			"outcome", "failure",
			"connection_id", conn.ConnectionID,
			"message_id", msg.MessageID,
			"uid", msg.UID,
			"error", err,
		)
		return ingestFailed
	}

	for _, att := range msg.Attachments {
		e.persistAttachment(ctx, conn, row.EmailID, att)
	}
	return ingestPersisted
}

// persistAttachment uploads bytes first and writes metadata second; a failed
// upload skips this attachment without rolling back the parent message.
func (e *SyncEngine) persistAttachment(ctx context.Context, conn domain.MailConnection, emailID string, att ports.FetchedAttachment) {
	if e.storage == nil {
		e.logger.WarnContext(ctx, "attachment dropped, no object storage configured",
			"module", "sync_engine",
			"layer", "application",
			"operation", "upload_attachment",
			"outcome", "skipped",
			"connection_id", conn.ConnectionID,
			"email_id", emailID,
			"filename", att.Filename,
		)
		return
	}
	attachmentID := newAttachmentID()
	key := fmt.Sprintf("teams/%s/emails/%s/%s", conn.TeamID, emailID, attachmentID)
	location, err := e.storage.Upload(ctx, key, bytes.NewReader(att.Data), att.ContentType)
	if err != nil {
		e.logger.ErrorContext(ctx, "attachment upload failed",
			"module", "sync_engine",
			"layer", "application",
			"operation", "upload_attachment",
			"outcome", "failure",
			"connection_id", conn.ConnectionID,
			"email_id", emailID,
			"filename", att.Filename,
			"error", err,
		)
		return
	}
	row := domain.Attachment{
		AttachmentID: attachmentID,
		EmailID:      emailID,
		Filename:     att.Filename,
		ContentType:  att.ContentType,
		SizeBytes:    int64(len(att.Data)),
		StoragePath:  location,
		CreatedAt:    e.nowFn(),
	}
	if err := e.emails.CreateAttachment(ctx, row); err != nil {
		e.logger.ErrorContext(ctx, "attachment metadata persist failed",
			"module", "sync_engine",
			"layer", "application",
			"operation", "persist_attachment",
			"outcome", "failure",
			"email_id", emailID,
			"filename", att.Filename,
			"error", err,
		)
	}
}

func (e *SyncEngine) openCredentials(conn domain.MailConnection) (ports.PlainCredentials, error) {
	if len(conn.CredentialCiphertext) == 0 {
		return ports.PlainCredentials{}, domain.ErrDecryptionFailed
	}
	plaintext, err := e.cipher.Open(conn.CredentialCiphertext)
	if err != nil {
		return ports.PlainCredentials{}, domain.ErrDecryptionFailed
	}
	var creds ports.PlainCredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return ports.PlainCredentials{}, domain.ErrDecryptionFailed
	}
	return creds, nil
}

func (e *SyncEngine) abort(ctx context.Context, conn domain.MailConnection, reason string) domain.SyncOutcome {
	e.logger.ErrorContext(ctx, "mailbox sync aborted",
		"module", "sync_engine",
		"layer", "application",
		"operation", "sync_connection",
		"outcome", "failure",
		"connection_id", conn.ConnectionID,
		"team_id", conn.TeamID,
		"reason", reason,
	)
	_ = e.registry.RecordError(ctx, conn.ConnectionID, reason, e.nowFn())
	return domain.SyncErrorOutcome(conn.ConnectionID, reason, e.nowFn())
}

func newEmailID() string      { return "email-" + uuid.NewString() }
func newAttachmentID() string { return "att-" + uuid.NewString() }
