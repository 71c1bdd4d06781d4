package unit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/seido-app/courier/internal/application"
	"github.com/seido-app/courier/internal/contracts"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// fixture wires a full application service against in-memory fakes, the same
// shape the bootstrap layer assembles from real adapters.
type fixture struct {
	service       *application.Service
	notifications *memNotificationRepo
	registry      *memRegistry
	emails        *memEmailRepo
	dispatchLog   *memDispatchLog
	session       *memSession
}

func newFixture() *fixture {
	f := &fixture{
		notifications: newMemNotificationRepo(),
		registry:      newMemRegistry(),
		emails:        &memEmailRepo{},
		dispatchLog:   &memDispatchLog{},
		session:       &memSession{},
	}
	guard := application.NewBlacklistGuard(nil, newMemBlacklistRepo(), nil)
	engine := application.NewSyncEngine(nil, f.registry, f.emails, guard,
		&memDialer{session: f.session}, &memStorage{}, passthroughCipher{})
	orchestrator := application.NewOrchestrator(nil, f.registry, engine, newMemLocker(), 2, time.Minute)

	dispatcher := application.NewDispatcher(nil, []ports.ChannelAdapter{
		inAppAdapter{repo: f.notifications},
	}, nil, 4, time.Second)

	f.service = application.NewService(application.Dependencies{
		Notifications: f.notifications,
		Registry:      f.registry,
		Emails:        f.emails,
		Guard:         guard,
		Dispatcher:    dispatcher,
		Orchestrator:  orchestrator,
		EventDedup:    newMemDedup(),
		DispatchLog:   f.dispatchLog,
		Resolver:      staticResolver{},
	})
	return f
}

func manager() application.Actor {
	return application.Actor{SubjectID: "mgr-1", TeamID: "team-1", Role: "gestionnaire"}
}

func tenant() application.Actor {
	return application.Actor{SubjectID: "tenant-1", TeamID: "team-1", Role: "locataire"}
}

func admin() application.Actor {
	return application.Actor{SubjectID: "admin-1", Role: "admin"}
}

func TestListNotificationsScopedToCaller(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	f.notifications.seed(domain.Notification{NotificationID: "n1", UserID: "tenant-1", CreatedAt: time.Now().UTC()})
	f.notifications.seed(domain.Notification{NotificationID: "n2", UserID: "other", CreatedAt: time.Now().UTC()})

	items, total, err := f.service.ListNotifications(ctx, tenant(), application.ListNotificationsInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].NotificationID != "n1" {
		t.Fatalf("expected only the caller's notifications, got %+v", items)
	}

	// A non-admin cannot read someone else's feed.
	if _, _, err := f.service.ListNotifications(ctx, tenant(), application.ListNotificationsInput{UserID: "other"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// An admin can.
	items, _, err = f.service.ListNotifications(ctx, admin(), application.ListNotificationsInput{UserID: "other"})
	if err != nil || len(items) != 1 {
		t.Fatalf("admin cross-user read failed: %v (%d items)", err, len(items))
	}
}

func TestMarkReadAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.notifications.seed(domain.Notification{NotificationID: "n1", UserID: "tenant-1", CreatedAt: time.Now().UTC()})

	if _, err := f.service.MarkRead(ctx, application.Actor{SubjectID: "other", Role: "locataire"}, "n1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for foreign notification, got %v", err)
	}

	row, err := f.service.MarkRead(ctx, tenant(), "n1")
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if row.ReadAt == nil {
		t.Fatalf("expected read_at to be set")
	}

	count, _, err := f.service.UnreadCount(ctx, tenant(), "")
	if err != nil || count != 0 {
		t.Fatalf("expected zero unread after mark, got %d (%v)", count, err)
	}

	if _, err := f.service.MarkRead(ctx, tenant(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSyncMailboxRequiresOperatorRole(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.registry.seed(activeConnection("conn-1", "team-1"))

	if _, err := f.service.SyncMailbox(ctx, tenant(), "conn-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for tenant, got %v", err)
	}

	outcome, err := f.service.SyncMailbox(ctx, manager(), "conn-1")
	if err != nil {
		t.Fatalf("manager sync failed: %v", err)
	}
	if outcome.Status != domain.SyncNoNewMessages {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSyncAllMailboxesIngestsMail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.registry.seed(activeConnection("conn-1", "team-1"))
	f.session.messages = []ports.FetchedMessage{{
		UID:         7,
		MessageID:   "<m7@example.com>",
		FromAddress: "alice@example.com",
		Subject:     "hello",
		ReceivedAt:  time.Now().UTC(),
	}}

	outcomes, err := f.service.SyncAllMailboxes(ctx, manager())
	if err != nil {
		t.Fatalf("sync all failed: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Persisted != 1 {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if got := f.registry.cursor("conn-1"); got != 7 {
		t.Fatalf("cursor should be 7, got %d", got)
	}
}

func TestResetMailboxCursorIsAdminOnly(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	conn := activeConnection("conn-1", "team-1")
	conn.LastUID = 99
	f.registry.seed(conn)

	if err := f.service.ResetMailboxCursor(ctx, manager(), "conn-1", 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for manager, got %v", err)
	}
	if err := f.service.ResetMailboxCursor(ctx, admin(), "conn-1", 0); err != nil {
		t.Fatalf("admin reset failed: %v", err)
	}
	if got := f.registry.cursor("conn-1"); got != 0 {
		t.Fatalf("cursor should be rewound to 0, got %d", got)
	}
}

func TestBlacklistIsTeamScopedThroughService(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	entry, err := f.service.AddBlacklistEntry(ctx, manager(), "Spam@Junk.com", "repeated spam")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if entry.SenderAddress != "spam@junk.com" {
		t.Fatalf("expected normalized address, got %q", entry.SenderAddress)
	}

	entries, err := f.service.ListBlacklist(ctx, manager())
	if err != nil || len(entries) != 1 {
		t.Fatalf("list failed: %v (%d entries)", err, len(entries))
	}

	// An admin without a team has no team blacklist to read.
	if _, err := f.service.ListBlacklist(ctx, admin()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty team, got %v", err)
	}
}

func TestListDispatchLogRequiresOperator(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.dispatchLog.results = []domain.DispatchResult{{EventID: "evt-1", OverallSuccess: true}}

	if _, err := f.service.ListDispatchLog(ctx, tenant(), 10); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for tenant, got %v", err)
	}
	results, err := f.service.ListDispatchLog(ctx, manager(), 10)
	if err != nil || len(results) != 1 {
		t.Fatalf("manager read failed: %v (%d results)", err, len(results))
	}
}

func TestHandleEnvelopeEndToEndCreatesInAppNotification(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	data, _ := json.Marshal(map[string]any{"intervention_id": "int-1", "team_id": "team-1"})
	err := f.service.HandleEnvelope(ctx, envelope("evt-1", domain.EventInterventionAssigned, data))
	if err != nil {
		t.Fatalf("handle envelope failed: %v", err)
	}

	count, _, err := f.service.UnreadCount(ctx, tenant(), "")
	if err != nil || count != 1 {
		t.Fatalf("expected one unread in-app notification, got %d (%v)", count, err)
	}
	if len(f.dispatchLog.results) != 1 {
		t.Fatalf("expected one dispatch log entry")
	}
}

// --- fakes -----------------------------------------------------------------

func activeConnection(connectionID, teamID string) domain.MailConnection {
	creds, _ := json.Marshal(ports.PlainCredentials{Username: "inbox@example.com", Password: "pw"})
	return domain.MailConnection{
		ConnectionID:         connectionID,
		TeamID:               teamID,
		Host:                 "imap.example.com",
		Port:                 993,
		UseTLS:               true,
		Folder:               "INBOX",
		CredentialCiphertext: creds,
		IsActive:             true,
	}
}

func envelope(eventID, eventType string, data json.RawMessage) contracts.EventEnvelope {
	return contracts.EventEnvelope{
		EventID:    eventID,
		EventType:  eventType,
		TeamID:     "team-1",
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type memNotificationRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{rows: map[string]domain.Notification{}}
}

func (r *memNotificationRepo) seed(row domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.NotificationID] = row
}

func (r *memNotificationRepo) Create(_ context.Context, row domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.NotificationID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.NotificationID] = row
	return nil
}

func (r *memNotificationRepo) GetByID(_ context.Context, notificationID string) (domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[notificationID]
	if !ok {
		return domain.Notification{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *memNotificationRepo) Update(_ context.Context, row domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.NotificationID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.NotificationID] = row
	return nil
}

func (r *memNotificationRepo) ListByUserID(_ context.Context, userID string, _ domain.NotificationFilter) ([]domain.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0)
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type memRegistry struct {
	mu   sync.Mutex
	rows map[string]domain.MailConnection
}

func newMemRegistry() *memRegistry {
	return &memRegistry{rows: map[string]domain.MailConnection{}}
}

func (r *memRegistry) seed(conn domain.MailConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[conn.ConnectionID] = conn
}

func (r *memRegistry) cursor(connectionID string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[connectionID].LastUID
}

func (r *memRegistry) ListActive(_ context.Context, teamID string) ([]domain.MailConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.MailConnection, 0)
	for _, conn := range r.rows {
		if conn.IsActive && (teamID == "" || conn.TeamID == teamID) {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (r *memRegistry) GetByID(_ context.Context, connectionID string) (domain.MailConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.MailConnection{}, domain.ErrNotFound
	}
	return conn, nil
}

func (r *memRegistry) AdvanceCursor(_ context.Context, connectionID string, newUID uint32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	if conn.LastUID > newUID {
		return domain.ErrCursorRewind
	}
	conn.LastUID = newUID
	conn.LastSyncAt = &at
	conn.LastError = ""
	r.rows[connectionID] = conn
	return nil
}

func (r *memRegistry) TouchSyncedAt(_ context.Context, connectionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastSyncAt = &at
	conn.LastError = ""
	r.rows[connectionID] = conn
	return nil
}

func (r *memRegistry) RecordError(_ context.Context, connectionID, message string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastError = message
	r.rows[connectionID] = conn
	return nil
}

func (r *memRegistry) ResetCursor(_ context.Context, connectionID string, uid uint32, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastUID = uid
	conn.LastError = ""
	r.rows[connectionID] = conn
	return nil
}

func (r *memRegistry) Deactivate(_ context.Context, connectionID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.IsActive = false
	conn.CredentialCiphertext = nil
	r.rows[connectionID] = conn
	return nil
}

type memEmailRepo struct {
	mu          sync.Mutex
	messages    []domain.InboundMessage
	attachments []domain.Attachment
}

func (r *memEmailRepo) CreateMessage(_ context.Context, row domain.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.messages {
		if existing.ConnectionID == row.ConnectionID && existing.MessageID == row.MessageID {
			return domain.ErrConflict
		}
	}
	r.messages = append(r.messages, row)
	return nil
}

func (r *memEmailRepo) CreateAttachment(_ context.Context, row domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, row)
	return nil
}

func (r *memEmailRepo) GetMessage(_ context.Context, emailID string) (domain.InboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.messages {
		if row.EmailID == emailID {
			return row, nil
		}
	}
	return domain.InboundMessage{}, domain.ErrNotFound
}

func (r *memEmailRepo) ListByConnection(_ context.Context, connectionID string, _ int) ([]domain.InboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.InboundMessage, 0)
	for _, row := range r.messages {
		if row.ConnectionID == connectionID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memEmailRepo) ListAttachments(_ context.Context, emailID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Attachment, 0)
	for _, row := range r.attachments {
		if row.EmailID == emailID {
			out = append(out, row)
		}
	}
	return out, nil
}

type memBlacklistRepo struct {
	mu      sync.Mutex
	entries map[string]domain.BlacklistEntry
}

func newMemBlacklistRepo() *memBlacklistRepo {
	return &memBlacklistRepo{entries: map[string]domain.BlacklistEntry{}}
}

func (r *memBlacklistRepo) Add(_ context.Context, entry domain.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entry.TeamID + "|" + entry.SenderAddress
	if _, ok := r.entries[key]; ok {
		return domain.ErrConflict
	}
	r.entries[key] = entry
	return nil
}

func (r *memBlacklistRepo) Exists(_ context.Context, teamID, normalizedAddress string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[teamID+"|"+normalizedAddress]
	return ok, nil
}

func (r *memBlacklistRepo) ListByTeam(_ context.Context, teamID string) ([]domain.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BlacklistEntry, 0)
	for _, entry := range r.entries {
		if entry.TeamID == teamID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type memDedup struct {
	mu        sync.Mutex
	processed map[string]time.Time
}

func newMemDedup() *memDedup { return &memDedup{processed: map[string]time.Time{}} }

func (r *memDedup) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiresAt, ok := r.processed[eventID]
	return ok && expiresAt.After(now), nil
}

func (r *memDedup) MarkProcessed(_ context.Context, eventID, _ string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[eventID] = expiresAt
	return nil
}

type memDispatchLog struct {
	mu      sync.Mutex
	results []domain.DispatchResult
}

func (r *memDispatchLog) Create(_ context.Context, result domain.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *memDispatchLog) ListRecent(_ context.Context, limit int) ([]domain.DispatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.results) {
		limit = len(r.results)
	}
	return r.results[:limit], nil
}

type memSession struct {
	messages []ports.FetchedMessage
}

func (s *memSession) FetchSince(_ context.Context, lastUID uint32, _ *time.Time) ([]ports.FetchedMessage, error) {
	out := make([]ports.FetchedMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.UID > lastUID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *memSession) Close() error { return nil }

type memDialer struct {
	session *memSession
}

func (d *memDialer) Dial(_ context.Context, _ domain.MailConnection, _ ports.PlainCredentials) (ports.MailboxSession, error) {
	return d.session, nil
}

type memStorage struct{}

func (memStorage) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	return "s3://test-bucket/" + key, nil
}

type passthroughCipher struct{}

func (passthroughCipher) Seal(plaintext []byte) ([]byte, error)  { return plaintext, nil }
func (passthroughCipher) Open(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]bool{}} }

func (l *memLocker) TryAcquire(_ context.Context, connectionID string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[connectionID] {
		return nil, false, nil
	}
	l.held[connectionID] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, connectionID)
	}, true, nil
}

// staticResolver hands every event to the same tenant over the in-app channel.
type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, _ domain.Event) ([]domain.Recipient, error) {
	return []domain.Recipient{{ID: "tenant-1", Channels: []domain.ChannelKind{domain.ChannelInApp}}}, nil
}

// inAppAdapter mirrors the production adapter without the uuid dependency
// noise in assertions.
type inAppAdapter struct {
	repo *memNotificationRepo
}

func (inAppAdapter) Kind() domain.ChannelKind { return domain.ChannelInApp }

func (a inAppAdapter) Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome {
	row := domain.Notification{
		NotificationID:  "notif-" + uuid.NewString(),
		UserID:          recipient.ID,
		TeamID:          event.TeamID,
		Type:            event.EventType,
		Title:           event.Title,
		Body:            event.Body,
		SourceEventID:   event.EventID,
		SourceEventType: event.EventType,
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.repo.Create(ctx, row); err != nil {
		return domain.FailedOutcome(domain.ChannelInApp, recipient.ID, err.Error())
	}
	return domain.SucceededOutcome(domain.ChannelInApp, recipient.ID)
}
