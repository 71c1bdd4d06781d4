package application_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

type fakeAdapter struct {
	kind   domain.ChannelKind
	sendFn func(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome
}

func (a *fakeAdapter) Kind() domain.ChannelKind { return a.kind }

func (a *fakeAdapter) Send(ctx context.Context, recipient domain.Recipient, event domain.Event) domain.ChannelOutcome {
	if a.sendFn != nil {
		return a.sendFn(ctx, recipient, event)
	}
	return domain.SucceededOutcome(a.kind, recipient.ID)
}

type fakeRegistry struct {
	mu          sync.Mutex
	connections map[string]domain.MailConnection
	listErr     error
	advanceErr  error
	touched     []string
	errored     map[string]string
}

func newFakeRegistry(connections ...domain.MailConnection) *fakeRegistry {
	byID := make(map[string]domain.MailConnection, len(connections))
	for _, conn := range connections {
		byID[conn.ConnectionID] = conn
	}
	return &fakeRegistry{connections: byID, errored: map[string]string{}}
}

func (r *fakeRegistry) ListActive(_ context.Context, teamID string) ([]domain.MailConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.MailConnection, 0, len(r.connections))
	for _, conn := range r.connections {
		if !conn.IsActive {
			continue
		}
		if teamID != "" && conn.TeamID != teamID {
			continue
		}
		out = append(out, conn)
	}
	return out, nil
}

func (r *fakeRegistry) GetByID(_ context.Context, connectionID string) (domain.MailConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.MailConnection{}, domain.ErrNotFound
	}
	return conn, nil
}

func (r *fakeRegistry) AdvanceCursor(_ context.Context, connectionID string, newUID uint32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advanceErr != nil {
		return r.advanceErr
	}
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	if conn.LastUID > newUID {
		return domain.ErrCursorRewind
	}
	conn.LastUID = newUID
	conn.LastSyncAt = &at
	conn.LastError = ""
	r.connections[connectionID] = conn
	return nil
}

func (r *fakeRegistry) TouchSyncedAt(_ context.Context, connectionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastSyncAt = &at
	conn.LastError = ""
	r.connections[connectionID] = conn
	r.touched = append(r.touched, connectionID)
	return nil
}

func (r *fakeRegistry) RecordError(_ context.Context, connectionID, message string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastError = message
	r.connections[connectionID] = conn
	r.errored[connectionID] = message
	return nil
}

func (r *fakeRegistry) ResetCursor(_ context.Context, connectionID string, uid uint32, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.LastUID = uid
	conn.LastError = ""
	r.connections[connectionID] = conn
	return nil
}

func (r *fakeRegistry) Deactivate(_ context.Context, connectionID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrNotFound
	}
	conn.IsActive = false
	conn.CredentialCiphertext = nil
	r.connections[connectionID] = conn
	return nil
}

func (r *fakeRegistry) cursor(connectionID string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections[connectionID].LastUID
}

type fakeEmailRepo struct {
	mu          sync.Mutex
	messages    []domain.InboundMessage
	attachments []domain.Attachment
	failFn      func(row domain.InboundMessage) error
}

func (r *fakeEmailRepo) CreateMessage(_ context.Context, row domain.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFn != nil {
		if err := r.failFn(row); err != nil {
			return err
		}
	}
	for _, existing := range r.messages {
		if existing.ConnectionID == row.ConnectionID && existing.MessageID == row.MessageID {
			return domain.ErrConflict
		}
	}
	r.messages = append(r.messages, row)
	return nil
}

func (r *fakeEmailRepo) CreateAttachment(_ context.Context, row domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, row)
	return nil
}

func (r *fakeEmailRepo) GetMessage(_ context.Context, emailID string) (domain.InboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.messages {
		if row.EmailID == emailID {
			return row, nil
		}
	}
	return domain.InboundMessage{}, domain.ErrNotFound
}

func (r *fakeEmailRepo) ListByConnection(_ context.Context, connectionID string, _ int) ([]domain.InboundMessage, error) {
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

func (r *fakeEmailRepo) ListAttachments(_ context.Context, emailID string) ([]domain.Attachment, error) {
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

type fakeBlacklistRepo struct {
	mu        sync.Mutex
	entries   map[string]domain.BlacklistEntry
	existsErr error
	calls     int
}

func newFakeBlacklistRepo() *fakeBlacklistRepo {
	return &fakeBlacklistRepo{entries: map[string]domain.BlacklistEntry{}}
}

func blacklistFakeKey(teamID, address string) string { return teamID + "|" + address }

func (r *fakeBlacklistRepo) Add(_ context.Context, entry domain.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := blacklistFakeKey(entry.TeamID, entry.SenderAddress)
	if _, ok := r.entries[key]; ok {
		return domain.ErrConflict
	}
	r.entries[key] = entry
	return nil
}

func (r *fakeBlacklistRepo) Exists(_ context.Context, teamID, normalizedAddress string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.entries[blacklistFakeKey(teamID, normalizedAddress)]
	return ok, nil
}

func (r *fakeBlacklistRepo) ListByTeam(_ context.Context, teamID string) ([]domain.BlacklistEntry, error) {
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

type fakeBlacklistCache struct {
	mu     sync.Mutex
	values map[string]bool
	getErr error
	hits   int
}

func newFakeBlacklistCache() *fakeBlacklistCache {
	return &fakeBlacklistCache{values: map[string]bool{}}
}

func (c *fakeBlacklistCache) Get(_ context.Context, teamID, normalizedAddress string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, false, c.getErr
	}
	blocked, found := c.values[blacklistFakeKey(teamID, normalizedAddress)]
	if found {
		c.hits++
	}
	return blocked, found, nil
}

func (c *fakeBlacklistCache) Set(_ context.Context, teamID, normalizedAddress string, blocked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[blacklistFakeKey(teamID, normalizedAddress)] = blocked
	return nil
}

type fakeSession struct {
	messages []ports.FetchedMessage
	fetchErr error
	closed   bool
}

func (s *fakeSession) FetchSince(_ context.Context, lastUID uint32, _ *time.Time) ([]ports.FetchedMessage, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]ports.FetchedMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.UID > lastUID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	session *fakeSession
	dialErr error
	dials   int
}

func (d *fakeDialer) Dial(_ context.Context, _ domain.MailConnection, _ ports.PlainCredentials) (ports.MailboxSession, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.session, nil
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   []string
	uploadErr error
}

func (s *fakeStorage) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, key)
	return "s3://test-bucket/" + key, nil
}

// plainCipher passes bytes through unchanged so tests can seed readable
// ciphertext. openErr simulates a wrong or rotated key.
type plainCipher struct {
	openErr error
}

func (c *plainCipher) Seal(plaintext []byte) ([]byte, error) { return plaintext, nil }

func (c *plainCipher) Open(ciphertext []byte) ([]byte, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return ciphertext, nil
}

func sealedCredentials(username, password string) []byte {
	raw, _ := json.Marshal(ports.PlainCredentials{Username: username, Password: password})
	return raw
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	tryErr   error
	acquired []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) TryAcquire(_ context.Context, connectionID string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tryErr != nil {
		return nil, false, l.tryErr
	}
	if l.held[connectionID] {
		return nil, false, nil
	}
	l.held[connectionID] = true
	l.acquired = append(l.acquired, connectionID)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, connectionID)
	}, true, nil
}

type fakeDedupRepo struct {
	mu        sync.Mutex
	processed map[string]time.Time
}

func newFakeDedupRepo() *fakeDedupRepo {
	return &fakeDedupRepo{processed: map[string]time.Time{}}
}

func (r *fakeDedupRepo) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiresAt, ok := r.processed[eventID]
	return ok && expiresAt.After(now), nil
}

func (r *fakeDedupRepo) MarkProcessed(_ context.Context, eventID, _ string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[eventID] = expiresAt
	return nil
}

type fakeResolver struct {
	recipients []domain.Recipient
	err        error
	calls      int
}

func (r *fakeResolver) Resolve(_ context.Context, _ domain.Event) ([]domain.Recipient, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.recipients, nil
}

type fakeDispatchLog struct {
	mu      sync.Mutex
	results []domain.DispatchResult
}

func (r *fakeDispatchLog) Create(_ context.Context, result domain.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *fakeDispatchLog) ListRecent(_ context.Context, limit int) ([]domain.DispatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.results) {
		limit = len(r.results)
	}
	return r.results[:limit], nil
}
