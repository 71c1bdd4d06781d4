package ports

import (
	"context"
	"time"

	"github.com/seido-app/courier/internal/domain"
)

type PlainCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialCipher seals and opens mailbox credentials at rest. Open returns
// domain.ErrDecryptionFailed for malformed ciphertext or an unusable key.
type CredentialCipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

type FetchedAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FetchedMessage is one raw mailbox message already parsed into transport
// neutral form. UIDs are assigned by the source mailbox and strictly ordered.
type FetchedMessage struct {
	UID         uint32
	MessageID   string
	FromAddress string
	ToAddresses []string
	Subject     string
	BodyText    string
	BodyHTML    string
	ReceivedAt  time.Time
	Attachments []FetchedAttachment
}

// MailboxSession is one open protocol session against a mailbox.
type MailboxSession interface {
	// FetchSince returns messages with UID greater than lastUID, in UID
	// order. When lastUID is zero and since is set, messages received after
	// since are returned instead (virgin connection path).
	FetchSince(ctx context.Context, lastUID uint32, since *time.Time) ([]FetchedMessage, error)
	Close() error
}

// MailboxDialer opens a session for one connection's config and credentials.
// Dial carries a bounded timeout; it never hangs indefinitely.
type MailboxDialer interface {
	Dial(ctx context.Context, conn domain.MailConnection, creds PlainCredentials) (MailboxSession, error)
}

// SyncLocker serializes syncs per connection id. TryAcquire returns false
// without blocking when another sync holds the lock.
type SyncLocker interface {
	TryAcquire(ctx context.Context, connectionID string, ttl time.Duration) (release func(), acquired bool, err error)
}
