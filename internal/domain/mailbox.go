package domain

import (
	"strings"
	"time"
)

// MailConnection is one configured external mailbox belonging to one team.
// Cursor and error fields are mutated only by the sync engine's write path;
// revocation deactivates the row and wipes the ciphertext.
type MailConnection struct {
	ConnectionID         string
	TeamID               string
	Label                string
	Host                 string
	Port                 int
	UseTLS               bool
	Folder               string
	CredentialCiphertext []byte
	LastUID              uint32
	SyncFromDate         *time.Time
	LastSyncAt           *time.Time
	LastError            string
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InboundMessage is one message parsed from raw mailbox protocol data.
// Immutable once parsed; MessageID is unique within the source system.
type InboundMessage struct {
	EmailID      string
	ConnectionID string
	TeamID       string
	MessageID    string
	UID          uint32
	FromAddress  string
	ToAddresses  []string
	Subject      string
	BodyText     string
	BodyHTML     string
	ReceivedAt   time.Time
	CreatedAt    time.Time
}

// Attachment metadata is persisted only after its parent message row exists,
// so an attachment row can never reference a missing email.
type Attachment struct {
	AttachmentID string
	EmailID      string
	Filename     string
	ContentType  string
	SizeBytes    int64
	StoragePath  string
	CreatedAt    time.Time
}

type BlacklistEntry struct {
	TeamID        string
	SenderAddress string
	Reason        string
	CreatedAt     time.Time
}

// NormalizeAddress canonicalizes a sender address for blacklist matching:
// exact address, case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

type SyncStatus string

const (
	SyncSuccess       SyncStatus = "success"
	SyncNoNewMessages SyncStatus = "no_new_messages"
	SyncError         SyncStatus = "error"
)

// SyncOutcome is the recorded result of one sync invocation for one
// connection, used for observability and cursor decisions.
type SyncOutcome struct {
	ConnectionID string     `json:"connection_id"`
	Status       SyncStatus `json:"status"`
	Persisted    int        `json:"persisted"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	Reason       string     `json:"reason,omitempty"`
	CompletedAt  time.Time  `json:"completed_at"`
}

func SyncErrorOutcome(connectionID, reason string, at time.Time) SyncOutcome {
	return SyncOutcome{ConnectionID: connectionID, Status: SyncError, Reason: reason, CompletedAt: at}
}
