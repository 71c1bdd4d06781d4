package postgres

import "time"

type notificationModel struct {
	NotificationID  string     `gorm:"column:notification_id;primaryKey"`
	UserID          string     `gorm:"column:user_id"`
	TeamID          string     `gorm:"column:team_id"`
	Type            string     `gorm:"column:type"`
	Title           string     `gorm:"column:title"`
	Body            string     `gorm:"column:body"`
	Metadata        string     `gorm:"column:metadata"`
	SourceEventID   string     `gorm:"column:source_event_id"`
	SourceEventType string     `gorm:"column:source_event_type"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	ReadAt          *time.Time `gorm:"column:read_at"`
}

func (notificationModel) TableName() string { return "notifications" }

type mailConnectionModel struct {
	ConnectionID         string     `gorm:"column:connection_id;primaryKey"`
	TeamID               string     `gorm:"column:team_id"`
	Label                string     `gorm:"column:label"`
	Host                 string     `gorm:"column:host"`
	Port                 int        `gorm:"column:port"`
	UseTLS               bool       `gorm:"column:use_tls"`
	Folder               string     `gorm:"column:folder"`
	CredentialCiphertext []byte     `gorm:"column:credential_ciphertext"`
	LastUID              int64      `gorm:"column:last_uid"`
	SyncFromDate         *time.Time `gorm:"column:sync_from_date"`
	LastSyncAt           *time.Time `gorm:"column:last_sync_at"`
	LastError            string     `gorm:"column:last_error"`
	IsActive             bool       `gorm:"column:is_active"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (mailConnectionModel) TableName() string { return "mail_connections" }

type inboundEmailModel struct {
	EmailID      string    `gorm:"column:email_id;primaryKey"`
	ConnectionID string    `gorm:"column:connection_id"`
	TeamID       string    `gorm:"column:team_id"`
	MessageID    string    `gorm:"column:message_id"`
	UID          int64     `gorm:"column:uid"`
	FromAddress  string    `gorm:"column:from_address"`
	ToAddresses  string    `gorm:"column:to_addresses"`
	Subject      string    `gorm:"column:subject"`
	BodyText     string    `gorm:"column:body_text"`
	BodyHTML     string    `gorm:"column:body_html"`
	ReceivedAt   time.Time `gorm:"column:received_at"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (inboundEmailModel) TableName() string { return "inbound_emails" }

type attachmentModel struct {
	AttachmentID string    `gorm:"column:attachment_id;primaryKey"`
	EmailID      string    `gorm:"column:email_id"`
	Filename     string    `gorm:"column:filename"`
	ContentType  string    `gorm:"column:content_type"`
	SizeBytes    int64     `gorm:"column:size_bytes"`
	StoragePath  string    `gorm:"column:storage_path"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (attachmentModel) TableName() string { return "email_attachments" }

type blacklistModel struct {
	TeamID        string    `gorm:"column:team_id;primaryKey"`
	SenderAddress string    `gorm:"column:sender_address;primaryKey"`
	Reason        string    `gorm:"column:reason"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (blacklistModel) TableName() string { return "sender_blacklist" }

type eventDedupModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "processed_events" }

type dispatchLogModel struct {
	EventID        string    `gorm:"column:event_id;primaryKey"`
	EventType      string    `gorm:"column:event_type"`
	OverallSuccess bool      `gorm:"column:overall_success"`
	Outcomes       string    `gorm:"column:outcomes"`
	AttemptedAt    time.Time `gorm:"column:attempted_at"`
}

func (dispatchLogModel) TableName() string { return "dispatch_log" }
