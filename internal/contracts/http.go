package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type NotificationItem struct {
	NotificationID string            `json:"notification_id"`
	UserID         string            `json:"user_id"`
	TeamID         string            `json:"team_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"created_at"`
	ReadAt         string            `json:"read_at,omitempty"`
}

type ListNotificationsResponse struct {
	Items    []NotificationItem `json:"items"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Total    int                `json:"total"`
	HasMore  bool               `json:"has_more"`
}

type UnreadCountResponse struct {
	UserID      string `json:"user_id"`
	UnreadCount int    `json:"unread_count"`
}

type MarkStateResponse struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
}

type MailboxItem struct {
	ConnectionID string `json:"connection_id"`
	TeamID       string `json:"team_id"`
	Label        string `json:"label"`
	Host         string `json:"host"`
	Folder       string `json:"folder"`
	LastUID      uint32 `json:"last_uid"`
	LastSyncAt   string `json:"last_sync_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
	IsActive     bool   `json:"is_active"`
}

type ListMailboxesResponse struct {
	Items []MailboxItem `json:"items"`
}

type SyncOutcomeItem struct {
	ConnectionID string `json:"connection_id"`
	Status       string `json:"status"`
	Persisted    int    `json:"persisted"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Reason       string `json:"reason,omitempty"`
	CompletedAt  string `json:"completed_at"`
}

type SyncResponse struct {
	Outcomes []SyncOutcomeItem `json:"outcomes"`
}

type ResetCursorRequest struct {
	UID uint32 `json:"uid"`
}

type AddBlacklistRequest struct {
	SenderAddress string `json:"sender_address"`
	Reason        string `json:"reason,omitempty"`
}

type BlacklistItem struct {
	TeamID        string `json:"team_id"`
	SenderAddress string `json:"sender_address"`
	Reason        string `json:"reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type ListBlacklistResponse struct {
	Items []BlacklistItem `json:"items"`
}

type DispatchOutcomeItem struct {
	Channel     string `json:"channel"`
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

type DispatchLogItem struct {
	EventID        string                `json:"event_id"`
	EventType      string                `json:"event_type"`
	OverallSuccess bool                  `json:"overall_success"`
	Outcomes       []DispatchOutcomeItem `json:"outcomes"`
	AttemptedAt    string                `json:"attempted_at"`
}

type ListDispatchLogResponse struct {
	Items []DispatchLogItem `json:"items"`
}
