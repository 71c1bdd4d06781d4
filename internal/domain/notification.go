package domain

import "time"

// Notification is one persisted in-app feed entry. Rows are written by the
// in-app channel adapter and served by the HTTP API.
type Notification struct {
	NotificationID  string            `json:"notification_id"`
	UserID          string            `json:"user_id"`
	TeamID          string            `json:"team_id"`
	Type            string            `json:"type"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	SourceEventID   string            `json:"source_event_id,omitempty"`
	SourceEventType string            `json:"source_event_type,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	ReadAt          *time.Time        `json:"read_at,omitempty"`
}

type NotificationFilter struct {
	Type     string
	Status   string
	Page     int
	PageSize int
}

func (n Notification) IsUnread() bool { return n.ReadAt == nil }
func (n Notification) IsRead() bool   { return n.ReadAt != nil }

func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		t := at.UTC()
		n.ReadAt = &t
	}
}
