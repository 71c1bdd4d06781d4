package domain

import "time"

const (
	EventInterventionCreated       = "intervention.created"
	EventInterventionAssigned      = "intervention.assigned"
	EventInterventionStatusChanged = "intervention.status_changed"
	EventDocumentShared            = "document.shared"
	EventInboundEmailReceived      = "inbound_email.received"
)

var dispatchableEvents = map[string]struct{}{
	EventInterventionCreated:       {},
	EventInterventionAssigned:      {},
	EventInterventionStatusChanged: {},
	EventDocumentShared:            {},
	EventInboundEmailReceived:      {},
}

func IsDispatchableEvent(eventType string) bool {
	_, ok := dispatchableEvents[eventType]
	return ok
}

// Event is one domain occurrence to fan out across channels. It is built by
// the calling layer and consumed once by the dispatcher.
type Event struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	TeamID     string            `json:"team_id"`
	EntityID   string            `json:"entity_id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
