package contracts

import (
	"encoding/json"
	"time"
)

// EventEnvelope is the broker wire format for domain events produced by the
// SEIDO application layer.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	TeamID        string          `json:"team_id"`
	TraceID       string          `json:"trace_id"`
	SchemaVersion string          `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}
