package domain

import "time"

type ChannelKind string

const (
	ChannelInApp ChannelKind = "in_app"
	ChannelEmail ChannelKind = "email"
	ChannelPush  ChannelKind = "push"
)

// AllChannels lists every channel the dispatcher knows how to fan out to.
func AllChannels() []ChannelKind {
	return []ChannelKind{ChannelInApp, ChannelEmail, ChannelPush}
}

// Recipient is resolved by the directory layer before dispatch; the
// dispatcher never looks recipients up itself.
type Recipient struct {
	ID           string
	Channels     []ChannelKind
	Email        string
	PushEndpoint string
	Locale       string
}

func (r Recipient) HasChannel(kind ChannelKind) bool {
	for _, c := range r.Channels {
		if c == kind {
			return true
		}
	}
	return false
}

type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
	StatusSkipped   OutcomeStatus = "skipped"
)

const (
	SkipReasonNotConfigured = "not_configured"
	SkipReasonNoDestination = "no_destination"
)

// ChannelOutcome records the result of one (recipient, channel) attempt.
// Produced exactly once per pair and never mutated afterwards.
type ChannelOutcome struct {
	Channel     ChannelKind   `json:"channel"`
	RecipientID string        `json:"recipient_id"`
	Status      OutcomeStatus `json:"status"`
	Reason      string        `json:"reason,omitempty"`
}

// DispatchResult aggregates all channel outcomes for one event.
// OverallSuccess is graceful-degradation semantics: true as soon as one
// channel reached one recipient, not all-or-nothing.
type DispatchResult struct {
	EventID        string           `json:"event_id"`
	EventType      string           `json:"event_type"`
	OverallSuccess bool             `json:"overall_success"`
	Outcomes       []ChannelOutcome `json:"outcomes"`
	AttemptedAt    time.Time        `json:"attempted_at"`
}

func (r DispatchResult) CountByStatus(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func SucceededOutcome(kind ChannelKind, recipientID string) ChannelOutcome {
	return ChannelOutcome{Channel: kind, RecipientID: recipientID, Status: StatusSucceeded}
}

func FailedOutcome(kind ChannelKind, recipientID, reason string) ChannelOutcome {
	return ChannelOutcome{Channel: kind, RecipientID: recipientID, Status: StatusFailed, Reason: reason}
}

func SkippedOutcome(kind ChannelKind, recipientID, reason string) ChannelOutcome {
	return ChannelOutcome{Channel: kind, RecipientID: recipientID, Status: StatusSkipped, Reason: reason}
}
