package application

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/seido-app/courier/internal/contracts"
	"github.com/seido-app/courier/internal/domain"
)

// HandleEnvelope is the event intake: validate, deduplicate, resolve the
// audience and fan out. A returned error means the envelope is retryable;
// per-channel failures are absorbed into the dispatch result.
func (s *Service) HandleEnvelope(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	if !domain.IsDispatchableEvent(envelope.EventType) {
		return domain.ErrUnsupportedEvent
	}

	now := s.nowFn()
	dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, now)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}

	event, err := buildEvent(envelope)
	if err != nil {
		return err
	}

	recipients, err := s.resolver.Resolve(ctx, event)
	if err != nil {
		return err
	}

	result := s.dispatcher.Dispatch(ctx, event, recipients)
	if s.dispatchLog != nil {
		if err := s.dispatchLog.Create(ctx, result); err != nil {
			s.logger.WarnContext(ctx, "dispatch log write failed",
				"module", "service",
				"layer", "application",
				"operation", "record_dispatch",
				"outcome", "failure",
				"event_id", event.EventID,
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "event dispatched",
		"module", "service",
		"layer", "application",
		"operation", "handle_envelope",
		"outcome", "success",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"recipients", len(recipients),
		"succeeded", result.CountByStatus(domain.StatusSucceeded),
		"failed", result.CountByStatus(domain.StatusFailed),
		"skipped", result.CountByStatus(domain.StatusSkipped),
		"overall_success", result.OverallSuccess,
	)
	return s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(s.cfg.EventDedupTTL))
}

func validateEnvelope(envelope contracts.EventEnvelope) error {
	if strings.TrimSpace(envelope.EventID) == "" || strings.TrimSpace(envelope.EventType) == "" {
		return domain.ErrInvalidEnvelope
	}
	if envelope.OccurredAt.IsZero() || len(envelope.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}

func buildEvent(envelope contracts.EventEnvelope) (domain.Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return domain.Event{}, domain.ErrInvalidEnvelope
	}
	metadata := map[string]string{}
	for _, key := range []string{"intervention_id", "document_id", "building_id", "lot_id", "old_status", "new_status", "actor_id"} {
		if v := asString(payload[key]); v != "" {
			metadata[key] = v
		}
	}
	event := domain.Event{
		EventID:    envelope.EventID,
		EventType:  envelope.EventType,
		TeamID:     firstNonEmpty(envelope.TeamID, asString(payload["team_id"])),
		EntityID:   firstNonEmpty(asString(payload["intervention_id"]), asString(payload["document_id"]), asString(payload["email_id"])),
		Title:      firstNonEmpty(asString(payload["title"]), humanizeEventType(envelope.EventType)),
		Body:       asString(payload["body"]),
		Metadata:   metadata,
		OccurredAt: envelope.OccurredAt,
	}
	return event, nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func humanizeEventType(t string) string {
	t = strings.ReplaceAll(t, ".", " ")
	t = strings.ReplaceAll(t, "_", " ")
	if t == "" {
		return t
	}
	return strings.ToUpper(t[:1]) + t[1:]
}
