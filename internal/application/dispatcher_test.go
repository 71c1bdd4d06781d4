package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/seido-app/courier/internal/application"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

func testEvent() domain.Event {
	return domain.Event{
		EventID:    "evt-1",
		EventType:  domain.EventInterventionCreated,
		TeamID:     "team-1",
		EntityID:   "int-1",
		Title:      "Intervention created",
		OccurredAt: time.Now().UTC(),
	}
}

func TestDispatchOneOutcomePerEligiblePair(t *testing.T) {
	t.Parallel()

	adapters := []ports.ChannelAdapter{
		&fakeAdapter{kind: domain.ChannelInApp},
		&fakeAdapter{kind: domain.ChannelEmail},
		&fakeAdapter{kind: domain.ChannelPush},
	}
	d := application.NewDispatcher(nil, adapters, nil, 4, time.Second)

	recipients := []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelInApp, domain.ChannelEmail}, Email: "a@example.com"},
		{ID: "user-2", Channels: []domain.ChannelKind{domain.ChannelPush}, PushEndpoint: "token-2"},
	}

	result := d.Dispatch(context.Background(), testEvent(), recipients)

	if len(result.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
	if !result.OverallSuccess {
		t.Fatalf("expected overall success")
	}
	seen := map[string]bool{}
	for _, outcome := range result.Outcomes {
		key := outcome.RecipientID + "/" + string(outcome.Channel)
		if seen[key] {
			t.Fatalf("duplicate outcome for %s", key)
		}
		seen[key] = true
		if outcome.Status != domain.StatusSucceeded {
			t.Fatalf("expected succeeded outcome for %s, got %s (%s)", key, outcome.Status, outcome.Reason)
		}
	}
}

func TestDispatchFailureIsIsolatedPerPair(t *testing.T) {
	t.Parallel()

	adapters := []ports.ChannelAdapter{
		&fakeAdapter{kind: domain.ChannelInApp},
		&fakeAdapter{
			kind: domain.ChannelEmail,
			sendFn: func(_ context.Context, recipient domain.Recipient, _ domain.Event) domain.ChannelOutcome {
				return domain.FailedOutcome(domain.ChannelEmail, recipient.ID, "smtp unreachable")
			},
		},
	}
	d := application.NewDispatcher(nil, adapters, nil, 4, time.Second)

	recipients := []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelInApp, domain.ChannelEmail}, Email: "a@example.com"},
	}
	result := d.Dispatch(context.Background(), testEvent(), recipients)

	if len(result.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result.Outcomes))
	}
	if !result.OverallSuccess {
		t.Fatalf("one succeeded channel should make the dispatch an overall success")
	}
	if result.CountByStatus(domain.StatusFailed) != 1 {
		t.Fatalf("expected exactly one failed outcome")
	}
	if result.CountByStatus(domain.StatusSucceeded) != 1 {
		t.Fatalf("expected exactly one succeeded outcome")
	}
}

func TestDispatchAllFailedIsNotOverallSuccess(t *testing.T) {
	t.Parallel()

	adapters := []ports.ChannelAdapter{
		&fakeAdapter{
			kind: domain.ChannelEmail,
			sendFn: func(_ context.Context, recipient domain.Recipient, _ domain.Event) domain.ChannelOutcome {
				return domain.FailedOutcome(domain.ChannelEmail, recipient.ID, "smtp unreachable")
			},
		},
	}
	d := application.NewDispatcher(nil, adapters, nil, 4, time.Second)

	result := d.Dispatch(context.Background(), testEvent(), []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelEmail}, Email: "a@example.com"},
		{ID: "user-2", Channels: []domain.ChannelKind{domain.ChannelEmail}, Email: "b@example.com"},
	})

	if result.OverallSuccess {
		t.Fatalf("no succeeded outcome, overall success must be false")
	}
	if result.CountByStatus(domain.StatusFailed) != 2 {
		t.Fatalf("expected 2 failed outcomes, got %d", result.CountByStatus(domain.StatusFailed))
	}
}

func TestDispatchMissingAdapterSkips(t *testing.T) {
	t.Parallel()

	d := application.NewDispatcher(nil, []ports.ChannelAdapter{&fakeAdapter{kind: domain.ChannelInApp}}, nil, 4, time.Second)

	result := d.Dispatch(context.Background(), testEvent(), []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelInApp, domain.ChannelPush}},
	})

	if len(result.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(result.Outcomes))
	}
	var skipped *domain.ChannelOutcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Channel == domain.ChannelPush {
			skipped = &result.Outcomes[i]
		}
	}
	if skipped == nil || skipped.Status != domain.StatusSkipped {
		t.Fatalf("expected skipped outcome for missing push adapter, got %+v", result.Outcomes)
	}
	if skipped.Reason != domain.SkipReasonNotConfigured {
		t.Fatalf("unexpected skip reason: %s", skipped.Reason)
	}
}

func TestDispatchGloballyDisabledChannelProducesNoOutcome(t *testing.T) {
	t.Parallel()

	adapters := []ports.ChannelAdapter{
		&fakeAdapter{kind: domain.ChannelInApp},
		&fakeAdapter{kind: domain.ChannelEmail},
	}
	d := application.NewDispatcher(nil, adapters, []domain.ChannelKind{domain.ChannelInApp}, 4, time.Second)

	result := d.Dispatch(context.Background(), testEvent(), []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelInApp, domain.ChannelEmail}, Email: "a@example.com"},
	})

	if len(result.Outcomes) != 1 {
		t.Fatalf("disabled channel should produce no outcome, got %d outcomes", len(result.Outcomes))
	}
	if result.Outcomes[0].Channel != domain.ChannelInApp {
		t.Fatalf("expected the in_app outcome only, got %s", result.Outcomes[0].Channel)
	}
}

func TestDispatchAdapterPanicBecomesFailedOutcome(t *testing.T) {
	t.Parallel()

	adapters := []ports.ChannelAdapter{
		&fakeAdapter{kind: domain.ChannelInApp},
		&fakeAdapter{
			kind: domain.ChannelPush,
			sendFn: func(_ context.Context, _ domain.Recipient, _ domain.Event) domain.ChannelOutcome {
				panic("push vendor client blew up")
			},
		},
	}
	d := application.NewDispatcher(nil, adapters, nil, 4, time.Second)

	result := d.Dispatch(context.Background(), testEvent(), []domain.Recipient{
		{ID: "user-1", Channels: []domain.ChannelKind{domain.ChannelInApp, domain.ChannelPush}, PushEndpoint: "token"},
	})

	if result.CountByStatus(domain.StatusFailed) != 1 {
		t.Fatalf("expected panic to surface as one failed outcome")
	}
	if !result.OverallSuccess {
		t.Fatalf("the surviving channel should still succeed")
	}
}

func TestDispatchNoRecipients(t *testing.T) {
	t.Parallel()

	d := application.NewDispatcher(nil, []ports.ChannelAdapter{&fakeAdapter{kind: domain.ChannelInApp}}, nil, 4, time.Second)
	result := d.Dispatch(context.Background(), testEvent(), nil)

	if len(result.Outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(result.Outcomes))
	}
	if result.OverallSuccess {
		t.Fatalf("empty dispatch is not a success")
	}
}
