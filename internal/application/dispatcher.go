package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// Dispatcher fans one domain event out to every eligible (recipient, channel)
// pair. All sends run concurrently under a bounded semaphore; one pair's
// failure never cancels or blocks another. Failures come back as Failed
// outcomes, never as errors — retries are a caller decision.
type Dispatcher struct {
	logger        *slog.Logger
	adapters      map[domain.ChannelKind]ports.ChannelAdapter
	enabled       map[domain.ChannelKind]struct{}
	maxConcurrent int
	sendTimeout   time.Duration
	nowFn         func() time.Time
}

func NewDispatcher(
	logger *slog.Logger,
	adapters []ports.ChannelAdapter,
	enabledChannels []domain.ChannelKind,
	maxConcurrent int,
	sendTimeout time.Duration,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	byKind := make(map[domain.ChannelKind]ports.ChannelAdapter, len(adapters))
	for _, a := range adapters {
		if a != nil {
			byKind[a.Kind()] = a
		}
	}
	enabled := make(map[domain.ChannelKind]struct{}, len(enabledChannels))
	if len(enabledChannels) == 0 {
		enabledChannels = domain.AllChannels()
	}
	for _, kind := range enabledChannels {
		enabled[kind] = struct{}{}
	}
	return &Dispatcher{
		logger:        logger,
		adapters:      byKind,
		enabled:       enabled,
		maxConcurrent: maxConcurrent,
		sendTimeout:   sendTimeout,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

type sendTask struct {
	recipient domain.Recipient
	kind      domain.ChannelKind
}

// Dispatch produces exactly one outcome per (recipient, channel) pair where
// the channel is both enabled for the recipient and enabled globally.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event, recipients []domain.Recipient) domain.DispatchResult {
	attemptedAt := d.nowFn()

	tasks := make([]sendTask, 0, len(recipients)*len(d.enabled))
	for _, recipient := range recipients {
		for _, kind := range recipient.Channels {
			if _, ok := d.enabled[kind]; !ok {
				continue
			}
			tasks = append(tasks, sendTask{recipient: recipient, kind: kind})
		}
	}

	outcomes := make([]domain.ChannelOutcome, len(tasks))
	sem := make(chan struct{}, d.maxConcurrent)
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(slot int, task sendTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[slot] = d.sendOne(ctx, event, task)
		}(i, task)
	}
	wg.Wait()

	result := domain.DispatchResult{
		EventID:     event.EventID,
		EventType:   event.EventType,
		Outcomes:    outcomes,
		AttemptedAt: attemptedAt,
	}
	for _, outcome := range outcomes {
		if outcome.Status == domain.StatusSucceeded {
			result.OverallSuccess = true
		}
		if outcome.Status == domain.StatusFailed {
			d.logger.WarnContext(ctx, "channel send failed",
				"module", "dispatcher",
				"layer", "application",
				"operation", "dispatch",
				"outcome", "failure",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"recipient_id", outcome.RecipientID,
				"channel", string(outcome.Channel),
				"reason", outcome.Reason,
			)
		}
	}
	return result
}

// sendOne confines every failure mode of one adapter call, panics included,
// to a single outcome slot.
func (d *Dispatcher) sendOne(ctx context.Context, event domain.Event, task sendTask) (outcome domain.ChannelOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = domain.FailedOutcome(task.kind, task.recipient.ID, fmt.Sprintf("panic: %v", rec))
		}
	}()

	adapter, ok := d.adapters[task.kind]
	if !ok {
		return domain.SkippedOutcome(task.kind, task.recipient.ID, domain.SkipReasonNotConfigured)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return adapter.Send(sendCtx, task.recipient, event)
}
