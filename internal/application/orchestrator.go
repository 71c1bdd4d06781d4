package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// Orchestrator triggers sync across all active connections. Connections are
// independent, so they run with bounded concurrency; a per-connection lock
// guarantees two syncs of the same connection never overlap.
type Orchestrator struct {
	logger        *slog.Logger
	registry      ports.ConnectionRegistry
	engine        *SyncEngine
	locks         ports.SyncLocker
	maxConcurrent int
	lockTTL       time.Duration
	nowFn         func() time.Time
}

func NewOrchestrator(
	logger *slog.Logger,
	registry ports.ConnectionRegistry,
	engine *SyncEngine,
	locks ports.SyncLocker,
	maxConcurrent int,
	lockTTL time.Duration,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Orchestrator{
		logger:        logger,
		registry:      registry,
		engine:        engine,
		locks:         locks,
		maxConcurrent: maxConcurrent,
		lockTTL:       lockTTL,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// SyncAll returns one outcome per active connection. A single connection's
// error never stops the remaining connections.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]domain.SyncOutcome, error) {
	connections, err := o.registry.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.SyncOutcome, len(connections))
	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup
	for i, conn := range connections {
		wg.Add(1)
		go func(slot int, conn domain.MailConnection) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[slot] = o.syncLocked(ctx, conn)
		}(i, conn)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, outcome := range outcomes {
		if outcome.Status == domain.SyncError {
			failed++
		} else {
			succeeded++
		}
	}
	o.logger.InfoContext(ctx, "sync cycle completed",
		"module", "orchestrator",
		"layer", "application",
		"operation", "sync_all",
		"outcome", "success",
		"connections", len(connections),
		"succeeded", succeeded,
		"failed", failed,
	)
	return outcomes, nil
}

// SyncOne serves the manual trigger for a single connection.
func (o *Orchestrator) SyncOne(ctx context.Context, connectionID string) (domain.SyncOutcome, error) {
	conn, err := o.registry.GetByID(ctx, connectionID)
	if err != nil {
		return domain.SyncOutcome{}, err
	}
	if !conn.IsActive {
		return domain.SyncOutcome{}, domain.ErrInvalidInput
	}
	return o.syncLocked(ctx, conn), nil
}

// Run drives the schedule until context cancellation.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := o.SyncAll(ctx); err != nil {
			o.logger.ErrorContext(ctx, "sync cycle failed to start",
				"module", "orchestrator",
				"layer", "application",
				"operation", "sync_all",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) syncLocked(ctx context.Context, conn domain.MailConnection) domain.SyncOutcome {
	release, acquired, err := o.locks.TryAcquire(ctx, conn.ConnectionID, o.lockTTL)
	if err != nil {
		return domain.SyncErrorOutcome(conn.ConnectionID, "sync_lock_unavailable: "+err.Error(), o.nowFn())
	}
	if !acquired {
		// Another sync of this connection is in flight; report without
		// touching the connection row.
		return domain.SyncErrorOutcome(conn.ConnectionID, "sync_in_progress", o.nowFn())
	}
	defer release()
	return o.engine.SyncConnection(ctx, conn)
}
