package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// BlacklistGuard answers "is this sender blocked for this team" on the sync
// engine's hot path. Lookups go through a read-through cache so the check
// stays O(1) amortized; the repository remains the source of truth.
type BlacklistGuard struct {
	logger *slog.Logger
	repo   ports.BlacklistRepository
	cache  ports.BlacklistCache
	nowFn  func() time.Time
}

func NewBlacklistGuard(logger *slog.Logger, repo ports.BlacklistRepository, cache ports.BlacklistCache) *BlacklistGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlacklistGuard{
		logger: logger,
		repo:   repo,
		cache:  cache,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// IsBlacklisted matches the exact normalized address, case-insensitively.
// Cache errors degrade to a repository lookup rather than failing the check.
func (g *BlacklistGuard) IsBlacklisted(ctx context.Context, teamID, senderAddress string) (bool, error) {
	address := domain.NormalizeAddress(senderAddress)
	if address == "" || teamID == "" {
		return false, nil
	}

	if g.cache != nil {
		blocked, found, err := g.cache.Get(ctx, teamID, address)
		if err == nil && found {
			return blocked, nil
		}
		if err != nil {
			g.logger.WarnContext(ctx, "blacklist cache read failed",
				"module", "blacklist",
				"layer", "application",
				"operation", "cache_get",
				"outcome", "failure",
				"team_id", teamID,
				"error", err,
			)
		}
	}

	blocked, err := g.repo.Exists(ctx, teamID, address)
	if err != nil {
		return false, err
	}
	if g.cache != nil {
		_ = g.cache.Set(ctx, teamID, address, blocked)
	}
	return blocked, nil
}

// Add appends one entry. Re-adding an existing address is idempotent.
func (g *BlacklistGuard) Add(ctx context.Context, teamID, senderAddress, reason string) (domain.BlacklistEntry, error) {
	address := domain.NormalizeAddress(senderAddress)
	if address == "" || teamID == "" {
		return domain.BlacklistEntry{}, domain.ErrInvalidInput
	}
	entry := domain.BlacklistEntry{
		TeamID:        teamID,
		SenderAddress: address,
		Reason:        reason,
		CreatedAt:     g.nowFn(),
	}
	if err := g.repo.Add(ctx, entry); err != nil && !errors.Is(err, domain.ErrConflict) {
		return domain.BlacklistEntry{}, err
	}
	if g.cache != nil {
		_ = g.cache.Set(ctx, teamID, address, true)
	}
	g.logger.InfoContext(ctx, "sender blacklisted",
		"module", "blacklist",
		"layer", "application",
		"operation", "add",
		"outcome", "success",
		"team_id", teamID,
		"sender", address,
	)
	return entry, nil
}

func (g *BlacklistGuard) ListByTeam(ctx context.Context, teamID string) ([]domain.BlacklistEntry, error) {
	if teamID == "" {
		return nil, domain.ErrInvalidInput
	}
	return g.repo.ListByTeam(ctx, teamID)
}
