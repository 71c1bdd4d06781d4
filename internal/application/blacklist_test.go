package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seido-app/courier/internal/application"
	"github.com/seido-app/courier/internal/domain"
)

func TestIsBlacklistedMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	repo := newFakeBlacklistRepo()
	guard := application.NewBlacklistGuard(nil, repo, nil)
	ctx := context.Background()

	if _, err := guard.Add(ctx, "team-1", "Spam@Example.COM", "spam"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	for _, address := range []string{"spam@example.com", "SPAM@EXAMPLE.COM", "  spam@example.com  "} {
		blocked, err := guard.IsBlacklisted(ctx, "team-1", address)
		if err != nil {
			t.Fatalf("lookup %q failed: %v", address, err)
		}
		if !blocked {
			t.Fatalf("expected %q to be blocked", address)
		}
	}

	blocked, err := guard.IsBlacklisted(ctx, "team-1", "other@example.com")
	if err != nil || blocked {
		t.Fatalf("unrelated address must not be blocked (blocked=%v err=%v)", blocked, err)
	}
}

func TestIsBlacklistedScopedPerTeam(t *testing.T) {
	t.Parallel()

	repo := newFakeBlacklistRepo()
	guard := application.NewBlacklistGuard(nil, repo, nil)
	ctx := context.Background()

	if _, err := guard.Add(ctx, "team-1", "spam@example.com", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	blocked, err := guard.IsBlacklisted(ctx, "team-2", "spam@example.com")
	if err != nil || blocked {
		t.Fatalf("blacklist must be team scoped (blocked=%v err=%v)", blocked, err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeBlacklistRepo()
	guard := application.NewBlacklistGuard(nil, repo, nil)
	ctx := context.Background()

	if _, err := guard.Add(ctx, "team-1", "spam@example.com", "first"); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := guard.Add(ctx, "team-1", "SPAM@example.com", "second"); err != nil {
		t.Fatalf("re-adding the same address must not error: %v", err)
	}

	entries, err := guard.ListByTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(entries))
	}
}

func TestIsBlacklistedCacheHitSkipsRepository(t *testing.T) {
	t.Parallel()

	repo := newFakeBlacklistRepo()
	cache := newFakeBlacklistCache()
	guard := application.NewBlacklistGuard(nil, repo, cache)
	ctx := context.Background()

	if _, err := guard.Add(ctx, "team-1", "spam@example.com", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	repoCallsBefore := repo.calls
	blocked, err := guard.IsBlacklisted(ctx, "team-1", "spam@example.com")
	if err != nil || !blocked {
		t.Fatalf("expected cached positive lookup (blocked=%v err=%v)", blocked, err)
	}
	if repo.calls != repoCallsBefore {
		t.Fatalf("cache hit should not reach the repository")
	}
}

func TestIsBlacklistedCacheErrorFallsBackToRepository(t *testing.T) {
	t.Parallel()

	repo := newFakeBlacklistRepo()
	cache := newFakeBlacklistCache()
	cache.getErr = errors.New("redis down")
	guard := application.NewBlacklistGuard(nil, repo, cache)
	ctx := context.Background()

	if err := repo.Add(ctx, domain.BlacklistEntry{TeamID: "team-1", SenderAddress: "spam@example.com"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	blocked, err := guard.IsBlacklisted(ctx, "team-1", "spam@example.com")
	if err != nil {
		t.Fatalf("cache failure must not fail the check: %v", err)
	}
	if !blocked {
		t.Fatalf("expected repository fallback to report blocked")
	}
}

func TestAddRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	guard := application.NewBlacklistGuard(nil, newFakeBlacklistRepo(), nil)

	if _, err := guard.Add(context.Background(), "", "spam@example.com", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty team, got %v", err)
	}
	if _, err := guard.Add(context.Background(), "team-1", "   ", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty address, got %v", err)
	}
}
