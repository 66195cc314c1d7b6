package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/poyrazK/siteverify/internal/adapters/lock"
	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/testutil"
)

var (
	publisher = domain.Principal{PublisherID: "pub-1", Role: domain.RolePublisher, KeyID: "k1"}
	stranger  = domain.Principal{PublisherID: "pub-2", Role: domain.RolePublisher, KeyID: "k2"}
	admin     = domain.Principal{PublisherID: "ops", Role: domain.RoleAdmin, KeyID: "k3"}
)

type fixture struct {
	repo     *testutil.MemoryRepo
	resolver *testutil.StubResolver
	fetcher  *testutil.StubFetcher
	clock    *testutil.FakeClock
	locker   *lock.LocalLocker
	logs     *bytes.Buffer

	websites     ports.WebsiteService
	verification ports.VerificationService
	moderation   ports.ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     testutil.NewMemoryRepo(),
		resolver: &testutil.StubResolver{},
		fetcher:  &testutil.StubFetcher{},
		clock:    testutil.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		locker:   lock.NewLocalLocker(),
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))

	gen := NewChallengeGenerator("_verify", "verify", 72*time.Hour)
	checker := NewChecker(f.resolver, f.fetcher, logger)

	f.websites = NewWebsiteService(f.repo, f.repo, f.locker, RegistryConfig{MaxAttempts: 3, AdScriptBaseURL: "https://cdn.ads.test/"}, f.clock, logger)
	f.verification = NewVerificationService(f.repo, f.repo, f.locker, checker, gen, VerificationConfig{MaxAttempts: 3, CheckTimeout: 2 * time.Second}, f.clock, logger)
	f.moderation = NewModerationService(f.repo, f.repo, f.locker, 3, f.clock, logger)
	return f
}

// register creates a pending website for publisher.
func (f *fixture) register(t *testing.T, name string) *domain.Website {
	t.Helper()
	w, err := f.websites.CreateWebsite(context.Background(), publisher, name, "blog")
	if err != nil {
		t.Fatalf("create website: %v", err)
	}
	return w
}

func (f *fixture) stored(t *testing.T, id string) domain.Website {
	t.Helper()
	w, ok := f.repo.Snapshot(id)
	if !ok {
		t.Fatalf("website %s not stored", id)
	}
	return w
}
