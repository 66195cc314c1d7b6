package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("siteverify_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	if err := NewPostgresRepository(db).Migrate(ctx); err != nil {
		t.Fatalf("failed to apply schema: %s", err)
	}

	return db, func() {
		db.Close()
		pgContainer.Terminate(ctx)
	}
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// 1. Create and read back
	w := &domain.Website{
		ID:           "550e8400-e29b-41d4-a716-446655440000",
		PublisherID:  "pub-1",
		Domain:       "example.com",
		Category:     domain.CategoryNews,
		Status:       domain.StatusPending,
		Verification: domain.Verification{MaxAttempts: 3},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateWebsite(ctx, w); err != nil {
		t.Fatalf("CreateWebsite failed: %v", err)
	}

	dup := *w
	dup.ID = "550e8400-e29b-41d4-a716-446655440009"
	if err := repo.CreateWebsite(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected duplicate conflict, got %v", err)
	}

	got, err := repo.GetWebsite(ctx, w.ID)
	if err != nil || got == nil {
		t.Fatalf("GetWebsite failed: %v", err)
	}
	if got.Domain != "example.com" || got.Verification.Challenge != nil {
		t.Errorf("Unexpected website: %+v", got)
	}

	// 2. Persist a challenge with a version check
	got.Verification.Issue(&domain.Challenge{
		Method:    domain.MethodDNS,
		Token:     "abc123",
		DNS:       &domain.DNSRecord{Type: "TXT", Name: "_verify.example.com", Value: "abc123"},
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}, 3)
	stale := *got
	if err := repo.UpdateWebsite(ctx, got); err != nil {
		t.Fatalf("UpdateWebsite failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Expected version 2, got %d", got.Version)
	}
	if err := repo.UpdateWebsite(ctx, &stale); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected stale update conflict, got %v", err)
	}

	reloaded, _ := repo.GetWebsite(ctx, w.ID)
	if reloaded.Verification.Challenge == nil || reloaded.Verification.Challenge.DNS.Name != "_verify.example.com" {
		t.Errorf("Challenge not persisted: %+v", reloaded.Verification)
	}

	// 3. Listing, filters and stats
	other := &domain.Website{
		ID:           "550e8400-e29b-41d4-a716-446655440001",
		PublisherID:  "pub-2",
		Domain:       "blog.example.org",
		Category:     domain.CategoryBlog,
		Status:       domain.StatusActive,
		Verification: domain.Verification{MaxAttempts: 3, IsVerified: true, VerifiedAt: &now},
		Version:      1,
		CreatedAt:    now.Add(time.Minute),
		UpdatedAt:    now.Add(time.Minute),
	}
	if err := repo.CreateWebsite(ctx, other); err != nil {
		t.Fatalf("CreateWebsite failed: %v", err)
	}

	all, total, err := repo.ListWebsites(ctx, domain.WebsiteFilter{})
	if err != nil || total != 2 || len(all) != 2 {
		t.Errorf("ListWebsites failed: %v total=%d", err, total)
	}
	if len(all) == 2 && all[0].ID != other.ID {
		t.Errorf("Expected newest first, got %s", all[0].Domain)
	}

	verified := true
	only, total, _ := repo.ListWebsites(ctx, domain.WebsiteFilter{IsVerified: &verified})
	if total != 1 || only[0].ID != other.ID {
		t.Errorf("IsVerified filter failed: %d", total)
	}
	searched, total, _ := repo.ListWebsites(ctx, domain.WebsiteFilter{Search: "blog"})
	if total != 1 || searched[0].Domain != "blog.example.org" {
		t.Errorf("Search filter failed: %d", total)
	}

	stats, err := repo.WebsiteStats(ctx, "")
	if err != nil || stats.Total != 2 || stats.Active != 1 || stats.Pending != 1 || stats.Verified != 1 {
		t.Errorf("WebsiteStats failed: %v %+v", err, stats)
	}

	// 4. Soft delete frees the domain for re-registration
	if err := repo.SoftDeleteWebsite(ctx, w.ID, now); err != nil {
		t.Fatalf("SoftDeleteWebsite failed: %v", err)
	}
	if gone, _ := repo.GetWebsite(ctx, w.ID); gone != nil {
		t.Error("Expected deleted website to be hidden")
	}
	if err := repo.CreateWebsite(ctx, &dup); err != nil {
		t.Errorf("Re-registering after delete failed: %v", err)
	}

	// 5. Audit logs and API keys
	entry := &domain.AuditLog{
		ID:           "550e8400-e29b-41d4-a716-446655440003",
		PublisherID:  "pub-1",
		Actor:        "publisher",
		Action:       "WEBSITE_CREATED",
		ResourceType: "WEBSITE",
		ResourceID:   w.ID,
		CreatedAt:    now,
	}
	if err := repo.SaveAuditLog(ctx, entry); err != nil {
		t.Fatalf("SaveAuditLog failed: %v", err)
	}
	logs, err := repo.GetAuditLogs(ctx, "pub-1")
	if err != nil || len(logs) != 1 {
		t.Errorf("GetAuditLogs failed: %v, count: %d", err, len(logs))
	}

	key := &domain.APIKey{
		ID:          "550e8400-e29b-41d4-a716-446655440004",
		PublisherID: "pub-1",
		Name:        "dashboard",
		KeyHash:     "hash",
		KeyPrefix:   "sv_abcde",
		Role:        domain.RolePublisher,
		Active:      true,
		CreatedAt:   now,
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	found, err := repo.GetAPIKeyByHash(ctx, "hash")
	if err != nil || found == nil || found.Role != domain.RolePublisher {
		t.Errorf("GetAPIKeyByHash failed: %v %+v", err, found)
	}
	if err := repo.DeleteAPIKey(ctx, "pub-1", key.ID); err != nil {
		t.Errorf("DeleteAPIKey failed: %v", err)
	}
	found, _ = repo.GetAPIKeyByHash(ctx, "hash")
	if found == nil || found.Active {
		t.Errorf("Expected key to be deactivated: %+v", found)
	}

	if err := repo.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
