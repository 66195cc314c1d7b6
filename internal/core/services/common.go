package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/infrastructure/metrics"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock used outside tests.
var SystemClock ports.Clock = systemClock{}

func lockKey(websiteID string) string {
	return "website:" + websiteID
}

// acquire takes the per-website lock. Caller cancellation is returned as the
// context error; any other failure is a busy conflict.
func acquire(ctx context.Context, locker ports.Locker, logger *slog.Logger, websiteID string) (func(), error) {
	release, err := locker.Acquire(ctx, lockKey(websiteID))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.LockFailures.Inc()
		logger.Warn("failed to acquire website lock", "website_id", websiteID, "error", err)
		return nil, domain.NewError(domain.ErrConflict, domain.CodeOperationBusy, "another operation on this website is in progress")
	}
	return release, nil
}

func websiteNotFound(id string) error {
	return domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, fmt.Sprintf("website %s not found", id))
}

// loadOwned fetches a live website visible to p. Publishers cannot see other
// publishers' websites; those look exactly like missing ones.
func loadOwned(ctx context.Context, repo ports.WebsiteRepository, p domain.Principal, id string) (*domain.Website, error) {
	w, err := repo.GetWebsite(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load website %s: %w", id, err)
	}
	if w == nil || w.IsDeleted {
		return nil, websiteNotFound(id)
	}
	if !p.IsAdmin() && w.PublisherID != p.PublisherID {
		return nil, websiteNotFound(id)
	}
	return w, nil
}

func actorOf(p domain.Principal) string {
	if p.IsAdmin() {
		return "admin"
	}
	return "publisher"
}

// audit writes a best-effort audit entry; failures are logged and swallowed.
func audit(ctx context.Context, repo ports.AuditRepository, logger *slog.Logger, p domain.Principal, w *domain.Website, action, details string, now time.Time) {
	if repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:           uuid.New().String(),
		PublisherID:  w.PublisherID,
		Actor:        actorOf(p),
		Action:       action,
		ResourceType: "WEBSITE",
		ResourceID:   w.ID,
		Details:      details,
		CreatedAt:    now,
	}
	if err := repo.SaveAuditLog(ctx, entry); err != nil {
		logger.Error("failed to save audit log", "action", action, "website_id", w.ID, "error", err)
	}
}
