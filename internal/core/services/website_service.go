package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
)

// RegistryConfig holds registry-level settings.
type RegistryConfig struct {
	MaxAttempts     int
	AdScriptBaseURL string
}

type websiteService struct {
	repo   ports.WebsiteRepository
	audit  ports.AuditRepository
	locker ports.Locker
	cfg    RegistryConfig
	clock  ports.Clock
	logger *slog.Logger
}

func NewWebsiteService(repo ports.WebsiteRepository, auditRepo ports.AuditRepository, locker ports.Locker, cfg RegistryConfig, clock ports.Clock, logger *slog.Logger) ports.WebsiteService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock
	}
	return &websiteService{
		repo:   repo,
		audit:  auditRepo,
		locker: locker,
		cfg:    cfg,
		clock:  clock,
		logger: logger.With("component", "registry"),
	}
}

func (s *websiteService) CreateWebsite(ctx context.Context, p domain.Principal, rawDomain string, category string) (*domain.Website, error) {
	name, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindWebsiteByDomain(ctx, p.PublisherID, name)
	if err != nil {
		return nil, fmt.Errorf("check duplicate website: %w", err)
	}
	if existing != nil {
		return nil, domain.NewError(domain.ErrConflict, domain.CodeDuplicateWebsite, fmt.Sprintf("website %s is already registered", name))
	}

	now := s.clock.Now()
	w := &domain.Website{
		ID:           uuid.New().String(),
		PublisherID:  p.PublisherID,
		Domain:       name,
		Category:     cat,
		Status:       domain.StatusPending,
		Verification: domain.Verification{MaxAttempts: s.cfg.MaxAttempts},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateWebsite(ctx, w); err != nil {
		return nil, fmt.Errorf("create website: %w", err)
	}

	s.logger.Info("website registered", "website_id", w.ID, "domain", w.Domain, "publisher_id", w.PublisherID)
	audit(ctx, s.audit, s.logger, p, w, "WEBSITE_CREATED", "domain="+w.Domain, now)
	return w, nil
}

func (s *websiteService) GetWebsite(ctx context.Context, p domain.Principal, id string) (*domain.Website, error) {
	return loadOwned(ctx, s.repo, p, id)
}

// ListWebsites pages through websites. Publishers are always pinned to their own.
func (s *websiteService) ListWebsites(ctx context.Context, p domain.Principal, filter domain.WebsiteFilter) (*domain.WebsitePage, error) {
	if !p.IsAdmin() {
		filter.PublisherID = p.PublisherID
	}
	filter.Search = strings.ToLower(strings.TrimSpace(filter.Search))
	filter.Normalize()

	items, total, err := s.repo.ListWebsites(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	if items == nil {
		items = []domain.Website{}
	}
	return &domain.WebsitePage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *websiteService) UpdateCategory(ctx context.Context, p domain.Principal, id string, category string) (*domain.Website, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	release, err := acquire(ctx, s.locker, s.logger, id)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := loadOwned(ctx, s.repo, p, id)
	if err != nil {
		return nil, err
	}
	if w.Category == cat {
		return w, nil
	}
	w.Category = cat
	w.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateWebsite(ctx, w); err != nil {
		return nil, fmt.Errorf("update website %s: %w", id, err)
	}
	return w, nil
}

// DeleteWebsite soft-deletes; the row is kept for audit.
func (s *websiteService) DeleteWebsite(ctx context.Context, p domain.Principal, id string) error {
	release, err := acquire(ctx, s.locker, s.logger, id)
	if err != nil {
		return err
	}
	defer release()

	w, err := loadOwned(ctx, s.repo, p, id)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.repo.SoftDeleteWebsite(ctx, id, now); err != nil {
		return fmt.Errorf("delete website %s: %w", id, err)
	}
	s.logger.Info("website deleted", "website_id", id, "actor", actorOf(p))
	audit(ctx, s.audit, s.logger, p, w, "WEBSITE_DELETED", "", now)
	return nil
}

// AdCode returns the ad script snippet for an active website.
func (s *websiteService) AdCode(ctx context.Context, p domain.Principal, id string) (string, error) {
	w, err := loadOwned(ctx, s.repo, p, id)
	if err != nil {
		return "", err
	}
	if w.Status != domain.StatusActive {
		return "", domain.NewError(domain.ErrInvalidState, domain.CodeWebsiteNotActive, "ad code is available once the website is active")
	}
	base := strings.TrimSuffix(s.cfg.AdScriptBaseURL, "/")
	return fmt.Sprintf(`<script async src="%s/ads.js" data-website-id="%s" data-publisher-id="%s"></script>`, base, w.ID, w.PublisherID), nil
}

func (s *websiteService) Stats(ctx context.Context, p domain.Principal) (*domain.WebsiteStats, error) {
	publisherID := ""
	if !p.IsAdmin() {
		publisherID = p.PublisherID
	}
	stats, err := s.repo.WebsiteStats(ctx, publisherID)
	if err != nil {
		return nil, fmt.Errorf("website stats: %w", err)
	}
	return stats, nil
}

// ListAuditLogs returns audit entries. Admins may read any publisher (or all,
// with an empty publisherID); publishers only their own.
func (s *websiteService) ListAuditLogs(ctx context.Context, p domain.Principal, publisherID string) ([]domain.AuditLog, error) {
	if !p.IsAdmin() {
		publisherID = p.PublisherID
	}
	logs, err := s.audit.GetAuditLogs(ctx, publisherID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// HealthCheck pings Postgres, plus the lock backend when it is remote.
func (s *websiteService) HealthCheck(ctx context.Context) map[string]error {
	res := map[string]error{
		"postgres": s.repo.Ping(ctx),
	}
	if p, ok := s.locker.(pinger); ok {
		res["redis"] = p.Ping(ctx)
	}
	return res
}

type pinger interface {
	Ping(ctx context.Context) error
}
