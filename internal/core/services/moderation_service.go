package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/infrastructure/metrics"
)

type moderationService struct {
	repo        ports.WebsiteRepository
	audit       ports.AuditRepository
	locker      ports.Locker
	maxAttempts int
	clock       ports.Clock
	logger      *slog.Logger
}

func NewModerationService(repo ports.WebsiteRepository, auditRepo ports.AuditRepository, locker ports.Locker, maxAttempts int, clock ports.Clock, logger *slog.Logger) ports.ModerationService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock
	}
	return &moderationService{
		repo:        repo,
		audit:       auditRepo,
		locker:      locker,
		maxAttempts: maxAttempts,
		clock:       clock,
		logger:      logger.With("component", "moderation"),
	}
}

// Moderate applies an admin override. It shares the per-website lock with the
// verification flow so an approve cannot interleave with an in-flight check.
func (s *moderationService) Moderate(ctx context.Context, p domain.Principal, websiteID string, action ports.ModerationAction) (*domain.Website, error) {
	if !p.IsAdmin() {
		return nil, domain.NewError(domain.ErrForbidden, "", "admin role required")
	}
	switch action {
	case ports.ActionApprove, ports.ActionReject, ports.ActionReset, ports.ActionToggle:
	default:
		return nil, domain.NewError(domain.ErrValidation, domain.CodeInvalidAction, fmt.Sprintf("unknown action %q", action))
	}

	release, err := acquire(ctx, s.locker, s.logger, websiteID)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := loadOwned(ctx, s.repo, p, websiteID)
	if err != nil {
		return nil, err
	}

	// Toggle flips between active and rejected based on the stored status.
	if action == ports.ActionToggle {
		action = ports.ActionApprove
		if w.Status == domain.StatusActive {
			action = ports.ActionReject
		}
	}

	switch action {
	case ports.ActionApprove:
		w.Status = domain.StatusActive
		w.ActivationSource = domain.ActivatedByAdmin
	case ports.ActionReject:
		w.Status = domain.StatusRejected
		w.ActivationSource = domain.ActivatedByNone
	case ports.ActionReset:
		w.Status = domain.StatusPending
		w.ActivationSource = domain.ActivatedByNone
		w.Verification.Reset()
		w.Verification.MaxAttempts = s.maxAttempts
	}

	now := s.clock.Now()
	w.UpdatedAt = now
	if err := s.repo.UpdateWebsite(ctx, w); err != nil {
		return nil, fmt.Errorf("moderate website %s: %w", websiteID, err)
	}

	metrics.ModerationActions.WithLabelValues(string(action)).Inc()
	s.logger.Info("website moderated", "website_id", w.ID, "action", action, "status", w.Status)
	audit(ctx, s.audit, s.logger, p, w, "MODERATION_"+strings.ToUpper(string(action)), "status="+string(w.Status), now)
	return w, nil
}
