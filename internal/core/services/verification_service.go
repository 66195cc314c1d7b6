package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/infrastructure/metrics"
)

// VerificationConfig bounds the verification state machine.
type VerificationConfig struct {
	MaxAttempts  int
	CheckTimeout time.Duration
}

type verificationService struct {
	repo      ports.WebsiteRepository
	audit     ports.AuditRepository
	locker    ports.Locker
	checker   *Checker
	generator *ChallengeGenerator
	cfg       VerificationConfig
	clock     ports.Clock
	logger    *slog.Logger
}

func NewVerificationService(
	repo ports.WebsiteRepository,
	auditRepo ports.AuditRepository,
	locker ports.Locker,
	checker *Checker,
	generator *ChallengeGenerator,
	cfg VerificationConfig,
	clock ports.Clock,
	logger *slog.Logger,
) ports.VerificationService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock
	}
	return &verificationService{
		repo:      repo,
		audit:     auditRepo,
		locker:    locker,
		checker:   checker,
		generator: generator,
		cfg:       cfg,
		clock:     clock,
		logger:    logger.With("component", "verification"),
	}
}

func (s *verificationService) lock(ctx context.Context, websiteID string) (func(), error) {
	return acquire(ctx, s.locker, s.logger, websiteID)
}

// Initiate issues a fresh challenge for the website, replacing any previous one
// and resetting the attempt counter.
func (s *verificationService) Initiate(ctx context.Context, p domain.Principal, websiteID string, method domain.Method) (*domain.Snapshot, error) {
	if _, err := domain.ParseMethod(string(method)); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := loadOwned(ctx, s.repo, p, websiteID)
	if err != nil {
		return nil, err
	}
	if err := checkVerifiable(w); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	state, err := domain.Transition(w.DeriveState(now), domain.EventSelectMethod)
	if err != nil {
		return nil, err
	}

	challenge, err := s.generator.Generate(w, method, now)
	if err != nil {
		return nil, err
	}
	w.Verification.Issue(challenge, s.cfg.MaxAttempts)
	w.UpdatedAt = now
	if err := s.repo.UpdateWebsite(ctx, w); err != nil {
		return nil, fmt.Errorf("save challenge for website %s: %w", w.ID, err)
	}

	state, err = domain.Transition(state, domain.EventChallengeIssued)
	if err != nil {
		return nil, err
	}

	metrics.ChallengesIssued.WithLabelValues(string(method)).Inc()
	s.logger.Info("verification challenge issued", "website_id", w.ID, "domain", w.Domain, "method", method, "expires_at", challenge.ExpiresAt)
	audit(ctx, s.audit, s.logger, p, w, "VERIFICATION_INITIATED", "method="+string(method), now)

	snap := s.snapshot(w, state, nil)
	snap.Message = "Verification instructions generated"
	return snap, nil
}

// Check runs the live lookup for the website's current challenge and applies the
// result. Expired and exhausted challenges are answered without any lookup.
func (s *verificationService) Check(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error) {
	release, err := s.lock(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := loadOwned(ctx, s.repo, p, websiteID)
	if err != nil {
		return nil, err
	}
	if err := checkVerifiable(w); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resting := w.DeriveState(now)
	switch resting {
	case domain.StateExpired:
		res := domain.CheckResult{Outcome: domain.OutcomeExpired, Remaining: w.Verification.Remaining()}
		metrics.ChecksTotal.WithLabelValues(string(w.Verification.Method), string(res.Outcome)).Inc()
		return s.snapshot(w, resting, &res), nil
	case domain.StateExhausted:
		res := domain.CheckResult{Outcome: domain.OutcomeExhausted}
		metrics.ChecksTotal.WithLabelValues(string(w.Verification.Method), string(res.Outcome)).Inc()
		return s.snapshot(w, resting, &res), nil
	}

	state, err := domain.Transition(resting, domain.EventCheckRequested)
	if err != nil {
		return nil, err
	}

	challenge := w.Verification.Challenge
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	start := time.Now()
	probe := s.checker.Probe(probeCtx, challenge)
	cancel()
	metrics.CheckDuration.WithLabelValues(string(challenge.Method)).Observe(time.Since(start).Seconds())

	// The caller walked away; leave the record untouched.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	done := s.clock.Now()
	res := domain.CheckResult{Performed: true, Hint: probe.Hint, Detail: probe.Detail}

	switch {
	case probe.Transient:
		res.Outcome = domain.OutcomeTransient
		res.Remaining = w.Verification.Remaining()
		state = resting
	case probe.Passed:
		w.Verification.MarkVerified(done)
		w.Status = domain.StatusActive
		w.ActivationSource = domain.ActivatedByVerification
		res.Outcome = domain.OutcomeSuccess
		if state, err = domain.Transition(state, domain.EventCheckPassed); err != nil {
			return nil, err
		}
	default:
		w.Verification.RecordMismatch(done)
		res.Remaining = w.Verification.Remaining()
		ev := domain.EventCheckMismatch
		res.Outcome = domain.OutcomeFailed
		if w.Verification.Exhausted() {
			ev = domain.EventCheckExhausted
			res.Outcome = domain.OutcomeExhausted
		}
		if state, err = domain.Transition(state, ev); err != nil {
			return nil, err
		}
	}

	if res.Outcome != domain.OutcomeTransient {
		w.UpdatedAt = done
		if err := s.repo.UpdateWebsite(ctx, w); err != nil {
			return nil, fmt.Errorf("save check result for website %s: %w", w.ID, err)
		}
	}

	metrics.ChecksTotal.WithLabelValues(string(challenge.Method), string(res.Outcome)).Inc()
	s.logger.Info("verification check completed",
		"website_id", w.ID,
		"domain", w.Domain,
		"method", challenge.Method,
		"outcome", res.Outcome,
		"hint", res.Hint,
		"attempts", w.Verification.Attempts,
		"remaining", w.Verification.Remaining(),
	)
	if res.Outcome == domain.OutcomeSuccess {
		audit(ctx, s.audit, s.logger, p, w, "VERIFICATION_SUCCEEDED", "method="+string(challenge.Method), done)
	} else if res.Outcome == domain.OutcomeExhausted {
		audit(ctx, s.audit, s.logger, p, w, "VERIFICATION_EXHAUSTED", "method="+string(challenge.Method), done)
	}

	return s.snapshot(w, state, &res), nil
}

// Status reports the current verification view without touching the network.
func (s *verificationService) Status(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error) {
	w, err := loadOwned(ctx, s.repo, p, websiteID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(w, w.DeriveState(s.clock.Now()), nil), nil
}

// checkVerifiable rejects websites that verification must not touch: those already
// active (verified or admin-approved) and those rejected by moderation.
func checkVerifiable(w *domain.Website) error {
	switch w.Status {
	case domain.StatusActive:
		return domain.NewError(domain.ErrInvalidState, domain.CodeAlreadyVerified, "website is already active")
	case domain.StatusRejected:
		return domain.NewError(domain.ErrInvalidState, domain.CodeWebsiteRejected, "website was rejected by moderation")
	}
	return nil
}

func (s *verificationService) snapshot(w *domain.Website, state domain.State, res *domain.CheckResult) *domain.Snapshot {
	v := w.Verification
	snap := &domain.Snapshot{
		WebsiteID:  w.ID,
		Domain:     w.Domain,
		Status:     w.Status,
		State:      state,
		Method:     v.Method,
		IsVerified: v.IsVerified,
		VerifiedAt: v.VerifiedAt,
		Attempts: domain.AttemptInfo{
			Count:       v.Attempts,
			Remaining:   v.Remaining(),
			Max:         v.MaxAttempts,
			LastAttempt: v.LastAttempt,
		},
		Result: res,
	}
	if c := v.Challenge; c != nil && !v.IsVerified {
		snap.DNS = c.DNS
		snap.File = c.File
		expires := c.ExpiresAt
		snap.ExpiresAt = &expires
		if state != domain.StateExpired && state != domain.StateExhausted {
			snap.Instructions = Instructions(c)
		}
	}
	if res != nil {
		snap.Message = res.Message()
	}
	return snap
}
