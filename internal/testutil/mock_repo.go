package testutil

import (
	"context"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type MockWebsiteRepo struct {
	mock.Mock
}

func (m *MockWebsiteRepo) CreateWebsite(ctx context.Context, w *domain.Website) error {
	args := m.Called(w)
	return args.Error(0)
}

func (m *MockWebsiteRepo) GetWebsite(ctx context.Context, id string) (*domain.Website, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}

func (m *MockWebsiteRepo) FindWebsiteByDomain(ctx context.Context, publisherID string, domainName string) (*domain.Website, error) {
	args := m.Called(publisherID, domainName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}

func (m *MockWebsiteRepo) ListWebsites(ctx context.Context, filter domain.WebsiteFilter) ([]domain.Website, int, error) {
	args := m.Called(filter)
	return args.Get(0).([]domain.Website), args.Int(1), args.Error(2)
}

func (m *MockWebsiteRepo) UpdateWebsite(ctx context.Context, w *domain.Website) error {
	args := m.Called(w)
	return args.Error(0)
}

func (m *MockWebsiteRepo) SoftDeleteWebsite(ctx context.Context, id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockWebsiteRepo) WebsiteStats(ctx context.Context, publisherID string) (*domain.WebsiteStats, error) {
	args := m.Called(publisherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebsiteStats), args.Error(1)
}

func (m *MockWebsiteRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

type MockAPIKeyRepo struct {
	mock.Mock
}

func (m *MockAPIKeyRepo) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	args := m.Called(keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepo) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockAPIKeyRepo) ListAPIKeys(ctx context.Context, publisherID string) ([]domain.APIKey, error) {
	args := m.Called(publisherID)
	return args.Get(0).([]domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepo) DeleteAPIKey(ctx context.Context, publisherID string, id string) error {
	args := m.Called(publisherID, id)
	return args.Error(0)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) SaveAuditLog(ctx context.Context, log *domain.AuditLog) error {
	args := m.Called(log)
	return args.Error(0)
}

func (m *MockAuditRepo) GetAuditLogs(ctx context.Context, publisherID string) ([]domain.AuditLog, error) {
	args := m.Called(publisherID)
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

// MockWebsiteService implements ports.WebsiteService for handler tests.
type MockWebsiteService struct {
	mock.Mock
}

func (m *MockWebsiteService) CreateWebsite(ctx context.Context, p domain.Principal, rawDomain string, category string) (*domain.Website, error) {
	args := m.Called(p, rawDomain, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}

func (m *MockWebsiteService) GetWebsite(ctx context.Context, p domain.Principal, id string) (*domain.Website, error) {
	args := m.Called(p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}

func (m *MockWebsiteService) ListWebsites(ctx context.Context, p domain.Principal, filter domain.WebsiteFilter) (*domain.WebsitePage, error) {
	args := m.Called(p, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebsitePage), args.Error(1)
}

func (m *MockWebsiteService) UpdateCategory(ctx context.Context, p domain.Principal, id string, category string) (*domain.Website, error) {
	args := m.Called(p, id, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}

func (m *MockWebsiteService) DeleteWebsite(ctx context.Context, p domain.Principal, id string) error {
	args := m.Called(p, id)
	return args.Error(0)
}

func (m *MockWebsiteService) AdCode(ctx context.Context, p domain.Principal, id string) (string, error) {
	args := m.Called(p, id)
	return args.String(0), args.Error(1)
}

func (m *MockWebsiteService) Stats(ctx context.Context, p domain.Principal) (*domain.WebsiteStats, error) {
	args := m.Called(p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebsiteStats), args.Error(1)
}

func (m *MockWebsiteService) ListAuditLogs(ctx context.Context, p domain.Principal, publisherID string) ([]domain.AuditLog, error) {
	args := m.Called(p, publisherID)
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

func (m *MockWebsiteService) HealthCheck(ctx context.Context) map[string]error {
	args := m.Called()
	return args.Get(0).(map[string]error)
}

// MockVerificationService implements ports.VerificationService for handler tests.
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Initiate(ctx context.Context, p domain.Principal, websiteID string, method domain.Method) (*domain.Snapshot, error) {
	args := m.Called(p, websiteID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockVerificationService) Check(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error) {
	args := m.Called(p, websiteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockVerificationService) Status(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error) {
	args := m.Called(p, websiteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

// MockModerationService implements ports.ModerationService for handler tests.
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) Moderate(ctx context.Context, p domain.Principal, websiteID string, action ports.ModerationAction) (*domain.Website, error) {
	args := m.Called(p, websiteID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Website), args.Error(1)
}
