package ports

import (
	"context"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
)

type WebsiteRepository interface {
	CreateWebsite(ctx context.Context, w *domain.Website) error
	// GetWebsite returns nil, nil when the website does not exist or is soft-deleted.
	GetWebsite(ctx context.Context, id string) (*domain.Website, error)
	FindWebsiteByDomain(ctx context.Context, publisherID string, domainName string) (*domain.Website, error)
	ListWebsites(ctx context.Context, filter domain.WebsiteFilter) ([]domain.Website, int, error)
	// UpdateWebsite persists w if its stored version equals w.Version, then bumps
	// w.Version. A stale version yields domain.ErrConflict.
	UpdateWebsite(ctx context.Context, w *domain.Website) error
	SoftDeleteWebsite(ctx context.Context, id string, at time.Time) error
	WebsiteStats(ctx context.Context, publisherID string) (*domain.WebsiteStats, error)
	Ping(ctx context.Context) error
}

type APIKeyRepository interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	ListAPIKeys(ctx context.Context, publisherID string) ([]domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, publisherID string, id string) error
}

type AuditRepository interface {
	SaveAuditLog(ctx context.Context, log *domain.AuditLog) error
	GetAuditLogs(ctx context.Context, publisherID string) ([]domain.AuditLog, error)
}

// TXTResolver looks up TXT records. Errors wrap domain.ErrTXTNotFound when the
// name has no TXT data, or domain.ErrTransient for infrastructure failures.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

type FetchResponse struct {
	StatusCode int
	Body       []byte
	// Truncated is set when the body exceeded the fetcher's size cap; Body then
	// holds only the first bytes.
	Truncated bool
}

// HTTPFetcher retrieves a URL. Any non-nil error wraps domain.ErrTransient; HTTP
// error statuses are returned as a normal response.
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResponse, error)
}

// Locker serialises operations on a key across goroutines (and, for distributed
// implementations, across processes).
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Clock interface {
	Now() time.Time
}

type WebsiteService interface {
	CreateWebsite(ctx context.Context, p domain.Principal, rawDomain string, category string) (*domain.Website, error)
	GetWebsite(ctx context.Context, p domain.Principal, id string) (*domain.Website, error)
	ListWebsites(ctx context.Context, p domain.Principal, filter domain.WebsiteFilter) (*domain.WebsitePage, error)
	UpdateCategory(ctx context.Context, p domain.Principal, id string, category string) (*domain.Website, error)
	DeleteWebsite(ctx context.Context, p domain.Principal, id string) error
	AdCode(ctx context.Context, p domain.Principal, id string) (string, error)
	Stats(ctx context.Context, p domain.Principal) (*domain.WebsiteStats, error)
	ListAuditLogs(ctx context.Context, p domain.Principal, publisherID string) ([]domain.AuditLog, error)
	HealthCheck(ctx context.Context) map[string]error
}

type VerificationService interface {
	Initiate(ctx context.Context, p domain.Principal, websiteID string, method domain.Method) (*domain.Snapshot, error)
	Check(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error)
	Status(ctx context.Context, p domain.Principal, websiteID string) (*domain.Snapshot, error)
}

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
	ActionReset   ModerationAction = "reset"
	// ActionToggle resolves to reject for active websites and approve otherwise.
	ActionToggle ModerationAction = "toggle"
)

type ModerationService interface {
	Moderate(ctx context.Context, p domain.Principal, websiteID string, action ModerationAction) (*domain.Website, error)
}
