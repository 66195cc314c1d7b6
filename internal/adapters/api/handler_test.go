package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	publisher = domain.Principal{PublisherID: "pub-1", Role: domain.RolePublisher, KeyID: "k1"}
	adminUser = domain.Principal{PublisherID: "ops", Role: domain.RoleAdmin, KeyID: "k2"}
)

type fixture struct {
	websites     *testutil.MockWebsiteService
	verification *testutil.MockVerificationService
	moderation   *testutil.MockModerationService
	keys         *testutil.MockAPIKeyRepo
	mux          *http.ServeMux
}

func newFixture(limiter *CheckLimiter) *fixture {
	f := &fixture{
		websites:     new(testutil.MockWebsiteService),
		verification: new(testutil.MockVerificationService),
		moderation:   new(testutil.MockModerationService),
		keys:         new(testutil.MockAPIKeyRepo),
		mux:          http.NewServeMux(),
	}
	NewAPIHandler(f.websites, f.verification, f.moderation, f.keys, limiter).RegisterRoutes(f.mux)

	f.keys.On("GetAPIKeyByHash", HashKey("pub-key")).
		Return(&domain.APIKey{ID: "k1", PublisherID: "pub-1", Role: domain.RolePublisher, Active: true}, nil)
	f.keys.On("GetAPIKeyByHash", HashKey("admin-key")).
		Return(&domain.APIKey{ID: "k2", PublisherID: "ops", Role: domain.RoleAdmin, Active: true}, nil)
	return f
}

func (f *fixture) do(method, path, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

type decoded struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) decoded {
	t.Helper()
	var d decoded
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&d))
	return d
}

func TestCreateWebsite(t *testing.T) {
	f := newFixture(nil)
	site := &domain.Website{ID: "w1", PublisherID: "pub-1", Domain: "example.com", Status: domain.StatusPending}
	f.websites.On("CreateWebsite", publisher, "https://www.Example.com/", "news").Return(site, nil)

	rr := f.do("POST", "/websites", "pub-key", map[string]string{"domain": "https://www.Example.com/", "category": "news"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	resp := decode(t, rr)
	assert.True(t, resp.Success)
	var got domain.Website
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "w1", got.ID)
}

func TestCreateWebsite_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid domain", domain.NewError(domain.ErrValidation, domain.CodeInvalidDomain, "bad"), http.StatusBadRequest, domain.CodeInvalidDomain},
		{"duplicate", domain.NewError(domain.ErrConflict, domain.CodeDuplicateWebsite, "dup"), http.StatusConflict, domain.CodeDuplicateWebsite},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.websites.On("CreateWebsite", publisher, "x", "").Return(nil, tt.err)

			rr := f.do("POST", "/websites", "pub-key", map[string]string{"domain": "x"})
			assert.Equal(t, tt.status, rr.Code)
			resp := decode(t, rr)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Message, "db down")
			}
		})
	}
}

func TestPublisherRoutesRequireAuth(t *testing.T) {
	f := newFixture(nil)
	f.keys.On("GetAPIKeyByHash", HashKey("bogus")).Return(nil, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/websites", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/websites", "bogus", nil).Code)
}

func TestListWebsites_ParsesFilter(t *testing.T) {
	f := newFixture(nil)
	verified := true
	want := domain.WebsiteFilter{
		Status:     domain.StatusActive,
		Category:   domain.CategoryBlog,
		IsVerified: &verified,
		Search:     "shop",
		SortBy:     domain.SortByDomain,
		SortDesc:   false,
		Page:       2,
		Limit:      50,
	}
	f.websites.On("ListWebsites", publisher, want).
		Return(&domain.WebsitePage{Items: []domain.Website{}, Total: 0, Page: 2, Limit: 50}, nil)

	rr := f.do("GET", "/websites?status=active&category=blog&isVerified=true&search=shop&sortBy=domain&sortOrder=asc&page=2&limit=50", "pub-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	f.websites.AssertExpectations(t)
}

func TestListWebsites_BadFilter(t *testing.T) {
	f := newFixture(nil)
	rr := f.do("GET", "/websites?status=bogus", "pub-key", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do("GET", "/websites?page=-1", "pub-key", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetWebsite_NotFound(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("GetWebsite", publisher, "w9").
		Return(nil, domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, "website w9 not found"))

	rr := f.do("GET", "/websites/w9", "pub-key", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.CodeWebsiteNotFound, decode(t, rr).Error.Code)
}

func TestUpdateAndDeleteWebsite(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("UpdateCategory", publisher, "w1", "tech").
		Return(nil, domain.NewError(domain.ErrValidation, domain.CodeInvalidCategory, "unknown category"))
	f.websites.On("DeleteWebsite", publisher, "w1").Return(nil)

	assert.Equal(t, http.StatusBadRequest, f.do("PATCH", "/websites/w1", "pub-key", map[string]string{"category": "tech"}).Code)
	assert.Equal(t, http.StatusOK, f.do("DELETE", "/websites/w1", "pub-key", nil).Code)
}

func TestAdCode(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("AdCode", publisher, "w1").Return(`<script async src="x"></script>`, nil)
	f.websites.On("AdCode", publisher, "w2").
		Return("", domain.NewError(domain.ErrInvalidState, domain.CodeWebsiteNotActive, "not active"))

	rr := f.do("GET", "/websites/w1/ad-code", "pub-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &data))
	assert.Contains(t, data["adCode"], "<script")

	assert.Equal(t, http.StatusConflict, f.do("GET", "/websites/w2/ad-code", "pub-key", nil).Code)
}

func TestInitiateVerification(t *testing.T) {
	f := newFixture(nil)
	snap := &domain.Snapshot{
		WebsiteID: "w1",
		State:     domain.StateAwaitingAction,
		Method:    domain.MethodDNS,
		DNS:       &domain.DNSRecord{Type: "TXT", Name: "_verify.example.com", Value: "tok"},
		Message:   "Verification instructions generated",
	}
	f.verification.On("Initiate", publisher, "w1", domain.MethodDNS).Return(snap, nil)

	rr := f.do("POST", "/websites/w1/verification/initiate", "pub-key", map[string]string{"method": "dns"})
	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode(t, rr)
	assert.Equal(t, "Verification instructions generated", resp.Message)

	rr = f.do("POST", "/websites/w1/verification/initiate", "pub-key", map[string]string{"method": "email"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeInvalidMethod, decode(t, rr).Error.Code)
	f.verification.AssertNumberOfCalls(t, "Initiate", 1)
}

func TestCheckVerification(t *testing.T) {
	f := newFixture(nil)
	failed := &domain.Snapshot{
		WebsiteID: "w1",
		State:     domain.StateFailed,
		Result:    &domain.CheckResult{Outcome: domain.OutcomeFailed, Remaining: 2, Performed: true},
		Message:   "The verification value did not match",
	}
	f.verification.On("Check", publisher, "w1").Return(failed, nil).Once()
	f.verification.On("Check", publisher, "w1").
		Return(nil, domain.NewError(domain.ErrInvalidState, domain.CodeAlreadyVerified, "website is already active")).Once()

	rr := f.do("POST", "/websites/w1/verification/check", "pub-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode(t, rr)
	assert.False(t, resp.Success)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snap))
	assert.Equal(t, 2, snap.Result.Remaining)

	rr = f.do("POST", "/websites/w1/verification/check", "pub-key", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, domain.CodeAlreadyVerified, decode(t, rr).Error.Code)
}

func TestCheckVerification_RateLimited(t *testing.T) {
	f := newFixture(NewCheckLimiter(1))
	f.verification.On("Check", publisher, "w1").
		Return(&domain.Snapshot{Result: &domain.CheckResult{Outcome: domain.OutcomeSuccess}}, nil)

	assert.Equal(t, http.StatusOK, f.do("POST", "/websites/w1/verification/check", "pub-key", nil).Code)
	rr := f.do("POST", "/websites/w1/verification/check", "pub-key", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestVerificationStatus(t *testing.T) {
	f := newFixture(nil)
	f.verification.On("Status", publisher, "w1").Return(&domain.Snapshot{WebsiteID: "w1", State: domain.StateIdle}, nil)

	rr := f.do("GET", "/websites/w1/verification", "pub-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(nil)

	// Publishers are kept out of the admin surface.
	assert.Equal(t, http.StatusForbidden, f.do("GET", "/admin/websites", "pub-key", nil).Code)

	f.websites.On("Stats", adminUser).Return(&domain.WebsiteStats{Total: 3, Active: 1}, nil)
	rr := f.do("GET", "/admin/websites/stats", "admin-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	f.websites.On("ListWebsites", adminUser, mock.MatchedBy(func(fl domain.WebsiteFilter) bool {
		return fl.PublisherID == "pub-7"
	})).Return(&domain.WebsitePage{Items: []domain.Website{}}, nil)
	assert.Equal(t, http.StatusOK, f.do("GET", "/admin/websites?publisherId=pub-7", "admin-key", nil).Code)

	f.websites.On("ListAuditLogs", adminUser, "pub-7").Return([]domain.AuditLog(nil), nil)
	rr = f.do("GET", "/admin/audit-logs?publisherId=pub-7", "admin-key", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rr).Data))
}

func TestAdminModerate(t *testing.T) {
	tests := []struct {
		action string
		want   ports.ModerationAction
	}{
		{"approve", ports.ActionApprove},
		{"reactivate", ports.ActionApprove},
		{"suspend", ports.ActionReject},
		{"REJECT", ports.ActionReject},
		{"reset", ports.ActionReset},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			f := newFixture(nil)
			f.moderation.On("Moderate", adminUser, "w1", tt.want).Return(&domain.Website{ID: "w1"}, nil)

			rr := f.do("POST", "/admin/websites/w1/verification", "admin-key", map[string]string{"action": tt.action})
			assert.Equal(t, http.StatusOK, rr.Code)
			f.moderation.AssertExpectations(t)
		})
	}

	f := newFixture(nil)
	rr := f.do("POST", "/admin/websites/w1/verification", "admin-key", map[string]string{"action": "delete"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeInvalidAction, decode(t, rr).Error.Code)
}

func TestPublisherStats(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("Stats", publisher).Return(&domain.WebsiteStats{Total: 2, Pending: 2}, nil)

	rr := f.do("GET", "/websites/stats", "pub-key", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"total":2,"active":0,"pending":2,"rejected":0,"verified":0}`, string(decode(t, rr).Data))
	f.websites.AssertExpectations(t)
}

func TestAdminUpdateWebsite(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("UpdateCategory", adminUser, "w1", "news").
		Return(&domain.Website{ID: "w1", PublisherID: "pub-1", Category: domain.CategoryNews}, nil)

	rr := f.do("PUT", "/admin/websites/w1", "admin-key", map[string]string{"category": "news"})
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusForbidden, f.do("PUT", "/admin/websites/w1", "pub-key", map[string]string{"category": "news"}).Code)
	f.websites.AssertExpectations(t)
}

func TestAdminToggleStatus(t *testing.T) {
	f := newFixture(nil)
	f.moderation.On("Moderate", adminUser, "w1", ports.ActionToggle).
		Return(&domain.Website{ID: "w1", Status: domain.StatusRejected}, nil).Once()

	rr := f.do("PATCH", "/admin/websites/w1/status", "admin-key", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d := decode(t, rr)
	assert.Equal(t, "Website status changed to rejected", d.Message)

	f.moderation.On("Moderate", adminUser, "missing", ports.ActionToggle).
		Return(nil, domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, "website missing not found")).Once()
	assert.Equal(t, http.StatusNotFound, f.do("PATCH", "/admin/websites/missing/status", "admin-key", nil).Code)

	assert.Equal(t, http.StatusForbidden, f.do("PATCH", "/admin/websites/w1/status", "pub-key", nil).Code)
	f.moderation.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(nil)
	f.websites.On("HealthCheck").Return(map[string]error{"postgres": nil}).Once()
	assert.Equal(t, http.StatusOK, f.do("GET", "/health", "", nil).Code)

	f.websites.On("HealthCheck").Return(map[string]error{"postgres": errors.New("down")}).Once()
	assert.Equal(t, http.StatusServiceUnavailable, f.do("GET", "/health", "", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(nil)
	rr := f.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrExhausted))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrExpired))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.ErrForbidden))
	assert.Equal(t, http.StatusUnauthorized, statusFor(domain.ErrUnauthorized))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
}
