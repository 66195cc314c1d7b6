package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
)

// MemoryRepo is an in-memory WebsiteRepository and AuditRepository with the
// same version semantics as the Postgres adapter. Stored websites are deep
// copied so callers cannot mutate them behind the repo's back.
type MemoryRepo struct {
	mu       sync.Mutex
	websites map[string]domain.Website
	Logs     []domain.AuditLog
	Updates  int
	PingErr  error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{websites: make(map[string]domain.Website)}
}

// Put stores w as-is, bypassing version checks.
func (m *MemoryRepo) Put(w domain.Website) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.websites[w.ID] = clone(w)
}

// Snapshot returns the stored copy of a website, deleted or not.
func (m *MemoryRepo) Snapshot(id string) (domain.Website, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	return clone(w), ok
}

func (m *MemoryRepo) CreateWebsite(_ context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.websites[w.ID] = clone(*w)
	return nil
}

func (m *MemoryRepo) GetWebsite(_ context.Context, id string) (*domain.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok || w.IsDeleted {
		return nil, nil
	}
	c := clone(w)
	return &c, nil
}

func (m *MemoryRepo) FindWebsiteByDomain(_ context.Context, publisherID string, name string) (*domain.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.websites {
		if !w.IsDeleted && w.PublisherID == publisherID && w.Domain == name {
			c := clone(w)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepo) ListWebsites(_ context.Context, f domain.WebsiteFilter) ([]domain.Website, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Website
	for _, w := range m.websites {
		if w.IsDeleted {
			continue
		}
		if f.PublisherID != "" && w.PublisherID != f.PublisherID {
			continue
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		if f.Category != "" && w.Category != f.Category {
			continue
		}
		if f.IsVerified != nil && w.Verification.IsVerified != *f.IsVerified {
			continue
		}
		if f.Search != "" && !strings.Contains(w.Domain, f.Search) {
			continue
		}
		all = append(all, clone(w))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Domain < all[j].Domain })

	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MemoryRepo) UpdateWebsite(_ context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.websites[w.ID]
	if !ok || cur.IsDeleted {
		return domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, w.ID)
	}
	if cur.Version != w.Version {
		return domain.NewError(domain.ErrConflict, domain.CodeVersionConflict, w.ID)
	}
	w.Version++
	m.websites[w.ID] = clone(*w)
	m.Updates++
	return nil
}

func (m *MemoryRepo) SoftDeleteWebsite(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, id)
	}
	w.IsDeleted = true
	w.DeletedAt = &at
	w.Version++
	m.websites[id] = w
	return nil
}

func (m *MemoryRepo) WebsiteStats(_ context.Context, publisherID string) (*domain.WebsiteStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s domain.WebsiteStats
	for _, w := range m.websites {
		if w.IsDeleted || (publisherID != "" && w.PublisherID != publisherID) {
			continue
		}
		s.Total++
		switch w.Status {
		case domain.StatusActive:
			s.Active++
		case domain.StatusPending:
			s.Pending++
		case domain.StatusRejected:
			s.Rejected++
		}
		if w.Verification.IsVerified {
			s.Verified++
		}
	}
	return &s, nil
}

func (m *MemoryRepo) Ping(_ context.Context) error { return m.PingErr }

func (m *MemoryRepo) SaveAuditLog(_ context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, *log)
	return nil
}

func (m *MemoryRepo) GetAuditLogs(_ context.Context, publisherID string) ([]domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.AuditLog
	for _, l := range m.Logs {
		if publisherID == "" || l.PublisherID == publisherID {
			res = append(res, l)
		}
	}
	return res, nil
}

// Actions lists the audit actions recorded so far, in order.
func (m *MemoryRepo) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Logs))
	for _, l := range m.Logs {
		out = append(out, l.Action)
	}
	return out
}

func clone(w domain.Website) domain.Website {
	v := &w.Verification
	if v.Challenge != nil {
		c := *v.Challenge
		if c.DNS != nil {
			d := *c.DNS
			c.DNS = &d
		}
		if c.File != nil {
			f := *c.File
			c.File = &f
		}
		v.Challenge = &c
	}
	if v.LastAttempt != nil {
		t := *v.LastAttempt
		v.LastAttempt = &t
	}
	if v.VerifiedAt != nil {
		t := *v.VerifiedAt
		v.VerifiedAt = &t
	}
	return w
}

// StubResolver implements ports.TXTResolver with canned answers.
type StubResolver struct {
	mu      sync.Mutex
	Records map[string][]string
	Err     error
	Calls   int
	// Block, when set, makes LookupTXT wait for it or for ctx.
	Block chan struct{}
}

func (s *StubResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	s.Calls++
	block := s.Block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, errors.Join(domain.ErrTransient, ctx.Err())
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	vals, ok := s.Records[name]
	if !ok || len(vals) == 0 {
		return nil, domain.ErrTXTNotFound
	}
	return vals, nil
}

// Set replaces the TXT values served for name.
func (s *StubResolver) Set(name string, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Records == nil {
		s.Records = make(map[string][]string)
	}
	s.Records[name] = values
}

func (s *StubResolver) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// StubFetcher implements ports.HTTPFetcher with canned responses per URL.
type StubFetcher struct {
	mu        sync.Mutex
	Responses map[string]ports.FetchResponse
	Err       error
	Calls     int
}

func (s *StubFetcher) Fetch(_ context.Context, url string) (*ports.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	resp, ok := s.Responses[url]
	if !ok {
		return &ports.FetchResponse{StatusCode: 404}, nil
	}
	return &resp, nil
}

// Serve sets the response for url.
func (s *StubFetcher) Serve(url string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Responses == nil {
		s.Responses = make(map[string]ports.FetchResponse)
	}
	s.Responses[url] = ports.FetchResponse{StatusCode: status, Body: []byte(body)}
}

func (s *StubFetcher) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

// FakeClock is a manually advanced ports.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
