// Package fetcher retrieves verification files from publisher websites.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
)

const (
	DefaultMaxBody = 4096
	maxRedirects   = 3
	userAgent      = "siteverify/1.0 (+ownership-check)"
)

type Config struct {
	Timeout time.Duration
	// MaxBody caps how much of the response body is read.
	MaxBody int64
	// AllowHTTPFallback retries over plain http when the https request fails
	// at the transport level.
	AllowHTTPFallback bool
}

// Fetcher implements ports.HTTPFetcher.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Fetcher{client: client, cfg: cfg, logger: logger}
}

// NewWithClient is used by tests to point the fetcher at an httptest server.
func NewWithClient(client *http.Client, cfg Config, logger *slog.Logger) *Fetcher {
	f := New(cfg, logger)
	client.CheckRedirect = f.client.CheckRedirect
	if client.Timeout == 0 {
		client.Timeout = f.cfg.Timeout
	}
	f.client = client
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*ports.FetchResponse, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil && f.cfg.AllowHTTPFallback && strings.HasPrefix(rawURL, "https://") && ctx.Err() == nil {
		plain := "http://" + strings.TrimPrefix(rawURL, "https://")
		f.logger.Info("https fetch failed, trying http", "url", rawURL, "error", err)
		resp, err = f.get(ctx, plain)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrTransient, rawURL, err)
	}
	return resp, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*ports.FetchResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, errors.New("unsupported scheme " + u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain, */*;q=0.1")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBody+1))
	if err != nil {
		return nil, err
	}
	out := &ports.FetchResponse{StatusCode: resp.StatusCode, Body: body}
	if int64(len(body)) > f.cfg.MaxBody {
		out.Body = body[:f.cfg.MaxBody]
		out.Truncated = true
	}
	return out, nil
}
