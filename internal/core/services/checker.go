package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/poyrazK/siteverify/internal/infrastructure/metrics"
)

// Checker performs the live DNS or HTTP lookup for a challenge and classifies it.
// It never mutates website state.
type Checker struct {
	resolver ports.TXTResolver
	fetcher  ports.HTTPFetcher
	logger   *slog.Logger
}

func NewChecker(resolver ports.TXTResolver, fetcher ports.HTTPFetcher, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{resolver: resolver, fetcher: fetcher, logger: logger}
}

// Probe inspects the live domain for c. Lookup failures are reported as a
// transient Probe, not as an error.
func (c *Checker) Probe(ctx context.Context, ch *domain.Challenge) domain.Probe {
	switch ch.Method {
	case domain.MethodDNS:
		return c.probeDNS(ctx, ch)
	case domain.MethodFile:
		return c.probeFile(ctx, ch)
	}
	return domain.Probe{Hint: domain.HintWrongValue, Detail: "unsupported method"}
}

func (c *Checker) probeDNS(ctx context.Context, ch *domain.Challenge) domain.Probe {
	values, err := c.resolver.LookupTXT(ctx, ch.DNS.Name)
	if err != nil {
		if errors.Is(err, domain.ErrTXTNotFound) {
			return domain.Probe{Hint: domain.HintNotFound, Detail: "no TXT record at " + ch.DNS.Name}
		}
		c.logger.Warn("TXT lookup failed", "name", ch.DNS.Name, "error", err)
		return domain.Probe{Transient: true, Detail: err.Error()}
	}

	hint := domain.HintWrongValue
	for _, v := range values {
		if v == ch.Token {
			return domain.Probe{Passed: true}
		}
		if strings.TrimSpace(v) == ch.Token {
			hint = domain.HintWhitespace
		}
	}
	if hint == domain.HintWhitespace {
		metrics.WhitespaceMismatches.Inc()
		c.logger.Warn("TXT value matches token only after trimming whitespace", "name", ch.DNS.Name)
	}
	if len(values) == 0 {
		hint = domain.HintNotFound
	}
	return domain.Probe{Hint: hint, Detail: "TXT value did not match"}
}

func (c *Checker) probeFile(ctx context.Context, ch *domain.Challenge) domain.Probe {
	resp, err := c.fetcher.Fetch(ctx, ch.File.FullURL)
	if err != nil {
		c.logger.Warn("verification file fetch failed", "url", ch.File.FullURL, "error", err)
		return domain.Probe{Transient: true, Detail: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		hint := domain.HintHTTPStatus
		if resp.StatusCode == http.StatusNotFound {
			hint = domain.HintNotFound
		}
		return domain.Probe{Hint: hint, HTTPStatus: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
	}

	if resp.Truncated {
		return domain.Probe{Hint: domain.HintWrongValue, HTTPStatus: resp.StatusCode, Detail: "file body exceeds size limit"}
	}

	body := strings.TrimRight(string(resp.Body), " \t\r\n")
	if body == ch.File.Content {
		return domain.Probe{Passed: true, HTTPStatus: resp.StatusCode}
	}
	return domain.Probe{Hint: domain.HintWrongValue, HTTPStatus: resp.StatusCode, Detail: "file content did not match"}
}
