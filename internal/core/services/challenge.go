package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
)

// tokenBytes gives 128 bits of entropy; hex encoding yields a 32-char token.
const tokenBytes = 16

// ChallengeGenerator derives verification challenges for websites.
type ChallengeGenerator struct {
	DNSLabel   string        // host label prepended to the domain, e.g. "_verify"
	FilePrefix string        // file name prefix, e.g. "verify"
	TTL        time.Duration // challenge validity
	Rand       io.Reader     // defaults to crypto/rand
}

// NewChallengeGenerator returns a generator with crypto/rand as entropy source.
func NewChallengeGenerator(dnsLabel, filePrefix string, ttl time.Duration) *ChallengeGenerator {
	return &ChallengeGenerator{DNSLabel: dnsLabel, FilePrefix: filePrefix, TTL: ttl, Rand: rand.Reader}
}

// NewToken returns a fresh random hex token.
func (g *ChallengeGenerator) NewToken() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Generate builds a challenge for w using method, issued at now.
func (g *ChallengeGenerator) Generate(w *domain.Website, method domain.Method, now time.Time) (*domain.Challenge, error) {
	token, err := g.NewToken()
	if err != nil {
		return nil, err
	}

	c := &domain.Challenge{
		Method:    method,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(g.TTL),
	}

	switch method {
	case domain.MethodDNS:
		c.DNS = &domain.DNSRecord{
			Type:  "TXT",
			Name:  g.DNSLabel + "." + w.Domain,
			Value: token,
		}
	case domain.MethodFile:
		path := fmt.Sprintf("/%s-%s.txt", g.FilePrefix, w.ID)
		c.File = &domain.FileSpec{
			Path:    path,
			Content: token,
			FullURL: "https://" + w.Domain + path,
		}
	default:
		return nil, domain.NewError(domain.ErrValidation, domain.CodeInvalidMethod, fmt.Sprintf("unsupported method %q", method))
	}
	return c, nil
}

// Instructions renders the human-readable steps for a challenge.
func Instructions(c *domain.Challenge) string {
	if c == nil {
		return ""
	}
	validity := c.ExpiresAt.Sub(c.IssuedAt).Round(time.Hour)
	switch c.Method {
	case domain.MethodDNS:
		return fmt.Sprintf(
			"Add a TXT record to your DNS with the following values:\n"+
				"Host: %s\n"+
				"Value: %s\n\n"+
				"Copy the value exactly, without quotes or spaces. DNS changes can take time to propagate.\n"+
				"This challenge expires in %s.",
			c.DNS.Name, c.DNS.Value, validity,
		)
	case domain.MethodFile:
		return fmt.Sprintf(
			"Create a file at %s containing exactly:\n"+
				"%s\n\n"+
				"It must be reachable at %s and return HTTP 200.\n"+
				"This challenge expires in %s.",
			c.File.Path, c.File.Content, c.File.FullURL, validity,
		)
	}
	return ""
}
