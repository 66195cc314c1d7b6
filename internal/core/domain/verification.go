package domain

import (
	"time"
)

// Method is the mechanism a publisher uses to prove control of a domain.
type Method string

const (
	MethodDNS  Method = "dns"
	MethodFile Method = "file"
)

// ParseMethod validates a method name coming from a request.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodDNS, MethodFile:
		return Method(s), nil
	}
	return "", NewError(ErrValidation, CodeInvalidMethod, "verification method must be 'dns' or 'file'")
}

// DNSRecord describes the TXT record the publisher must publish.
type DNSRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FileSpec describes the file the publisher must serve.
type FileSpec struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	FullURL string `json:"fullUrl"`
}

// Challenge is an issued verification artifact. Exactly one of DNS or File is set,
// matching Method.
type Challenge struct {
	Method    Method     `json:"method"`
	Token     string     `json:"token"`
	DNS       *DNSRecord `json:"dns,omitempty"`
	File      *FileSpec  `json:"file,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the challenge validity window has passed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Verification is the ownership-verification sub-record embedded in a Website.
type Verification struct {
	IsVerified  bool       `json:"is_verified"`
	Method      Method     `json:"method,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Challenge   *Challenge `json:"challenge,omitempty"`
}
