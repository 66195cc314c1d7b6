package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"     // moderation and cross-publisher reads
	RolePublisher Role = "publisher" // own websites only
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePublisher
}

type APIKey struct {
	ID          string     `json:"id"`
	PublisherID string     `json:"publisher_id"`
	Name        string     `json:"name"`       // Human-readable label, e.g. "dashboard"
	KeyHash     string     `json:"-"`          // SHA-256 hash of the key (never store raw)
	KeyPrefix   string     `json:"key_prefix"` // First 8 chars for identification
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	PublisherID string
	Role        Role
	KeyID       string
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
