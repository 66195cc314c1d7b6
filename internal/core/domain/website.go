// Package domain contains the core entities and rules for website ownership verification.
package domain

import (
	"time"
)

// Category classifies a publisher website.
type Category string

const (
	CategoryBlog          Category = "blog"
	CategoryNews          Category = "news"
	CategoryEntertainment Category = "entertainment"
	CategoryBusiness      Category = "business"
	CategoryTechnology    Category = "technology"
	CategoryLifestyle     Category = "lifestyle"
	CategoryOther         Category = "other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryBlog,
	CategoryNews,
	CategoryEntertainment,
	CategoryBusiness,
	CategoryTechnology,
	CategoryLifestyle,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// WebsiteStatus is the moderation/visibility status of a website.
type WebsiteStatus string

const (
	StatusPending  WebsiteStatus = "pending"
	StatusActive   WebsiteStatus = "active"
	StatusRejected WebsiteStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s WebsiteStatus) Valid() bool {
	return s == StatusPending || s == StatusActive || s == StatusRejected
}

// ActivationSource records which authority moved a website to active.
type ActivationSource string

const (
	ActivatedByNone         ActivationSource = ""
	ActivatedByVerification ActivationSource = "verification"
	ActivatedByAdmin        ActivationSource = "admin"
)

// Website is a publisher-owned domain registered with the ad network.
type Website struct {
	ID               string           `json:"id"`
	PublisherID      string           `json:"publisher_id"`
	Domain           string           `json:"domain"`
	Category         Category         `json:"category"`
	Status           WebsiteStatus    `json:"status"`
	ActivationSource ActivationSource `json:"activation_source,omitempty"`
	Verification     Verification     `json:"verification"`
	IsDeleted        bool             `json:"-"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        *time.Time       `json:"-"`
}

// WebsiteStats aggregates website counts for the admin dashboard.
type WebsiteStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
	Verified int `json:"verified"`
}

// SortField names the columns the admin listing can be ordered by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByDomain    SortField = "domain"
	SortByStatus    SortField = "status"
)

// WebsiteFilter narrows website listings. Zero values mean "no constraint".
type WebsiteFilter struct {
	PublisherID string
	Status      WebsiteStatus
	Category    Category
	IsVerified  *bool
	Search      string
	SortBy      SortField
	SortDesc    bool
	Page        int
	Limit       int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging and sorting to accepted values.
func (f *WebsiteFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	switch f.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByDomain, SortByStatus:
	default:
		f.SortBy = SortByCreatedAt
		f.SortDesc = true
	}
}

// WebsitePage is one page of a filtered website listing.
type WebsitePage struct {
	Items []Website `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// AuditLog records publisher and administrative actions on websites.
type AuditLog struct {
	ID           string    `json:"id"`
	PublisherID  string    `json:"publisher_id"`
	Actor        string    `json:"actor"`         // "publisher", "admin" or "system"
	Action       string    `json:"action"`        // e.g. "VERIFICATION_INITIATED", "MODERATION_APPROVE"
	ResourceType string    `json:"resource_type"` // e.g. "WEBSITE"
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}
