package domain

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var validLabelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
var validTLDRegex = regexp.MustCompile(`^([a-z]{2,63}|xn--[a-z0-9-]{1,59})$`)

// NormalizeDomain turns user input such as "https://www.Example.com/" into a bare
// lowercase ASCII hostname and validates it.
func NormalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")

	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", NewError(ErrValidation, CodeInvalidDomain, "domain is not a valid hostname")
	}
	if err := ValidateDomain(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

// ValidateDomain checks an already-normalised hostname.
func ValidateDomain(name string) error {
	if name == "" {
		return NewError(ErrValidation, CodeInvalidDomain, "domain cannot be empty")
	}
	if len(name) > 253 {
		return NewError(ErrValidation, CodeInvalidDomain, "domain exceeds 253 characters")
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return NewError(ErrValidation, CodeInvalidDomain, "domain must contain at least one dot")
	}
	for _, label := range labels {
		if label == "" {
			return NewError(ErrValidation, CodeInvalidDomain, "domain contains empty label")
		}
		if len(label) > 63 {
			return NewError(ErrValidation, CodeInvalidDomain, "label '"+label+"' exceeds 63 characters")
		}
		if !validLabelRegex.MatchString(label) {
			return NewError(ErrValidation, CodeInvalidDomain, "label '"+label+"' contains invalid characters or format")
		}
	}
	if !validTLDRegex.MatchString(labels[len(labels)-1]) {
		return NewError(ErrValidation, CodeInvalidDomain, "top-level domain is invalid")
	}
	return nil
}

// ParseCategory maps request input to a Category, defaulting to "other".
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(strings.ToLower(s))
	if !c.Valid() {
		return "", NewError(ErrValidation, CodeInvalidCategory, "unknown category '"+s+"'")
	}
	return c, nil
}
