package domain

import (
	"errors"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrExhausted    = errors.New("verification attempts exhausted")
	ErrExpired      = errors.New("verification challenge expired")
	ErrTransient    = errors.New("transient infrastructure error")
	ErrMismatch     = errors.New("verification mismatch")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrTXTNotFound is returned by resolvers when the name has no TXT records.
	ErrTXTNotFound = errors.New("no TXT records")
)

// Stable machine-readable codes surfaced to API clients.
const (
	CodeWebsiteNotFound   = "WEBSITE_NOT_FOUND"
	CodeAlreadyVerified   = "ALREADY_VERIFIED"
	CodeWebsiteRejected   = "WEBSITE_REJECTED"
	CodeInvalidMethod     = "INVALID_METHOD"
	CodeInvalidDomain     = "INVALID_DOMAIN"
	CodeInvalidCategory   = "INVALID_CATEGORY"
	CodeInvalidAction     = "INVALID_ACTION"
	CodeNoChallenge       = "NO_CHALLENGE"
	CodeAttemptsExhausted = "ATTEMPTS_EXHAUSTED"
	CodeChallengeExpired  = "CHALLENGE_EXPIRED"
	CodeDuplicateWebsite  = "DUPLICATE_WEBSITE"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeWebsiteNotActive  = "WEBSITE_NOT_ACTIVE"
	CodeOperationBusy     = "OPERATION_IN_PROGRESS"
)

// Error carries a kind for errors.Is matching plus a client-facing code and message.
type Error struct {
	Kind    error
	Code    string
	Message string
}

// NewError builds an Error of the given kind.
func NewError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// CodeOf extracts the client-facing code from err, if any.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
