package domain

import "time"

// CheckOutcome tags the result of a verification check.
type CheckOutcome string

const (
	OutcomeSuccess   CheckOutcome = "success"
	OutcomeFailed    CheckOutcome = "failed"
	OutcomeExhausted CheckOutcome = "exhausted"
	OutcomeExpired   CheckOutcome = "expired"
	OutcomeTransient CheckOutcome = "transient"
)

// MismatchHint explains why a found record or file did not match.
type MismatchHint string

const (
	HintNone       MismatchHint = ""
	HintNotFound   MismatchHint = "not_found"
	HintWrongValue MismatchHint = "wrong_value"
	HintWhitespace MismatchHint = "whitespace"
	HintHTTPStatus MismatchHint = "http_status"
)

// Probe is the raw classification produced by a single live lookup.
type Probe struct {
	Passed     bool
	Transient  bool
	Hint       MismatchHint
	HTTPStatus int
	Detail     string
}

// CheckResult is the typed result of one Check call.
type CheckResult struct {
	Outcome   CheckOutcome `json:"outcome"`
	Remaining int          `json:"remaining"`
	Hint      MismatchHint `json:"hint,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	// Performed is false when the check was answered without any external lookup.
	Performed bool `json:"performed"`
}

// Message returns the user-facing explanation of a result.
func (r CheckResult) Message() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return "Website verified successfully"
	case OutcomeExhausted:
		return "No verification attempts remain. Start a new verification to get a fresh challenge"
	case OutcomeExpired:
		return "The verification challenge has expired. Start a new verification to get a fresh challenge"
	case OutcomeTransient:
		return "We could not reach your domain right now. Please try again; this did not use an attempt"
	}
	switch r.Hint {
	case HintWhitespace:
		return "A record was found but contains extra whitespace. Copy the value exactly as shown"
	case HintHTTPStatus:
		return "The verification file did not return HTTP 200"
	case HintNotFound:
		return "The verification record or file was not found"
	}
	return "The verification value did not match"
}

// AttemptInfo summarises attempt usage for a snapshot.
type AttemptInfo struct {
	Count       int        `json:"count"`
	Remaining   int        `json:"remaining"`
	Max         int        `json:"max"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
}

// Snapshot is the verification view returned by initiate, check and status calls.
type Snapshot struct {
	WebsiteID    string        `json:"websiteId"`
	Domain       string        `json:"domain"`
	Status       WebsiteStatus `json:"status"`
	State        State         `json:"state"`
	Method       Method        `json:"method,omitempty"`
	IsVerified   bool          `json:"isVerified"`
	VerifiedAt   *time.Time    `json:"verifiedAt,omitempty"`
	Attempts     AttemptInfo   `json:"attempts"`
	DNS          *DNSRecord    `json:"dns,omitempty"`
	File         *FileSpec     `json:"file,omitempty"`
	ExpiresAt    *time.Time    `json:"expiresAt,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	Result       *CheckResult  `json:"result,omitempty"`
	Message      string        `json:"message,omitempty"`
}
