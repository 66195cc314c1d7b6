package domain

import "time"

// Remaining returns how many checks may still run against the current challenge.
func (v *Verification) Remaining() int {
	r := v.MaxAttempts - v.Attempts
	if r < 0 {
		return 0
	}
	return r
}

// Exhausted reports whether the attempt budget for the current challenge is spent.
func (v *Verification) Exhausted() bool {
	return v.Attempts >= v.MaxAttempts
}

// Issue installs a fresh challenge, replacing any previous one, and resets the
// attempt counter.
func (v *Verification) Issue(c *Challenge, maxAttempts int) {
	v.Method = c.Method
	v.Challenge = c
	v.Attempts = 0
	v.MaxAttempts = maxAttempts
	v.LastAttempt = nil
}

// RecordMismatch consumes one attempt. The counter never exceeds MaxAttempts.
func (v *Verification) RecordMismatch(now time.Time) {
	if v.Attempts < v.MaxAttempts {
		v.Attempts++
	}
	v.LastAttempt = &now
}

// MarkVerified records a successful check.
func (v *Verification) MarkVerified(now time.Time) {
	v.IsVerified = true
	v.VerifiedAt = &now
	v.LastAttempt = &now
}

// Reset clears everything except the configured attempt bound.
func (v *Verification) Reset() {
	maxAttempts := v.MaxAttempts
	*v = Verification{MaxAttempts: maxAttempts}
}
