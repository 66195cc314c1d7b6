package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationAttempts(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := Verification{}
	v.Issue(&Challenge{Method: MethodFile, Token: "abc"}, 3)

	assert.Equal(t, MethodFile, v.Method)
	assert.Equal(t, 3, v.Remaining())
	assert.False(t, v.Exhausted())

	for i := 0; i < 5; i++ {
		v.RecordMismatch(now.Add(time.Duration(i) * time.Minute))
	}
	assert.Equal(t, 3, v.Attempts, "attempts never exceed the bound")
	assert.Equal(t, 0, v.Remaining())
	assert.True(t, v.Exhausted())
	assert.Equal(t, now.Add(4*time.Minute), *v.LastAttempt)

	v.Issue(&Challenge{Method: MethodDNS, Token: "def"}, 3)
	assert.Equal(t, 0, v.Attempts)
	assert.Nil(t, v.LastAttempt)
	assert.Equal(t, "def", v.Challenge.Token)
}

func TestVerificationMarkVerifiedAndReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := Verification{}
	v.Issue(&Challenge{Method: MethodDNS, Token: "abc"}, 5)
	v.RecordMismatch(now)
	v.MarkVerified(now)

	assert.True(t, v.IsVerified)
	assert.Equal(t, now, *v.VerifiedAt)

	v.Reset()
	assert.Equal(t, Verification{MaxAttempts: 5}, v)
}

func TestRemainingNeverNegative(t *testing.T) {
	v := Verification{MaxAttempts: 2, Attempts: 7}
	assert.Equal(t, 0, v.Remaining())
}
