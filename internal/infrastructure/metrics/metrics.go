package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal tracks verification checks by method and outcome
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteverify_checks_total",
		Help: "Total number of verification checks processed",
	}, []string{"method", "outcome"})

	// CheckDuration tracks time spent in live DNS/HTTP lookups
	CheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siteverify_check_duration_seconds",
		Help:    "Histogram of live verification lookup duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// ChallengesIssued tracks challenge issuance per method
	ChallengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteverify_challenges_issued_total",
		Help: "Total number of verification challenges issued",
	}, []string{"method"})

	// WhitespaceMismatches counts DNS values that only differ from the token by surrounding whitespace
	WhitespaceMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "siteverify_whitespace_mismatches_total",
		Help: "Number of TXT values rejected for surrounding whitespace only",
	})

	// ModerationActions tracks admin moderation by action
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteverify_moderation_actions_total",
		Help: "Total number of admin moderation actions",
	}, []string{"action"})

	// LockFailures counts per-website lock acquisitions that timed out or errored
	LockFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "siteverify_lock_failures_total",
		Help: "Number of failed per-website lock acquisitions",
	})
)
