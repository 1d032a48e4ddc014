package portalauth

import "github.com/sbiswal/portalauth/internal/metrics"

// MetricID identifies one engine counter.
type MetricID = metrics.MetricID

const (
	MetricSignInSuccess      = metrics.MetricSignInSuccess
	MetricSignInFailure      = metrics.MetricSignInFailure
	MetricSignInRateLimited  = metrics.MetricSignInRateLimited
	MetricSignInRejected     = metrics.MetricSignInRejectedInput
	MetricSignOut            = metrics.MetricSignOut
	MetricSessionCreated     = metrics.MetricSessionCreated
	MetricSessionAdopted     = metrics.MetricSessionAdopted
	MetricSessionExpired     = metrics.MetricSessionExpired
	MetricSessionCleared     = metrics.MetricSessionCleared
	MetricIdentityUpdated    = metrics.MetricIdentityUpdated
	MetricStorageError       = metrics.MetricStorageError
	MetricCorruptEntryPurged = metrics.MetricCorruptEntryPurged
)

// MetricsSnapshot is a copy of every counter at one instant.
type MetricsSnapshot = metrics.Snapshot
