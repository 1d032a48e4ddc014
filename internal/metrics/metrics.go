// Package metrics provides atomic in-process counters for portalauth
// observability.
//
// Counters are incremented via [sync/atomic] and read through deep-copy
// snapshots; there is no export surface here — the root package decides
// what to expose.
package metrics

import "sync/atomic"

// MetricID identifies a specific counter.
type MetricID uint16

const (
	MetricSignInSuccess MetricID = iota
	MetricSignInFailure
	MetricSignInRateLimited
	MetricSignInRejectedInput
	MetricSignOut
	MetricSessionCreated
	MetricSessionAdopted
	MetricSessionExpired
	MetricSessionCleared
	MetricIdentityUpdated
	MetricStorageError
	MetricCorruptEntryPurged

	MetricIDCount
)

// Config controls whether counting is active. When Enabled is false every
// operation is a no-op.
type Config struct {
	Enabled bool
}

// Metrics holds one atomic slot per [MetricID].
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a [Metrics] instance. A nil receiver is safe everywhere.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// SnapshotNow copies every counter into a fresh map.
func (m *Metrics) SnapshotNow() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
