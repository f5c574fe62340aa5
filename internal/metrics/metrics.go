// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Provisioning outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeAuthError     = "auth_error"
	OutcomeProfileError  = "profile_error"
	OutcomeRollbackError = "rollback_error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// User provisioning
	IncUserProvisioned(outcome string)
	ObserveProvisioningDuration(duration time.Duration)
	IncRollback(status string) // status: "success" or "failed"

	// Orphan identity sweeper
	IncOrphanEnqueued()
	IncOrphanSwept(status string) // status: "deleted", "retry", "dead_lettered"
	SetOrphanQueueDepth(depth int64)

	// CRUD mutations
	IncMutation(entity, op string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
